package domain

import (
	"context"
	"io"
	"time"
)

// ExplanationService generates the free-text clinical narrative for an
// assembled verdict. It is the pipeline's only external collaborator:
// implementations may call an LLM, a remote HTTP service, or serve curated
// static text. Failures are reported as errors and must be survivable:
// report assembly proceeds without the narrative.
type ExplanationService interface {
	Explain(ctx context.Context, req *ExplanationRequest) (*Explanation, error)
	HealthCheck(ctx context.Context) error
}

// ReportArchive persists emitted analysis reports for later retrieval and
// export. A nil archive is legal: the pipeline then skips persistence.
type ReportArchive interface {
	Save(ctx context.Context, report *AnalysisReport) error
	Get(ctx context.Context, reportID string) (*AnalysisReport, error)
	List(ctx context.Context, patientID string, limit, offset int) ([]*AnalysisReport, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, reportID string) error
	ExportJSON(ctx context.Context, w io.Writer) error
	ImportJSON(ctx context.Context, r io.Reader) (imported int, skipped int, err error)
	Close() error
}

// AnalysisRepository stores the per-sample audit trail: extracted variants,
// resolved alleles and gene-level calls, queryable by reference ID or gene.
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, record *AnalysisRecord) error
	GetAnalysis(ctx context.Context, analysisID string) (*AnalysisRecord, error)
	FindByRSID(ctx context.Context, rsid string, limit int) ([]*AnalysisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*AnalysisRecord, error)
}

// ReportCache caches fully assembled reports keyed by input fingerprint so
// that re-submitting the same file and drug does not recompute or re-invoke
// the explanation service. Implementations degrade to misses on backend
// failure, never to errors that block analysis.
type ReportCache interface {
	Get(ctx context.Context, key string) (*AnalysisReport, bool)
	Set(ctx context.Context, key string, report *AnalysisReport) error
	Invalidate(ctx context.Context, key string) error
	Stats() CacheStats
}

// CacheStats carries hit/miss accounting for cache observability.
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	MemoryItems int   `json:"memory_items"`
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetExplainerConfig() *ExplainerConfig
	GetCacheConfig() *CacheConfig
	GetDatabaseConfig() *DatabaseConfig
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}

// AnalysisRecord is the audit-trail row for one completed analysis run.
type AnalysisRecord struct {
	AnalysisID string           `json:"analysis_id"`
	PatientID  string           `json:"patient_id"`
	Drug       string           `json:"drug"`
	Variants   []Variant        `json:"variants"`
	Alleles    []ResolvedAllele `json:"alleles"`
	Calls      []GeneCallRecord `json:"calls"`
	CreatedAt  time.Time        `json:"created_at"`
}

// GeneCallRecord is the audit-trail view of one gene's diplotype and
// phenotype call.
type GeneCallRecord struct {
	Gene          Gene             `json:"gene"`
	Diplotype     string           `json:"diplotype"`
	Phenotype     PhenotypeCode    `json:"phenotype"`
	Method        PredictionMethod `json:"method"`
	ActivityScore *float64         `json:"activity_score,omitempty"`
	Conflict      bool             `json:"conflict"`
}
