package domain

import (
	"errors"
	"fmt"
	"time"
)

// Request/Response Models

// AnalyzeRequest represents an incoming analysis request: one variant file
// evaluated against one or more drugs for a single patient.
type AnalyzeRequest struct {
	PatientID  string   `json:"patient_id,omitempty"`
	VCFContent string   `json:"vcf_content"`
	Drugs      []string `json:"drugs"`
}

// AnalyzeResponse represents the response for an analysis request, one
// report per requested drug.
type AnalyzeResponse struct {
	Reports        []*AnalysisReport `json:"reports"`
	ProcessingTime time.Duration     `json:"processing_time"`
	Timestamp      time.Time         `json:"timestamp"`
}

// ExplanationRequest is the structured prompt contract for the external
// explanation service: the pipeline facts the narrative must be grounded in.
type ExplanationRequest struct {
	Drug          string        `json:"drug"`
	Gene          Gene          `json:"gene"`
	Diplotype     string        `json:"diplotype"`
	Phenotype     PhenotypeCode `json:"phenotype"`
	RiskLabel     RiskLabel     `json:"risk_label"`
	Severity      Severity      `json:"severity"`
	Action        string        `json:"action"`
	ActivityScore *float64      `json:"activity_score,omitempty"`

	// Variants is a preformatted, human-readable summary of the detected
	// variants for the gene, e.g. "rs3892097 (*4, homozygous, loss_of_function)".
	Variants string `json:"variants,omitempty"`
}

// Explanation is the free-text result returned by the explanation service.
type Explanation struct {
	Summary         string   `json:"summary"`
	Mechanism       string   `json:"mechanism"`
	ClinicalContext string   `json:"clinical_context"`
	References      []string `json:"references"`
}

// IsEmpty reports whether the explanation carries no usable text.
func (e *Explanation) IsEmpty() bool {
	return e == nil || (e.Summary == "" && e.Mechanism == "" && e.ClinicalContext == "" && len(e.References) == 0)
}

// Core Pipeline Models

// ParseStats captures line-level accounting from variant extraction. It
// feeds the parse-success quality metric: malformed lines degrade the ratio
// instead of failing the run.
type ParseStats struct {
	TotalLines   int      `json:"total_lines"`
	ParsedLines  int      `json:"parsed_lines"`
	SkippedLines int      `json:"skipped_lines"`
	GenesSeen    []string `json:"genes_seen"`
}

// SuccessRatio returns parsed/total data lines, 1.0 for an empty section.
func (s ParseStats) SuccessRatio() float64 {
	if s.TotalLines == 0 {
		return 1.0
	}
	return float64(s.ParsedLines) / float64(s.TotalLines)
}

// MappingResult is the AlleleMapper output: resolved alleles plus the
// variants that matched nothing, kept for quality metrics.
type MappingResult struct {
	Resolved    []ResolvedAllele `json:"resolved"`
	Unannotated []Variant        `json:"unannotated"`
}

// GenesResolved returns the distinct genes with at least one resolved
// allele, in stable panel order.
func (m *MappingResult) GenesResolved() []Gene {
	seen := make(map[Gene]bool, len(m.Resolved))
	for _, a := range m.Resolved {
		seen[a.Gene] = true
	}
	genes := make([]Gene, 0, len(seen))
	for _, g := range SupportedGenes() {
		if seen[g] {
			genes = append(genes, g)
		}
	}
	return genes
}

// AllelesForGene returns the resolved alleles for one gene, in input order.
func (m *MappingResult) AllelesForGene(gene Gene) []ResolvedAllele {
	var out []ResolvedAllele
	for _, a := range m.Resolved {
		if a.Gene == gene {
			out = append(out, a)
		}
	}
	return out
}

// DiplotypeCall is the DiplotypeCaller output for one gene. Conflict marks
// genes where more than two distinct alleles resolved; such genes keep their
// diplotype slots but must be treated as phenotype-unknown downstream.
type DiplotypeCall struct {
	Diplotype        Diplotype `json:"diplotype"`
	PresumedWildType bool      `json:"presumed_wild_type"`
	Conflict         bool      `json:"conflict"`

	// LookupPhenotype is the phenotype found in the diplotype table during
	// calling, when any. UNKNOWN_PHENOTYPE means the predictor must fall
	// back to activity scoring.
	LookupPhenotype PhenotypeCode `json:"lookup_phenotype"`
}

// PhenotypeCall represents the predicted metabolizer status for one gene.
type PhenotypeCall struct {
	Gene          Gene             `json:"gene"`
	Phenotype     PhenotypeCode    `json:"phenotype"`
	ActivityScore *float64         `json:"activity_score,omitempty"`
	Method        PredictionMethod `json:"prediction_method"`
}

// IsActionable reports whether the call warrants clinical attention.
func (p *PhenotypeCall) IsActionable() bool {
	return p.Phenotype.IsActionable()
}

// RiskVerdict represents the drug-specific clinical risk assessment derived
// from a phenotype call and the guideline rule table.
type RiskVerdict struct {
	Drug               string    `json:"drug"`
	PrimaryGene        Gene      `json:"primary_gene"`
	RiskLabel          RiskLabel `json:"risk_label"`
	Severity           Severity  `json:"severity"`
	ConfidenceScore    float64   `json:"confidence_score"`
	RecommendedAction  string    `json:"recommended_action"`
	DoseAdjustment     string    `json:"dose_adjustment"`
	AlternativeDrugs   []string  `json:"alternative_drugs"`
	MonitoringRequired bool      `json:"monitoring_required"`
	GuidelineReference string    `json:"guideline_reference"`
}

// Validate ensures the verdict respects the enumerated value sets and the
// confidence range before it is allowed into a report.
func (v *RiskVerdict) Validate() error {
	if v.Drug == "" {
		return fmt.Errorf("risk verdict validation: %w", errors.New("drug is required"))
	}

	if !v.RiskLabel.IsValid() {
		return fmt.Errorf("risk verdict validation: %w", ErrInvalidRiskLabel)
	}

	if !v.Severity.IsValid() {
		return fmt.Errorf("risk verdict validation: invalid severity %q", v.Severity)
	}

	if v.ConfidenceScore < 0.0 || v.ConfidenceScore > 1.0 {
		return fmt.Errorf("risk verdict validation: confidence score %v outside [0,1]", v.ConfidenceScore)
	}

	return nil
}

// Report Models

// DetectedVariant is the report-level view of one resolved allele.
type DetectedVariant struct {
	RSID                 string `json:"rsid"`
	Gene                 string `json:"gene"`
	StarAllele           string `json:"star_allele"`
	Zygosity             string `json:"zygosity"`
	ClinicalSignificance string `json:"clinical_significance"`
}

// RiskAssessment is the report section carrying the verdict headline.
type RiskAssessment struct {
	RiskLabel       RiskLabel `json:"risk_label"`
	ConfidenceScore float64   `json:"confidence_score"`
	Severity        Severity  `json:"severity"`
}

// PharmacogenomicProfile is the report section describing the genetic basis
// of the verdict.
type PharmacogenomicProfile struct {
	PrimaryGene      string            `json:"primary_gene"`
	Diplotype        string            `json:"diplotype"`
	Phenotype        PhenotypeCode     `json:"phenotype"`
	DetectedVariants []DetectedVariant `json:"detected_variants"`
}

// ClinicalRecommendation is the report section with prescribing guidance.
type ClinicalRecommendation struct {
	Action             string   `json:"action"`
	DoseAdjustment     string   `json:"dose_adjustment"`
	AlternativeDrugs   []string `json:"alternative_drugs"`
	MonitoringRequired bool     `json:"monitoring_required"`
	GuidelineReference string   `json:"guideline_ref"`
}

// QualityMetrics is the report section quantifying how trustworthy the
// analysis inputs were. Degradations surface here rather than as failures.
type QualityMetrics struct {
	// ParsingSuccess is the ratio of parsed to total data lines, in [0,1].
	ParsingSuccess         float64  `json:"parsing_success"`
	VariantsDetected       int      `json:"variants_detected"`
	GenesAnalyzed          []string `json:"genes_analyzed"`
	AnnotationCompleteness float64  `json:"annotation_completeness"`
	CallingConflict        bool     `json:"calling_conflict,omitempty"`
	PresumedWildType       bool     `json:"presumed_wild_type,omitempty"`
	ExplanationDegraded    bool     `json:"explanation_degraded,omitempty"`
}

// AnalysisReport is the canonical output record for one (patient, drug)
// analysis. Reports are created fresh per request and never mutated after
// assembly; concurrent analyses share no report state.
type AnalysisReport struct {
	ReportID  string    `json:"report_id"`
	PatientID string    `json:"patient_id"`
	Drug      string    `json:"drug"`
	Timestamp time.Time `json:"timestamp"`

	RiskAssessment          RiskAssessment         `json:"risk_assessment"`
	PharmacogenomicProfile  PharmacogenomicProfile `json:"pharmacogenomic_profile"`
	ClinicalRecommendation  ClinicalRecommendation `json:"clinical_recommendation"`
	LLMGeneratedExplanation Explanation            `json:"llm_generated_explanation"`
	QualityMetrics          QualityMetrics         `json:"quality_metrics"`
}

// Validate ensures the assembled report honors the enumerated value sets
// before it is emitted or persisted.
func (r *AnalysisReport) Validate() error {
	if r.ReportID == "" {
		return fmt.Errorf("report validation: %w", errors.New("report ID is required"))
	}

	if r.Drug == "" {
		return fmt.Errorf("report validation: %w", errors.New("drug is required"))
	}

	if !r.RiskAssessment.RiskLabel.IsValid() {
		return fmt.Errorf("report validation: %w", ErrInvalidRiskLabel)
	}

	if !r.RiskAssessment.Severity.IsValid() {
		return fmt.Errorf("report validation: invalid severity %q", r.RiskAssessment.Severity)
	}

	if r.RiskAssessment.ConfidenceScore < 0.0 || r.RiskAssessment.ConfidenceScore > 1.0 {
		return fmt.Errorf("report validation: confidence score %v outside [0,1]", r.RiskAssessment.ConfidenceScore)
	}

	if !r.PharmacogenomicProfile.Phenotype.IsValid() {
		return fmt.Errorf("report validation: %w", ErrInvalidPhenotype)
	}

	return nil
}
