package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
)

// DefaultMaxConcurrentDrugs bounds the per-request fan-out when one sample
// is analyzed against multiple drugs.
const DefaultMaxConcurrentDrugs = 4

// Analyzer orchestrates the full pipeline: extraction, allele mapping,
// diplotype calling, phenotype prediction, risk scoring and report
// assembly. Stages share no mutable state; the static tables behind them
// are read-only after startup.
type Analyzer struct {
	logger    *logrus.Logger
	library   *reference.Library
	extractor *VariantExtractor
	mapper    *AlleleMapper
	caller    *DiplotypeCaller
	predictor *PhenotypePredictor
	engine    *RiskEngine
	assembler *ReportAssembler

	// repository receives the audit trail when configured. Persistence
	// failures are logged and never fail the analysis itself.
	repository domain.AnalysisRepository

	maxConcurrentDrugs int
}

// AnalyzerConfig represents tuning for the analyzer.
type AnalyzerConfig struct {
	MaxConcurrentDrugs int
	ExplanationTimeout time.Duration
}

// NewAnalyzer creates the pipeline orchestrator. A nil explainer disables
// narrative generation; every other stage is mandatory.
func NewAnalyzer(config AnalyzerConfig, library *reference.Library, explainer domain.ExplanationService, logger *logrus.Logger) *Analyzer {
	if config.MaxConcurrentDrugs <= 0 {
		config.MaxConcurrentDrugs = DefaultMaxConcurrentDrugs
	}

	return &Analyzer{
		logger:             logger,
		library:            library,
		extractor:          NewVariantExtractor(logger),
		mapper:             NewAlleleMapper(logger, library),
		caller:             NewDiplotypeCaller(logger, library),
		predictor:          NewPhenotypePredictor(logger),
		engine:             NewRiskEngine(logger, library),
		assembler:          NewReportAssembler(logger, explainer, config.ExplanationTimeout),
		maxConcurrentDrugs: config.MaxConcurrentDrugs,
	}
}

// WithAuditTrail enables persistence of per-analysis records. Returns the
// analyzer for chaining during construction.
func (a *Analyzer) WithAuditTrail(repository domain.AnalysisRepository) *Analyzer {
	a.repository = repository
	return a
}

// AnalyzeParams parameters for a single-drug analysis.
type AnalyzeParams struct {
	PatientID  string
	VCFContent string
	Drug       string
}

// BatchParams parameters for a multi-drug analysis of one sample.
type BatchParams struct {
	PatientID  string
	VCFContent string
	Drugs      []string
}

// sampleContext is the drug-independent half of the pipeline, computed once
// per sample and shared read-only across the drugs of a batch.
type sampleContext struct {
	variants   []domain.Variant
	mapping    *domain.MappingResult
	stats      domain.ParseStats
	calls      map[domain.Gene]domain.DiplotypeCall
	phenotypes map[domain.Gene]domain.PhenotypeCall
}

// AnalyzeSample runs the complete pipeline for one (patient, drug) pair.
func (a *Analyzer) AnalyzeSample(ctx context.Context, params AnalyzeParams) (*domain.AnalysisReport, error) {
	startTime := time.Now()

	if err := validateSampleInput(params.VCFContent); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Drug) == "" {
		return nil, fmt.Errorf("invalid analysis request: %w",
			domain.NewValidationError("drug", "drug name cannot be empty", params.Drug))
	}

	a.logger.WithFields(logrus.Fields{
		"drug":          reference.NormalizeDrug(params.Drug),
		"content_bytes": len(params.VCFContent),
	}).Info("Starting analysis")

	sample, err := a.prepareSample(params.VCFContent)
	if err != nil {
		return nil, err
	}

	report, err := a.analyzeDrug(ctx, defaultedPatientID(params.PatientID), params.Drug, sample)
	if err != nil {
		return nil, err
	}

	a.recordAnalysis(ctx, report, sample)

	a.logger.WithFields(logrus.Fields{
		"report_id":       report.ReportID,
		"drug":            report.Drug,
		"risk_label":      report.RiskAssessment.RiskLabel,
		"processing_time": time.Since(startTime),
	}).Info("Analysis complete")

	return report, nil
}

// AnalyzeBatch evaluates one sample against multiple drugs. Parsing,
// mapping, calling and prediction run once; drugs fan out over a bounded
// worker pool, each producing its own report. A failing drug is logged and
// omitted from the results; only an unusable file fails the batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, params BatchParams) (*domain.AnalyzeResponse, error) {
	startTime := time.Now()

	if err := validateSampleInput(params.VCFContent); err != nil {
		return nil, err
	}
	if len(params.Drugs) == 0 {
		return nil, fmt.Errorf("invalid analysis request: %w",
			domain.NewValidationError("drugs", "at least one drug is required", params.Drugs))
	}

	a.logger.WithFields(logrus.Fields{
		"drugs":         len(params.Drugs),
		"content_bytes": len(params.VCFContent),
	}).Info("Starting batch analysis")

	sample, err := a.prepareSample(params.VCFContent)
	if err != nil {
		return nil, err
	}

	// One generated patient identifier shared by every report of the batch.
	patientID := defaultedPatientID(params.PatientID)

	slots := make([]*domain.AnalysisReport, len(params.Drugs))
	semaphore := make(chan struct{}, a.maxConcurrentDrugs)
	var wg sync.WaitGroup

	for i, drug := range params.Drugs {
		wg.Add(1)
		go func(i int, drug string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			report, err := a.analyzeDrug(ctx, patientID, drug, sample)
			if err != nil {
				a.logger.WithError(err).WithField("drug", drug).Error("Drug analysis failed")
				return
			}
			slots[i] = report
			a.recordAnalysis(ctx, report, sample)
		}(i, drug)
	}

	wg.Wait()

	reports := make([]*domain.AnalysisReport, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			reports = append(reports, r)
		}
	}

	response := &domain.AnalyzeResponse{
		Reports:        reports,
		ProcessingTime: time.Since(startTime),
		Timestamp:      time.Now().UTC(),
	}

	a.logger.WithFields(logrus.Fields{
		"drugs":           len(params.Drugs),
		"reports":         len(reports),
		"processing_time": response.ProcessingTime,
	}).Info("Batch analysis complete")

	return response, nil
}

// prepareSample runs the drug-independent pipeline stages.
func (a *Analyzer) prepareSample(content string) (*sampleContext, error) {
	variants, stats, err := a.extractor.Extract(content)
	if err != nil {
		return nil, err
	}

	mapping := a.mapper.Map(variants)
	calls := a.caller.CallAll(mapping)
	phenotypes := a.predictor.PredictAll(calls, mapping)

	return &sampleContext{
		variants:   variants,
		mapping:    mapping,
		stats:      stats,
		calls:      calls,
		phenotypes: phenotypes,
	}, nil
}

// analyzeDrug runs the drug-dependent stages against a prepared sample.
func (a *Analyzer) analyzeDrug(ctx context.Context, patientID, drug string, sample *sampleContext) (*domain.AnalysisReport, error) {
	normalized := reference.NormalizeDrug(drug)

	var phenotype domain.PhenotypeCall
	var call domain.DiplotypeCall
	if gene, ok := a.library.PrimaryGene(normalized); ok {
		phenotype = sample.phenotypes[gene]
		call = sample.calls[gene]
	} else {
		phenotype = domain.PhenotypeCall{
			Phenotype: domain.UNKNOWN_PHENOTYPE,
			Method:    domain.METHOD_UNRESOLVED,
		}
	}

	verdict := a.engine.Assess(normalized, phenotype)

	return a.assembler.Assemble(ctx, AssembleParams{
		PatientID: patientID,
		Verdict:   verdict,
		Phenotype: phenotype,
		Call:      call,
		Mapping:   sample.mapping,
		Stats:     sample.stats,
	})
}

// recordAnalysis persists the audit trail for one completed analysis. Only
// genes with resolved variant evidence are recorded; presumed wild-type
// calls carry no information worth auditing.
func (a *Analyzer) recordAnalysis(ctx context.Context, report *domain.AnalysisReport, sample *sampleContext) {
	if a.repository == nil {
		return
	}

	record := &domain.AnalysisRecord{
		PatientID: report.PatientID,
		Drug:      report.Drug,
		Variants:  sample.variants,
		Alleles:   sample.mapping.Resolved,
		CreatedAt: report.Timestamp,
	}
	for _, gene := range sample.mapping.GenesResolved() {
		call := sample.calls[gene]
		phenotype := sample.phenotypes[gene]
		record.Calls = append(record.Calls, domain.GeneCallRecord{
			Gene:          gene,
			Diplotype:     call.Diplotype.String(),
			Phenotype:     phenotype.Phenotype,
			Method:        phenotype.Method,
			ActivityScore: phenotype.ActivityScore,
			Conflict:      call.Conflict,
		})
	}

	if err := a.repository.SaveAnalysis(ctx, record); err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"patient_id": report.PatientID,
			"drug":       report.Drug,
		}).Warn("Failed to persist analysis record")
	}
}

// SupportedDrugs exposes the rule table's drug panel for discovery surfaces.
func (a *Analyzer) SupportedDrugs() []string {
	return a.library.SupportedDrugs()
}

// validateSampleInput rejects empty input before parsing starts.
func validateSampleInput(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("invalid analysis request: %w",
			domain.NewValidationError("vcf_content", "VCF content cannot be empty", ""))
	}
	return nil
}

// defaultedPatientID returns the given identifier or a fresh anonymous one.
func defaultedPatientID(patientID string) string {
	if patientID == "" {
		return defaultPatientID()
	}
	return patientID
}
