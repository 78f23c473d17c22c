package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

// DefaultExplanationTimeout bounds the single blocking call the assembler
// makes to the explanation service.
const DefaultExplanationTimeout = 12 * time.Second

// ReportAssembler merges the pipeline outputs for one drug into the
// canonical analysis report. Its only blocking collaborator is the
// explanation service, invoked under a bounded timeout; explanation failure
// degrades the report instead of failing it.
type ReportAssembler struct {
	logger             *logrus.Logger
	explainer          domain.ExplanationService
	explanationTimeout time.Duration
}

// NewReportAssembler creates a new report assembler. A nil explainer is
// legal: reports are then assembled without narrative text and flagged
// degraded.
func NewReportAssembler(logger *logrus.Logger, explainer domain.ExplanationService, explanationTimeout time.Duration) *ReportAssembler {
	if explanationTimeout <= 0 {
		explanationTimeout = DefaultExplanationTimeout
	}

	return &ReportAssembler{
		logger:             logger,
		explainer:          explainer,
		explanationTimeout: explanationTimeout,
	}
}

// AssembleParams carries one drug's pipeline outputs into report assembly.
type AssembleParams struct {
	PatientID string
	Verdict   domain.RiskVerdict
	Phenotype domain.PhenotypeCall
	Call      domain.DiplotypeCall
	Mapping   *domain.MappingResult
	Stats     domain.ParseStats
}

// Assemble builds and validates the report for one (patient, drug) pair.
// Reports are created fresh per call and never mutated after assembly.
func (a *ReportAssembler) Assemble(ctx context.Context, params AssembleParams) (*domain.AnalysisReport, error) {
	verdict := params.Verdict

	patientID := params.PatientID
	if patientID == "" {
		patientID = defaultPatientID()
	}

	report := &domain.AnalysisReport{
		ReportID:  uuid.New().String(),
		PatientID: patientID,
		Drug:      verdict.Drug,
		Timestamp: time.Now().UTC(),
		RiskAssessment: domain.RiskAssessment{
			RiskLabel:       verdict.RiskLabel,
			ConfidenceScore: verdict.ConfidenceScore,
			Severity:        verdict.Severity,
		},
		PharmacogenomicProfile: a.buildProfile(params),
		ClinicalRecommendation: domain.ClinicalRecommendation{
			Action:             verdict.RecommendedAction,
			DoseAdjustment:     verdict.DoseAdjustment,
			AlternativeDrugs:   alternativesOrEmpty(verdict.AlternativeDrugs),
			MonitoringRequired: verdict.MonitoringRequired,
			GuidelineReference: verdict.GuidelineReference,
		},
		QualityMetrics: a.buildQualityMetrics(params),
	}

	a.attachExplanation(ctx, report, params)

	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("assembling report for %s: %w", verdict.Drug, err)
	}

	a.logger.WithFields(logrus.Fields{
		"report_id":  report.ReportID,
		"patient_id": report.PatientID,
		"drug":       report.Drug,
		"risk_label": report.RiskAssessment.RiskLabel,
		"confidence": report.RiskAssessment.ConfidenceScore,
	}).Info("Report assembled")

	return report, nil
}

// buildProfile renders the genetic basis of the verdict. The profile is
// scoped to the drug's primary gene; an unsupported drug has no gene and
// therefore an empty profile apart from the phenotype placeholder.
func (a *ReportAssembler) buildProfile(params AssembleParams) domain.PharmacogenomicProfile {
	profile := domain.PharmacogenomicProfile{
		PrimaryGene:      string(params.Verdict.PrimaryGene),
		Phenotype:        params.Phenotype.Phenotype,
		DetectedVariants: []domain.DetectedVariant{},
	}

	if profile.Phenotype == "" {
		profile.Phenotype = domain.UNKNOWN_PHENOTYPE
	}

	if params.Verdict.PrimaryGene == "" {
		return profile
	}

	profile.Diplotype = params.Call.Diplotype.String()

	for _, allele := range params.Mapping.AllelesForGene(params.Verdict.PrimaryGene) {
		profile.DetectedVariants = append(profile.DetectedVariants, domain.DetectedVariant{
			RSID:                 allele.Variant.RSID,
			Gene:                 string(allele.Gene),
			StarAllele:           allele.StarAllele,
			Zygosity:             string(allele.Zygosity),
			ClinicalSignificance: allele.ClinicalSignificance,
		})
	}

	return profile
}

// buildQualityMetrics quantifies how trustworthy the analysis inputs were.
// Annotation completeness counts resolved alleles against the variants that
// carried variant evidence; wild-type observations need no annotation.
func (a *ReportAssembler) buildQualityMetrics(params AssembleParams) domain.QualityMetrics {
	resolved := len(params.Mapping.Resolved)
	unannotated := len(params.Mapping.Unannotated)

	completeness := 1.0
	if resolved+unannotated > 0 {
		completeness = float64(resolved) / float64(resolved+unannotated)
	}

	return domain.QualityMetrics{
		ParsingSuccess:         params.Stats.SuccessRatio(),
		VariantsDetected:       resolved + unannotated,
		GenesAnalyzed:          genesAnalyzed(params),
		AnnotationCompleteness: completeness,
		CallingConflict:        params.Call.Conflict,
		PresumedWildType:       params.Call.PresumedWildType,
	}
}

// genesAnalyzed is the union of genes seen during extraction and genes with
// resolved alleles, in stable panel order. A gene observed only at
// wild-type sites still counts as analyzed.
func genesAnalyzed(params AssembleParams) []string {
	seen := make(map[string]bool)
	for _, g := range params.Stats.GenesSeen {
		seen[g] = true
	}
	for _, g := range params.Mapping.GenesResolved() {
		seen[string(g)] = true
	}

	genes := make([]string, 0, len(seen))
	for _, g := range domain.SupportedGenes() {
		if seen[string(g)] {
			genes = append(genes, string(g))
		}
	}
	return genes
}

// attachExplanation invokes the explanation service under the bounded
// timeout and attaches its narrative. Failure or empty output sets the
// degraded flag; it never fails assembly.
func (a *ReportAssembler) attachExplanation(ctx context.Context, report *domain.AnalysisReport, params AssembleParams) {
	if a.explainer == nil {
		report.QualityMetrics.ExplanationDegraded = true
		return
	}

	explainCtx, cancel := context.WithTimeout(ctx, a.explanationTimeout)
	defer cancel()

	req := &domain.ExplanationRequest{
		Drug:          report.Drug,
		Gene:          params.Verdict.PrimaryGene,
		Diplotype:     report.PharmacogenomicProfile.Diplotype,
		Phenotype:     report.PharmacogenomicProfile.Phenotype,
		RiskLabel:     params.Verdict.RiskLabel,
		Severity:      params.Verdict.Severity,
		Action:        params.Verdict.RecommendedAction,
		ActivityScore: params.Phenotype.ActivityScore,
		Variants:      formatVariantSummary(params.Mapping.AllelesForGene(params.Verdict.PrimaryGene)),
	}

	explanation, err := a.explainer.Explain(explainCtx, req)
	if err != nil || explanation.IsEmpty() {
		if err != nil {
			a.logger.WithError(err).WithField("drug", report.Drug).Warn("Explanation service failed, emitting report without narrative")
		}
		report.QualityMetrics.ExplanationDegraded = true
		return
	}

	report.LLMGeneratedExplanation = *explanation
}

// formatVariantSummary renders resolved alleles as a compact human-readable
// list for the explanation prompt.
func formatVariantSummary(alleles []domain.ResolvedAllele) string {
	if len(alleles) == 0 {
		return "no variants detected"
	}

	parts := make([]string, 0, len(alleles))
	for _, a := range alleles {
		parts = append(parts, fmt.Sprintf("%s (%s, %s, %s)", a.Variant.RSID, a.StarAllele, a.Zygosity, a.Effect))
	}
	return strings.Join(parts, "; ")
}

// defaultPatientID synthesizes an anonymous patient identifier for requests
// that supply none.
func defaultPatientID() string {
	return "PATIENT_" + strings.ToUpper(uuid.New().String()[:8])
}

// alternativesOrEmpty keeps the alternatives list a JSON array, never null.
func alternativesOrEmpty(drugs []string) []string {
	if drugs == nil {
		return []string{}
	}
	return drugs
}
