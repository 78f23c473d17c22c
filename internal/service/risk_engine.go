package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
)

// Degraded-verdict messages used when no guideline rule can be applied.
const (
	actionNoGuideline  = "No pharmacogenomic guideline available for this drug"
	actionGeneMismatch = "Insufficient pharmacogenomic data for this drug"
	actionNoRule       = "Insufficient data"
	adjustmentStandard = "Standard clinical judgment"
	referenceNone      = "No CPIC guideline available"
)

// RiskEngine joins a phenotype call with the requested drug against the
// CPIC-style rule table to produce the clinical risk verdict. Every input
// yields a verdict: drugs or phenotypes the table cannot answer for come
// back as Unknown with low confidence, never as errors.
type RiskEngine struct {
	logger  *logrus.Logger
	library *reference.Library
}

// NewRiskEngine creates a new risk engine backed by the guideline table.
func NewRiskEngine(logger *logrus.Logger, library *reference.Library) *RiskEngine {
	return &RiskEngine{
		logger:  logger,
		library: library,
	}
}

// Assess produces the verdict for one (drug, phenotype) pair. The drug name
// is matched case-insensitively with surrounding whitespace ignored. A
// matched rule supplies the verdict fields verbatim from the table; the
// confidence score derives from how the phenotype was predicted, clamped
// low whenever the verdict itself is Unknown.
func (r *RiskEngine) Assess(drug string, call domain.PhenotypeCall) domain.RiskVerdict {
	normalized := reference.NormalizeDrug(drug)

	guideline, ok := r.library.Guideline(normalized)
	if !ok {
		r.logger.WithField("drug", normalized).Warn("No guideline for requested drug")
		return unknownVerdict(normalized, "", actionNoGuideline)
	}

	if call.Gene != guideline.PrimaryGene {
		r.logger.WithFields(logrus.Fields{
			"drug":         normalized,
			"primary_gene": guideline.PrimaryGene,
			"called_gene":  call.Gene,
		}).Warn("Phenotype gene does not match the drug's primary gene")
		return unknownVerdict(normalized, guideline.PrimaryGene, actionGeneMismatch)
	}

	rule, ok := guideline.Rules[call.Phenotype]
	if !ok {
		return unknownVerdict(normalized, guideline.PrimaryGene, actionNoRule)
	}

	confidence := call.Method.Confidence()
	if rule.RiskLabel == domain.UNKNOWN_RISK && confidence > domain.ConfidenceUnresolved {
		confidence = domain.ConfidenceUnresolved
	}

	verdict := domain.RiskVerdict{
		Drug:               normalized,
		PrimaryGene:        guideline.PrimaryGene,
		RiskLabel:          rule.RiskLabel,
		Severity:           rule.Severity,
		ConfidenceScore:    confidence,
		RecommendedAction:  rule.Action,
		DoseAdjustment:     rule.DoseAdjustment,
		AlternativeDrugs:   rule.AlternativeDrugs,
		MonitoringRequired: rule.MonitoringRequired,
		GuidelineReference: rule.GuidelineReference,
	}

	r.logger.WithFields(logrus.Fields{
		"drug":       normalized,
		"gene":       verdict.PrimaryGene,
		"phenotype":  call.Phenotype,
		"risk_label": verdict.RiskLabel,
		"severity":   verdict.Severity,
		"confidence": verdict.ConfidenceScore,
	}).Info("Risk verdict resolved")

	return verdict
}

// unknownVerdict is the degraded verdict shape for requests the rule table
// cannot answer. Monitoring is always required when the system cannot rule
// risk out.
func unknownVerdict(drug string, gene domain.Gene, action string) domain.RiskVerdict {
	return domain.RiskVerdict{
		Drug:               drug,
		PrimaryGene:        gene,
		RiskLabel:          domain.UNKNOWN_RISK,
		Severity:           domain.SEVERITY_LOW,
		ConfidenceScore:    domain.ConfidenceUnresolved,
		RecommendedAction:  action,
		DoseAdjustment:     adjustmentStandard,
		MonitoringRequired: true,
		GuidelineReference: referenceNone,
	}
}
