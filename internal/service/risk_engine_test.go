package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
)

func TestRiskEngineAssess(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	library := reference.NewLibrary(logger)
	engine := NewRiskEngine(logger, library)

	t.Run("Codeine_Poor_Metabolizer_Is_Toxic", func(t *testing.T) {
		call := domain.PhenotypeCall{
			Gene:      domain.CYP2D6,
			Phenotype: domain.PM,
			Method:    domain.METHOD_LOOKUP,
		}

		verdict := engine.Assess("CODEINE", call)
		assert.Equal(t, "CODEINE", verdict.Drug)
		assert.Equal(t, domain.CYP2D6, verdict.PrimaryGene)
		assert.Equal(t, domain.TOXIC, verdict.RiskLabel)
		assert.Equal(t, domain.SEVERITY_HIGH, verdict.Severity)
		assert.InDelta(t, domain.ConfidenceLookup, verdict.ConfidenceScore, 1e-9)
		assert.True(t, verdict.MonitoringRequired)
		assert.Contains(t, verdict.AlternativeDrugs, "morphine")
		assert.Contains(t, verdict.GuidelineReference, "CYP2D6")
		require.NoError(t, verdict.Validate())
	})

	t.Run("Warfarin_Normal_Metabolizer_Is_Safe", func(t *testing.T) {
		call := domain.PhenotypeCall{
			Gene:      domain.CYP2C9,
			Phenotype: domain.NM,
			Method:    domain.METHOD_LOOKUP,
		}

		verdict := engine.Assess("WARFARIN", call)
		assert.Equal(t, domain.SAFE, verdict.RiskLabel)
		assert.Equal(t, domain.SEVERITY_NONE, verdict.Severity)
		assert.False(t, verdict.MonitoringRequired)
	})

	t.Run("Drug_Name_Is_Normalized", func(t *testing.T) {
		call := domain.PhenotypeCall{
			Gene:      domain.CYP2D6,
			Phenotype: domain.NM,
			Method:    domain.METHOD_LOOKUP,
		}

		verdict := engine.Assess("  codeine ", call)
		assert.Equal(t, "CODEINE", verdict.Drug)
		assert.Equal(t, domain.SAFE, verdict.RiskLabel)
	})

	t.Run("Activity_Score_Method_Lowers_Confidence", func(t *testing.T) {
		score := 1.0
		call := domain.PhenotypeCall{
			Gene:          domain.CYP2D6,
			Phenotype:     domain.IM,
			ActivityScore: &score,
			Method:        domain.METHOD_ACTIVITY_SCORE,
		}

		verdict := engine.Assess("CODEINE", call)
		assert.Equal(t, domain.ADJUST_DOSAGE, verdict.RiskLabel)
		assert.InDelta(t, domain.ConfidenceActivityScore, verdict.ConfidenceScore, 1e-9)
	})

	t.Run("Unsupported_Drug_Degrades_To_Unknown", func(t *testing.T) {
		call := domain.PhenotypeCall{
			Gene:      domain.CYP2D6,
			Phenotype: domain.NM,
			Method:    domain.METHOD_LOOKUP,
		}

		verdict := engine.Assess("ASPIRIN", call)
		assert.Equal(t, "ASPIRIN", verdict.Drug)
		assert.Empty(t, verdict.PrimaryGene)
		assert.Equal(t, domain.UNKNOWN_RISK, verdict.RiskLabel)
		assert.Equal(t, domain.SEVERITY_LOW, verdict.Severity)
		assert.InDelta(t, domain.ConfidenceUnresolved, verdict.ConfidenceScore, 1e-9)
		assert.Equal(t, actionNoGuideline, verdict.RecommendedAction)
		assert.Equal(t, adjustmentStandard, verdict.DoseAdjustment)
		assert.True(t, verdict.MonitoringRequired)
		assert.Equal(t, referenceNone, verdict.GuidelineReference)
	})

	t.Run("Gene_Mismatch_Degrades_To_Unknown", func(t *testing.T) {
		call := domain.PhenotypeCall{
			Gene:      domain.CYP2C19,
			Phenotype: domain.PM,
			Method:    domain.METHOD_LOOKUP,
		}

		verdict := engine.Assess("CODEINE", call)
		assert.Equal(t, domain.UNKNOWN_RISK, verdict.RiskLabel)
		assert.Equal(t, domain.CYP2D6, verdict.PrimaryGene)
		assert.Equal(t, actionGeneMismatch, verdict.RecommendedAction)
	})

	t.Run("Unknown_Phenotype_Has_No_Rule", func(t *testing.T) {
		call := domain.PhenotypeCall{
			Gene:      domain.CYP2D6,
			Phenotype: domain.UNKNOWN_PHENOTYPE,
			Method:    domain.METHOD_UNRESOLVED,
		}

		verdict := engine.Assess("CODEINE", call)
		assert.Equal(t, domain.UNKNOWN_RISK, verdict.RiskLabel)
		assert.Equal(t, actionNoRule, verdict.RecommendedAction)
		assert.InDelta(t, domain.ConfidenceUnresolved, verdict.ConfidenceScore, 1e-9)
	})

	t.Run("Assessment_Is_Deterministic", func(t *testing.T) {
		call := domain.PhenotypeCall{
			Gene:      domain.SLCO1B1,
			Phenotype: domain.PM,
			Method:    domain.METHOD_LOOKUP,
		}

		first := engine.Assess("SIMVASTATIN", call)
		second := engine.Assess("SIMVASTATIN", call)
		assert.Equal(t, first, second)
	})
}

func TestRiskEngineCoversEveryDrug(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	library := reference.NewLibrary(logger)
	engine := NewRiskEngine(logger, library)

	for _, drug := range library.SupportedDrugs() {
		guideline, ok := library.Guideline(drug)
		require.True(t, ok)

		call := domain.PhenotypeCall{
			Gene:      guideline.PrimaryGene,
			Phenotype: domain.PM,
			Method:    domain.METHOD_LOOKUP,
		}

		verdict := engine.Assess(drug, call)
		assert.Equal(t, drug, verdict.Drug, "drug %s", drug)
		assert.NotEqual(t, domain.UNKNOWN_RISK, verdict.RiskLabel, "drug %s should have a PM rule", drug)
		assert.NotEmpty(t, verdict.RecommendedAction, "drug %s", drug)
		assert.NotEmpty(t, verdict.GuidelineReference, "drug %s", drug)
	}
}
