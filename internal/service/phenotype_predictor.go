package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

// PhenotypePredictor maps a diplotype call to a metabolizer phenotype.
// Direct table lookup always takes precedence; the activity-score model is
// the fallback for diplotypes absent from the table.
type PhenotypePredictor struct {
	logger *logrus.Logger
}

// NewPhenotypePredictor creates a new phenotype predictor.
func NewPhenotypePredictor(logger *logrus.Logger) *PhenotypePredictor {
	return &PhenotypePredictor{logger: logger}
}

// Predict resolves the phenotype for one gene's diplotype call. The gene's
// resolved alleles supply the per-allele activity contributions for the
// score fallback. Resolution order:
//
//  1. table hit carried on the call → method lookup;
//  2. summed activity score banded via PhenotypeFromActivityScore →
//     method activity-score;
//  3. an allele with no known activity score and no table hit, or a
//     calling conflict → phenotype Unknown, method unresolved.
func (p *PhenotypePredictor) Predict(call domain.DiplotypeCall, alleles []domain.ResolvedAllele) domain.PhenotypeCall {
	gene := call.Diplotype.Gene

	if call.Conflict {
		return domain.PhenotypeCall{
			Gene:      gene,
			Phenotype: domain.UNKNOWN_PHENOTYPE,
			Method:    domain.METHOD_UNRESOLVED,
		}
	}

	if call.LookupPhenotype != "" && call.LookupPhenotype != domain.UNKNOWN_PHENOTYPE {
		return domain.PhenotypeCall{
			Gene:      gene,
			Phenotype: call.LookupPhenotype,
			Method:    domain.METHOD_LOOKUP,
		}
	}

	effects := effectsByStarAllele(alleles)

	sum := 0.0
	for _, slot := range []string{call.Diplotype.Allele1, call.Diplotype.Allele2} {
		score, known := slotActivityScore(slot, effects)
		if !known {
			p.logger.WithFields(logrus.Fields{
				"gene":   gene,
				"allele": slot,
			}).Debug("Allele has no known activity score")

			return domain.PhenotypeCall{
				Gene:      gene,
				Phenotype: domain.UNKNOWN_PHENOTYPE,
				Method:    domain.METHOD_UNRESOLVED,
			}
		}
		sum += score
	}

	return domain.PhenotypeCall{
		Gene:          gene,
		Phenotype:     domain.PhenotypeFromActivityScore(sum),
		ActivityScore: &sum,
		Method:        domain.METHOD_ACTIVITY_SCORE,
	}
}

// PredictAll resolves the phenotype for every called gene.
func (p *PhenotypePredictor) PredictAll(calls map[domain.Gene]domain.DiplotypeCall, mapping *domain.MappingResult) map[domain.Gene]domain.PhenotypeCall {
	out := make(map[domain.Gene]domain.PhenotypeCall, len(calls))
	for gene, call := range calls {
		out[gene] = p.Predict(call, mapping.AllelesForGene(gene))
	}
	return out
}

// slotActivityScore returns the activity contribution of one diplotype
// slot. The wild-type allele contributes 1.0; resolved alleles contribute
// their effect's score. Annotation-sourced alleles carry an unknown effect
// and therefore have no known score.
func slotActivityScore(slot string, effects map[string]domain.AlleleEffect) (float64, bool) {
	if slot == domain.WildTypeAllele {
		return 1.0, true
	}

	effect, ok := effects[slot]
	if !ok || effect == domain.UNKNOWN_EFFECT {
		return 0, false
	}

	return effect.ActivityScore(), true
}

// effectsByStarAllele indexes the resolved alleles' effects by designator,
// preferring a known effect when the same designator resolved twice.
func effectsByStarAllele(alleles []domain.ResolvedAllele) map[string]domain.AlleleEffect {
	effects := make(map[string]domain.AlleleEffect, len(alleles))
	for _, a := range alleles {
		if cur, ok := effects[a.StarAllele]; ok && cur != domain.UNKNOWN_EFFECT {
			continue
		}
		effects[a.StarAllele] = a.Effect
	}
	return effects
}
