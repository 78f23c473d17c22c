package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
)

// AlleleMapper resolves extracted variants to star-allele designations on
// the supported gene panel. Resolution order: reference-ID lookup against
// the allele table first, embedded annotation tags second. Variants that
// match neither are recorded as unannotated, not dropped.
type AlleleMapper struct {
	logger  *logrus.Logger
	library *reference.Library
}

// NewAlleleMapper creates a new allele mapper backed by the given library.
func NewAlleleMapper(logger *logrus.Logger, library *reference.Library) *AlleleMapper {
	return &AlleleMapper{
		logger:  logger,
		library: library,
	}
}

// Map resolves each variant in input order. Homozygous-reference sites are
// wild-type observations: they resolve no allele but still count as parsed
// input for the quality metrics.
func (m *AlleleMapper) Map(variants []domain.Variant) *domain.MappingResult {
	result := &domain.MappingResult{}

	for _, v := range variants {
		if v.Zygosity == domain.HOMOZYGOUS_REFERENCE {
			continue
		}

		if def, ok := m.library.LookupAllele(v.RSID); ok {
			allele := domain.ResolvedAllele{
				Gene:                 def.Gene,
				StarAllele:           def.StarAllele,
				Zygosity:             v.Zygosity,
				Effect:               def.Effect,
				ClinicalSignificance: def.ClinicalSignificance,
				Source:               domain.SOURCE_LOOKUP,
				Variant:              v,
			}

			// The table wins over disagreeing annotation tags, but the
			// disagreement is preserved for audit instead of silently
			// overwritten.
			if annotationDisagrees(v, def) {
				allele.LowConfidence = true
				m.logger.WithFields(logrus.Fields{
					"rsid":           v.RSID,
					"annotated_gene": v.GeneTag,
					"annotated_star": v.StarTag,
					"table_gene":     def.Gene,
					"table_star":     def.StarAllele,
				}).Warn("Annotation tags disagree with allele table, keeping table resolution")
			}

			result.Resolved = append(result.Resolved, allele)
			continue
		}

		if v.GeneTag != "" && v.StarTag != "" {
			result.Resolved = append(result.Resolved, domain.ResolvedAllele{
				Gene:                 domain.Gene(v.GeneTag),
				StarAllele:           v.StarTag,
				Zygosity:             v.Zygosity,
				Effect:               domain.UNKNOWN_EFFECT,
				ClinicalSignificance: "Annotated in source file",
				Source:               domain.SOURCE_ANNOTATION,
				Variant:              v,
			})
			continue
		}

		m.logger.WithFields(logrus.Fields{
			"rsid": v.RSID,
			"pos":  v.Position,
		}).Debug("Variant matched no known allele")
		result.Unannotated = append(result.Unannotated, v)
	}

	m.logger.WithFields(logrus.Fields{
		"input":       len(variants),
		"resolved":    len(result.Resolved),
		"unannotated": len(result.Unannotated),
	}).Debug("Allele mapping complete")

	return result
}

// annotationDisagrees reports whether the variant's embedded annotation
// contradicts the lookup-table resolution on gene or star allele.
func annotationDisagrees(v domain.Variant, def reference.AlleleDefinition) bool {
	if v.GeneTag != "" && !strings.EqualFold(v.GeneTag, string(def.Gene)) {
		return true
	}
	if v.StarTag != "" && !strings.EqualFold(v.StarTag, def.StarAllele) {
		return true
	}
	return false
}
