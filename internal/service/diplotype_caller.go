package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
)

// DiplotypeCaller combines the resolved alleles of each gene into exactly
// one diplotype per gene, applying zygosity and default-allele rules.
type DiplotypeCaller struct {
	logger  *logrus.Logger
	library *reference.Library
}

// NewDiplotypeCaller creates a new diplotype caller backed by the library's
// per-gene defaults and diplotype tables.
func NewDiplotypeCaller(logger *logrus.Logger, library *reference.Library) *DiplotypeCaller {
	return &DiplotypeCaller{
		logger:  logger,
		library: library,
	}
}

// Call produces one gene's diplotype call from its resolved alleles.
//
// Zero alleles yield the gene's default wild-type diplotype, flagged as
// presumed-normal rather than unknown. One allele pairs with itself when
// homozygous and with the wild-type allele otherwise. Two distinct alleles
// pair directly in canonical order. More than two distinct star alleles is
// more variants than a diploid genome allows: the call is flagged as a
// conflict and returned together with ErrCallingConflict so the condition
// is surfaced, not guessed away; downstream stages mark the gene unknown.
func (c *DiplotypeCaller) Call(gene domain.Gene, alleles []domain.ResolvedAllele) (domain.DiplotypeCall, error) {
	if len(alleles) == 0 {
		defDiplotype, defPhenotype := c.library.Defaults(gene)
		a1, a2, _ := strings.Cut(defDiplotype, "/")
		return domain.DiplotypeCall{
			Diplotype:        domain.NewDiplotype(gene, a1, a2),
			PresumedWildType: true,
			LookupPhenotype:  defPhenotype,
		}, nil
	}

	distinct := distinctStarAlleles(alleles)

	if len(distinct) > 2 {
		c.logger.WithFields(logrus.Fields{
			"gene":    gene,
			"alleles": distinct,
		}).Warn("More distinct resolved alleles than a diploid genome allows")

		return domain.DiplotypeCall{
			Diplotype:       domain.NewDiplotype(gene, distinct[0], distinct[1]),
			Conflict:        true,
			LookupPhenotype: domain.UNKNOWN_PHENOTYPE,
		}, fmt.Errorf("calling diplotype for %s: %w", gene, domain.ErrCallingConflict)
	}

	var diplotype domain.Diplotype
	switch {
	case len(distinct) == 2:
		diplotype = domain.NewDiplotype(gene, distinct[0], distinct[1])
	case hasHomozygous(alleles):
		diplotype = domain.NewDiplotype(gene, distinct[0], distinct[0])
	default:
		diplotype = domain.NewDiplotype(gene, domain.WildTypeAllele, distinct[0])
	}

	call := domain.DiplotypeCall{
		Diplotype:       diplotype,
		LookupPhenotype: domain.UNKNOWN_PHENOTYPE,
	}
	if code, ok := c.library.LookupDiplotype(gene, diplotype.String()); ok {
		call.LookupPhenotype = code
	}

	return call, nil
}

// CallAll produces one call per panel gene. Genes without resolved alleles
// receive their default wild-type call. Conflicts are absorbed into the
// per-gene flags; they never abort the other genes.
func (c *DiplotypeCaller) CallAll(mapping *domain.MappingResult) map[domain.Gene]domain.DiplotypeCall {
	calls := make(map[domain.Gene]domain.DiplotypeCall, len(domain.SupportedGenes()))

	for _, gene := range domain.SupportedGenes() {
		// A conflict error is already reflected in the call's flags.
		call, _ := c.Call(gene, mapping.AllelesForGene(gene))
		calls[gene] = call
	}

	return calls
}

// distinctStarAlleles returns the sorted set of unique star alleles across
// the resolved list. A homozygous allele contributes its designator once.
func distinctStarAlleles(alleles []domain.ResolvedAllele) []string {
	seen := make(map[string]bool, len(alleles))
	var out []string
	for _, a := range alleles {
		if !seen[a.StarAllele] {
			seen[a.StarAllele] = true
			out = append(out, a.StarAllele)
		}
	}
	sort.Strings(out)
	return out
}

// hasHomozygous reports whether any resolved allele carries a homozygous
// genotype call.
func hasHomozygous(alleles []domain.ResolvedAllele) bool {
	for _, a := range alleles {
		if a.Zygosity == domain.HOMOZYGOUS {
			return true
		}
	}
	return false
}
