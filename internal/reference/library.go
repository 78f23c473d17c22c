package reference

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

// Library is the immutable set of reference tables the pipeline consults.
// All lookups are read-only after construction, so a single Library is safe
// for concurrent use across analyses.
type Library struct {
	logger     *logrus.Logger
	alleles    map[string]AlleleDefinition
	diplotypes map[domain.Gene]GeneDiplotypeTable
	guidelines map[string]DrugGuideline
	checksum   string
}

// NewLibrary creates a Library backed by the compiled-in reference tables.
func NewLibrary(logger *logrus.Logger) *Library {
	lib := &Library{
		logger:     logger,
		alleles:    builtinAlleles(),
		diplotypes: builtinDiplotypes(),
		guidelines: builtinGuidelines(),
	}
	lib.checksum = computeChecksum(lib.alleles, lib.diplotypes, lib.guidelines)

	logger.WithFields(logrus.Fields{
		"alleles":    len(lib.alleles),
		"genes":      len(lib.diplotypes),
		"guidelines": len(lib.guidelines),
		"checksum":   lib.checksum[:12],
	}).Info("Initialized reference library")

	return lib
}

// LookupAllele resolves a reference ID to its allele definition. The table
// is keyed by lowercase rs numbers; an exact-case probe is kept as a
// fallback for curated overrides with unconventional IDs.
func (l *Library) LookupAllele(rsid string) (AlleleDefinition, bool) {
	if def, ok := l.alleles[strings.ToLower(rsid)]; ok {
		return def, true
	}

	def, ok := l.alleles[rsid]
	return def, ok
}

// LookupDiplotype resolves a diplotype string for a gene to its phenotype.
// The probe is tried as given and with the allele slots swapped, so curated
// tables written in either slot order resolve identically.
func (l *Library) LookupDiplotype(gene domain.Gene, diplotype string) (domain.PhenotypeCode, bool) {
	table, ok := l.diplotypes[gene]
	if !ok {
		return domain.UNKNOWN_PHENOTYPE, false
	}

	if phenotype, ok := table.Phenotypes[diplotype]; ok {
		return phenotype, true
	}

	if a, b, found := strings.Cut(diplotype, "/"); found {
		if phenotype, ok := table.Phenotypes[b+"/"+a]; ok {
			return phenotype, true
		}
	}

	return domain.UNKNOWN_PHENOTYPE, false
}

// Defaults returns the diplotype and phenotype assumed for a gene when no
// variant was detected.
func (l *Library) Defaults(gene domain.Gene) (string, domain.PhenotypeCode) {
	table, ok := l.diplotypes[gene]
	if !ok {
		return domain.WildTypeAllele + "/" + domain.WildTypeAllele, domain.NM
	}

	return table.DefaultDiplotype, table.DefaultPhenotype
}

// Guideline returns the full guideline entry for a drug. Drug names are
// matched case-insensitively with surrounding whitespace ignored.
func (l *Library) Guideline(drug string) (DrugGuideline, bool) {
	g, ok := l.guidelines[NormalizeDrug(drug)]
	return g, ok
}

// DrugRule returns the rule row for a (drug, phenotype) combination.
func (l *Library) DrugRule(drug string, phenotype domain.PhenotypeCode) (DrugRule, bool) {
	g, ok := l.Guideline(drug)
	if !ok {
		return DrugRule{}, false
	}

	rule, ok := g.Rules[phenotype]
	return rule, ok
}

// PrimaryGene returns the pharmacogene a drug's guideline is keyed to.
func (l *Library) PrimaryGene(drug string) (domain.Gene, bool) {
	g, ok := l.Guideline(drug)
	if !ok {
		return "", false
	}

	return g.PrimaryGene, true
}

// SupportedDrugs returns the guideline drug names in sorted order.
func (l *Library) SupportedDrugs() []string {
	drugs := make([]string, 0, len(l.guidelines))
	for drug := range l.guidelines {
		drugs = append(drugs, drug)
	}
	sort.Strings(drugs)

	return drugs
}

// Checksum returns a stable digest of the loaded tables. Cache keys include
// it so replacing the reference data invalidates previously cached reports.
func (l *Library) Checksum() string {
	return l.checksum
}

// NormalizeDrug canonicalizes a drug name for table lookups.
func NormalizeDrug(drug string) string {
	return strings.ToUpper(strings.TrimSpace(drug))
}

// computeChecksum digests the three tables in deterministic order.
func computeChecksum(alleles map[string]AlleleDefinition, diplotypes map[domain.Gene]GeneDiplotypeTable, guidelines map[string]DrugGuideline) string {
	h := sha256.New()

	rsids := make([]string, 0, len(alleles))
	for rsid := range alleles {
		rsids = append(rsids, rsid)
	}
	sort.Strings(rsids)
	for _, rsid := range rsids {
		def := alleles[rsid]
		fmt.Fprintf(h, "a|%s|%s|%s|%s\n", rsid, def.Gene, def.StarAllele, def.Effect)
	}

	for _, gene := range domain.SupportedGenes() {
		table, ok := diplotypes[gene]
		if !ok {
			continue
		}

		keys := make([]string, 0, len(table.Phenotypes))
		for k := range table.Phenotypes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(h, "d|%s|%s|%s\n", gene, table.DefaultDiplotype, table.DefaultPhenotype)
		for _, k := range keys {
			fmt.Fprintf(h, "d|%s|%s|%s\n", gene, k, table.Phenotypes[k])
		}
	}

	drugs := make([]string, 0, len(guidelines))
	for drug := range guidelines {
		drugs = append(drugs, drug)
	}
	sort.Strings(drugs)
	for _, drug := range drugs {
		g := guidelines[drug]
		fmt.Fprintf(h, "g|%s|%s|%s\n", drug, g.PrimaryGene, g.DrugType)

		phenotypes := make([]string, 0, len(g.Rules))
		for p := range g.Rules {
			phenotypes = append(phenotypes, string(p))
		}
		sort.Strings(phenotypes)
		for _, p := range phenotypes {
			rule := g.Rules[domain.PhenotypeCode(p)]
			fmt.Fprintf(h, "g|%s|%s|%s|%s|%s|%t\n", drug, p, rule.RiskLabel, rule.Severity, rule.Action, rule.MonitoringRequired)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
