// Package reference holds the static pharmacogenomic reference tables: known
// star-allele definitions, per-gene diplotype-to-phenotype maps, and the
// CPIC-style drug guideline rules. Tables are compiled in and may be replaced
// from a data directory at startup; once a Library is constructed its content
// never changes.
package reference

import (
	"fmt"

	"github.com/pharmguard-server/internal/domain"
)

// AlleleDefinition maps one reference ID (rs number) to a star allele on a
// panel gene, together with its functional effect.
type AlleleDefinition struct {
	RSID                 string              `json:"rsid"`
	Gene                 domain.Gene         `json:"gene"`
	StarAllele           string              `json:"star_allele"`
	Effect               domain.AlleleEffect `json:"effect"`
	ClinicalSignificance string              `json:"clinical_significance"`
}

// Validate checks the definition against the enumerated value sets.
func (d *AlleleDefinition) Validate() error {
	if d.RSID == "" {
		return fmt.Errorf("allele definition validation: rsid is required")
	}

	if !d.Gene.IsValid() {
		return fmt.Errorf("allele definition validation for %s: %w", d.RSID, domain.ErrUnsupportedGene)
	}

	if d.StarAllele == "" {
		return fmt.Errorf("allele definition validation for %s: star allele is required", d.RSID)
	}

	if !d.Effect.IsValid() {
		return fmt.Errorf("allele definition validation for %s: invalid effect %q", d.RSID, d.Effect)
	}

	return nil
}

// GeneDiplotypeTable holds the direct diplotype-to-phenotype assignments for
// one gene, plus the defaults used when no variant is detected. Keys are
// canonical "allele1/allele2" strings in lexicographic slot order.
type GeneDiplotypeTable struct {
	Gene             domain.Gene                     `json:"gene"`
	Phenotypes       map[string]domain.PhenotypeCode `json:"diplotype_to_phenotype"`
	DefaultDiplotype string                          `json:"default_no_variant"`
	DefaultPhenotype domain.PhenotypeCode            `json:"default_phenotype"`
}

// Validate checks the table against the enumerated value sets.
func (t *GeneDiplotypeTable) Validate() error {
	if !t.Gene.IsValid() {
		return fmt.Errorf("diplotype table validation: %w", domain.ErrUnsupportedGene)
	}

	if t.DefaultDiplotype == "" {
		return fmt.Errorf("diplotype table validation for %s: default diplotype is required", t.Gene)
	}

	if !t.DefaultPhenotype.IsValid() {
		return fmt.Errorf("diplotype table validation for %s: invalid default phenotype %q", t.Gene, t.DefaultPhenotype)
	}

	for diplotype, phenotype := range t.Phenotypes {
		if !phenotype.IsValid() {
			return fmt.Errorf("diplotype table validation for %s %s: invalid phenotype %q", t.Gene, diplotype, phenotype)
		}
	}

	return nil
}

// DrugRule is one row of the guideline table: the verdict fields for a
// specific (drug, phenotype) combination.
type DrugRule struct {
	RiskLabel          domain.RiskLabel `json:"risk_label"`
	Severity           domain.Severity  `json:"severity"`
	Action             string           `json:"action"`
	DoseAdjustment     string           `json:"dose_adjustment"`
	AlternativeDrugs   []string         `json:"alternative_drugs"`
	MonitoringRequired bool             `json:"monitoring_required"`
	GuidelineReference string           `json:"guideline_ref"`
}

// Validate checks the rule against the enumerated value sets.
func (r *DrugRule) Validate() error {
	if !r.RiskLabel.IsValid() {
		return fmt.Errorf("drug rule validation: %w", domain.ErrInvalidRiskLabel)
	}

	if !r.Severity.IsValid() {
		return fmt.Errorf("drug rule validation: invalid severity %q", r.Severity)
	}

	if r.Action == "" {
		return fmt.Errorf("drug rule validation: action is required")
	}

	return nil
}

// DrugGuideline groups the rules for one drug together with the drug's
// pharmacogenomic metadata.
type DrugGuideline struct {
	Drug        string                            `json:"drug"`
	PrimaryGene domain.Gene                       `json:"primary_gene"`
	DrugType    string                            `json:"drug_type"` // "prodrug" or "active"
	Rules       map[domain.PhenotypeCode]DrugRule `json:"phenotype_rules"`
}

// Validate checks the guideline and all of its rules.
func (g *DrugGuideline) Validate() error {
	if g.Drug == "" {
		return fmt.Errorf("guideline validation: drug name is required")
	}

	if !g.PrimaryGene.IsValid() {
		return fmt.Errorf("guideline validation for %s: %w", g.Drug, domain.ErrUnsupportedGene)
	}

	if g.DrugType != "prodrug" && g.DrugType != "active" {
		return fmt.Errorf("guideline validation for %s: invalid drug type %q", g.Drug, g.DrugType)
	}

	for phenotype, rule := range g.Rules {
		if !phenotype.IsValid() {
			return fmt.Errorf("guideline validation for %s: invalid phenotype key %q", g.Drug, phenotype)
		}

		if err := rule.Validate(); err != nil {
			return fmt.Errorf("guideline validation for %s %s: %w", g.Drug, phenotype, err)
		}
	}

	return nil
}
