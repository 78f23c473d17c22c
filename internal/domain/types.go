// Package domain contains core business entities and types for pharmacogenomic
// risk assessment based on CPIC (Clinical Pharmacogenetics Implementation
// Consortium) guidelines.
//
// Reference: Caudle et al. (2017) Standardizing terms for clinical
// pharmacogenetic test results: consensus terms from the Clinical
// Pharmacogenetics Implementation Consortium (CPIC).
// Genet Med. 19(2):215-223. doi: 10.1038/gim.2016.87
package domain

import (
	"errors"
	"fmt"
	"sort"
)

// Gene represents a pharmacogene on the supported panel. The panel is fixed:
// analyses never extend beyond these six genes.
type Gene string

const (
	CYP2D6  Gene = "CYP2D6"
	CYP2C19 Gene = "CYP2C19"
	CYP2C9  Gene = "CYP2C9"
	SLCO1B1 Gene = "SLCO1B1"
	TPMT    Gene = "TPMT"
	DPYD    Gene = "DPYD"
)

// Zygosity represents the allele configuration observed at a variant site.
// Derived from the genotype call (GT) of the source record.
type Zygosity string

const (
	HOMOZYGOUS            Zygosity = "homozygous"
	HOMOZYGOUS_REFERENCE  Zygosity = "homozygous_reference"
	HETEROZYGOUS          Zygosity = "heterozygous"
	COMPOUND_HETEROZYGOUS Zygosity = "compound_heterozygous"
	UNKNOWN_ZYGOSITY      Zygosity = "unknown"
)

// AlleleEffect represents the functional consequence of a star allele on
// enzyme or transporter activity.
type AlleleEffect string

const (
	LOSS_OF_FUNCTION   AlleleEffect = "loss_of_function"
	DECREASED_FUNCTION AlleleEffect = "decreased_function"
	NORMAL_FUNCTION    AlleleEffect = "normal_function"
	INCREASED_FUNCTION AlleleEffect = "increased_function"
	UNKNOWN_EFFECT     AlleleEffect = "unknown"
)

// AlleleSource records how a ResolvedAllele was obtained: from the static
// reference lookup table, or from annotation tags embedded in the input file.
type AlleleSource string

const (
	SOURCE_LOOKUP     AlleleSource = "lookup"
	SOURCE_ANNOTATION AlleleSource = "annotation"
)

// PhenotypeCode represents the standardized metabolizer phenotype categories.
//
// Reference: CPIC term standardization, Caudle et al. (2017), Table 2
type PhenotypeCode string

const (
	PM                PhenotypeCode = "PM"
	IM                PhenotypeCode = "IM"
	NM                PhenotypeCode = "NM"
	RM                PhenotypeCode = "RM"
	URM               PhenotypeCode = "URM"
	UNKNOWN_PHENOTYPE PhenotypeCode = "Unknown"
)

// PredictionMethod represents how a phenotype was determined. RiskEngine
// derives its confidence score from this tag, so it must always be set.
type PredictionMethod string

const (
	METHOD_LOOKUP         PredictionMethod = "lookup"
	METHOD_ACTIVITY_SCORE PredictionMethod = "activity-score"
	METHOD_UNRESOLVED     PredictionMethod = "unresolved"
)

// RiskLabel represents the clinical risk categories a drug/phenotype pair
// can resolve to. These five values are the complete set; a verdict never
// carries an arbitrary string.
type RiskLabel string

const (
	SAFE          RiskLabel = "Safe"
	ADJUST_DOSAGE RiskLabel = "AdjustDosage"
	TOXIC         RiskLabel = "Toxic"
	INEFFECTIVE   RiskLabel = "Ineffective"
	UNKNOWN_RISK  RiskLabel = "Unknown"
)

// Severity represents the clinical severity grade attached to a risk verdict.
type Severity string

const (
	SEVERITY_NONE     Severity = "none"
	SEVERITY_LOW      Severity = "low"
	SEVERITY_MODERATE Severity = "moderate"
	SEVERITY_HIGH     Severity = "high"
	SEVERITY_CRITICAL Severity = "critical"
)

// WildTypeAllele is the default star allele assumed for a chromosome copy
// with no detected variant.
const WildTypeAllele = "*1"

// Confidence score policy, keyed by prediction method. The values are a
// documented policy choice; the required property is strict monotonicity
// lookup > activity-score > unresolved.
const (
	ConfidenceLookup        = 0.95
	ConfidenceActivityScore = 0.75
	ConfidenceUnresolved    = 0.30
)

// Validation errors for pharmacogenomic data integrity
var (
	ErrNotFound               = errors.New("not found")
	ErrNoVariantsFound        = errors.New("no usable variants found in input")
	ErrCallingConflict        = errors.New("diplotype calling conflict: more than two distinct alleles resolved")
	ErrUnresolvedAllele       = errors.New("variant could not be resolved to a known star allele")
	ErrUnresolvedPhenotype    = errors.New("phenotype could not be determined for diplotype")
	ErrUnsupportedDrug        = errors.New("no pharmacogenomic guideline available for drug")
	ErrUnsupportedGene        = errors.New("gene is not on the supported panel")
	ErrExplanationUnavailable = errors.New("explanation service unavailable")
	ErrInvalidVariant         = errors.New("invalid variant record")
	ErrInvalidRiskLabel       = errors.New("invalid risk label")
	ErrInvalidPhenotype       = errors.New("invalid phenotype code")
	ErrInvalidZygosity        = errors.New("invalid zygosity")
)

// SupportedGenes returns the fixed gene panel in stable order.
func SupportedGenes() []Gene {
	return []Gene{CYP2D6, CYP2C19, CYP2C9, SLCO1B1, TPMT, DPYD}
}

// IsValid validates that the gene is on the supported panel. Reference data
// and analysis requests for genes outside the panel must be rejected before
// they reach the pipeline.
func (g Gene) IsValid() bool {
	switch g {
	case CYP2D6, CYP2C19, CYP2C9, SLCO1B1, TPMT, DPYD:
		return true
	default:
		return false
	}
}

// String returns the string representation of the gene symbol.
func (g Gene) String() string {
	return string(g)
}

// IsValid validates the zygosity value.
func (z Zygosity) IsValid() bool {
	switch z {
	case HOMOZYGOUS, HOMOZYGOUS_REFERENCE, HETEROZYGOUS, COMPOUND_HETEROZYGOUS, UNKNOWN_ZYGOSITY:
		return true
	default:
		return false
	}
}

// String returns the string representation of the zygosity.
func (z Zygosity) String() string {
	return string(z)
}

// CarriesVariant reports whether the zygosity implies at least one
// non-reference allele. Homozygous-reference sites and unparseable genotype
// calls contribute no star allele to diplotype calling.
func (z Zygosity) CarriesVariant() bool {
	switch z {
	case HOMOZYGOUS, HETEROZYGOUS, COMPOUND_HETEROZYGOUS:
		return true
	default:
		return false
	}
}

// IsValid validates the allele effect value.
func (e AlleleEffect) IsValid() bool {
	switch e {
	case LOSS_OF_FUNCTION, DECREASED_FUNCTION, NORMAL_FUNCTION, INCREASED_FUNCTION, UNKNOWN_EFFECT:
		return true
	default:
		return false
	}
}

// ActivityScore returns the numeric activity contribution of one allele copy
// with this effect. Unknown effects score as normal activity so that partial
// annotation biases toward NM rather than an artificial extreme.
//
// Reference: CYP2D6 activity score framework, Gaedigk et al. (2008)
func (e AlleleEffect) ActivityScore() float64 {
	switch e {
	case LOSS_OF_FUNCTION:
		return 0.0
	case DECREASED_FUNCTION:
		return 0.5
	case NORMAL_FUNCTION:
		return 1.0
	case INCREASED_FUNCTION:
		return 1.5
	default:
		return 1.0
	}
}

// IsValid validates the allele source value.
func (s AlleleSource) IsValid() bool {
	switch s {
	case SOURCE_LOOKUP, SOURCE_ANNOTATION:
		return true
	default:
		return false
	}
}

// IsValid validates that the phenotype code is one of the standardized
// CPIC metabolizer categories.
func (p PhenotypeCode) IsValid() bool {
	switch p {
	case PM, IM, NM, RM, URM, UNKNOWN_PHENOTYPE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the phenotype code.
func (p PhenotypeCode) String() string {
	return string(p)
}

// Definition returns the human-readable description of the phenotype for
// clinical reporting and explanation prompts.
func (p PhenotypeCode) Definition() string {
	switch p {
	case PM:
		return "Poor Metabolizer - little to no enzyme activity"
	case IM:
		return "Intermediate Metabolizer - reduced enzyme activity"
	case NM:
		return "Normal Metabolizer - standard enzyme activity"
	case RM:
		return "Rapid Metabolizer - increased enzyme activity"
	case URM:
		return "Ultrarapid Metabolizer - greatly increased enzyme activity"
	default:
		return "Phenotype could not be determined from available data"
	}
}

// IsActionable reports whether the phenotype deviates from normal metabolism
// and therefore warrants clinical attention.
func (p PhenotypeCode) IsActionable() bool {
	return p != NM
}

// RiskDirection returns whether the phenotype drives drug exposure up or
// down. Used as context in explanation prompts: prodrugs and active drugs
// invert the clinical consequence of the same direction.
func (p PhenotypeCode) RiskDirection() string {
	switch p {
	case PM, IM:
		return "reduced_clearance"
	case NM:
		return "normal"
	case RM, URM:
		return "increased_clearance"
	default:
		return "unknown"
	}
}

// LogFields returns structured logging fields for audit trails.
func (p PhenotypeCode) LogFields() map[string]any {
	return map[string]any{
		"phenotype":      string(p),
		"definition":     p.Definition(),
		"is_valid":       p.IsValid(),
		"is_actionable":  p.IsActionable(),
		"risk_direction": p.RiskDirection(),
	}
}

// PhenotypeFromActivityScore maps a summed diplotype activity score to its
// phenotype band: 0.0 → PM, (0.0,1.0] → IM, (1.0,2.0] → NM, (2.0,3.0] → RM,
// above 3.0 → URM. Bands are contiguous, non-overlapping, and inclusive on
// the upper edge, so every non-negative score maps to exactly one phenotype.
func PhenotypeFromActivityScore(score float64) PhenotypeCode {
	switch {
	case score <= 0.0:
		return PM
	case score <= 1.0:
		return IM
	case score <= 2.0:
		return NM
	case score <= 3.0:
		return RM
	default:
		return URM
	}
}

// IsValid validates the prediction method tag.
func (m PredictionMethod) IsValid() bool {
	switch m {
	case METHOD_LOOKUP, METHOD_ACTIVITY_SCORE, METHOD_UNRESOLVED:
		return true
	default:
		return false
	}
}

// Confidence returns the confidence score associated with this prediction
// method. Table-lookup phenotypes are the most trustworthy, score-derived
// ones less so, and unresolved phenotypes carry only residual confidence.
func (m PredictionMethod) Confidence() float64 {
	switch m {
	case METHOD_LOOKUP:
		return ConfidenceLookup
	case METHOD_ACTIVITY_SCORE:
		return ConfidenceActivityScore
	default:
		return ConfidenceUnresolved
	}
}

// IsValid validates that the risk label is one of the five enumerated
// categories. Verdicts with invalid labels must never reach a report.
func (r RiskLabel) IsValid() bool {
	switch r {
	case SAFE, ADJUST_DOSAGE, TOXIC, INEFFECTIVE, UNKNOWN_RISK:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk label.
func (r RiskLabel) String() string {
	return string(r)
}

// RequiresClinicalAction determines if the risk label requires clinical
// follow-up before prescribing.
func (r RiskLabel) RequiresClinicalAction() bool {
	switch r {
	case SAFE:
		return false
	case ADJUST_DOSAGE, TOXIC, INEFFECTIVE:
		return true
	default:
		return true // Conservative approach for unknown risk
	}
}

// LogFields returns structured logging fields for audit trails.
func (r RiskLabel) LogFields() map[string]any {
	return map[string]any{
		"risk_label":       string(r),
		"is_valid":         r.IsValid(),
		"requires_action":  r.RequiresClinicalAction(),
		"cpic_style_label": true,
	}
}

// IsValid validates the severity grade.
func (s Severity) IsValid() bool {
	switch s {
	case SEVERITY_NONE, SEVERITY_LOW, SEVERITY_MODERATE, SEVERITY_HIGH, SEVERITY_CRITICAL:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity grade.
func (s Severity) String() string {
	return string(s)
}

// Rank returns the ordering weight of the severity grade, with none lowest.
func (s Severity) Rank() int {
	switch s {
	case SEVERITY_NONE:
		return 0
	case SEVERITY_LOW:
		return 1
	case SEVERITY_MODERATE:
		return 2
	case SEVERITY_HIGH:
		return 3
	case SEVERITY_CRITICAL:
		return 4
	default:
		return -1
	}
}

// Variant represents a single normalized variant record extracted from the
// input file. Variants are immutable once parsed: later stages read them but
// never write back.
type Variant struct {
	// RSID is the stable cross-reference identifier. When the source record
	// has no ID ("."), the extractor synthesizes "chr<CHROM>:<POS>".
	RSID       string `json:"rsid"`
	Chromosome string `json:"chrom"`
	Position   int64  `json:"pos"`
	Reference  string `json:"ref"`
	Alternate  string `json:"alt"`

	// Genotype is the raw GT call (e.g. "1/1"); empty when the record has
	// no sample column.
	Genotype string   `json:"genotype,omitempty"`
	Zygosity Zygosity `json:"zygosity,omitempty"`

	// Annotation tags embedded in the source INFO field, when present.
	GeneTag string `json:"gene_tag,omitempty"`
	StarTag string `json:"star_tag,omitempty"`
}

// Validate ensures the variant record meets the minimum requirements for
// entering the annotation pipeline.
func (v *Variant) Validate() error {
	if v.RSID == "" {
		return fmt.Errorf("variant validation: %w", errors.New("reference ID is required"))
	}

	if v.Chromosome == "" {
		return fmt.Errorf("variant validation: %w", errors.New("chromosome is required"))
	}

	if v.Position < 0 {
		return fmt.Errorf("variant validation: %w", errors.New("position must not be negative"))
	}

	if v.Zygosity != "" && !v.Zygosity.IsValid() {
		return fmt.Errorf("variant validation: %w", ErrInvalidZygosity)
	}

	return nil
}

// ResolvedAllele represents one variant successfully mapped to a star allele
// designation on a panel gene. One ResolvedAllele is produced per matched
// variant; unmatched variants are tracked separately as unannotated.
type ResolvedAllele struct {
	Gene                 Gene         `json:"gene"`
	StarAllele           string       `json:"star_allele"`
	Zygosity             Zygosity     `json:"zygosity"`
	Effect               AlleleEffect `json:"effect"`
	ClinicalSignificance string       `json:"clinical_significance,omitempty"`
	Source               AlleleSource `json:"source"`

	// LowConfidence marks resolutions where the embedded annotation and the
	// lookup table disagreed. The lookup table wins, but the disagreement is
	// preserved for audit rather than silently overwritten.
	LowConfidence bool `json:"low_confidence,omitempty"`

	// Variant is the originating record.
	Variant Variant `json:"variant"`
}

// Validate ensures the resolved allele is usable for diplotype calling.
func (a *ResolvedAllele) Validate() error {
	if !a.Gene.IsValid() {
		return fmt.Errorf("resolved allele validation: %w", ErrUnsupportedGene)
	}

	if a.StarAllele == "" {
		return fmt.Errorf("resolved allele validation: %w", errors.New("star allele is required"))
	}

	if !a.Zygosity.IsValid() {
		return fmt.Errorf("resolved allele validation: %w", ErrInvalidZygosity)
	}

	if !a.Source.IsValid() {
		return fmt.Errorf("resolved allele validation: %w", errors.New("allele source is required"))
	}

	return nil
}

// ActivityScore returns the activity contribution of one copy of this allele.
func (a *ResolvedAllele) ActivityScore() float64 {
	return a.Effect.ActivityScore()
}

// Diplotype represents the ordered pair of star alleles an individual
// carries for one gene. The slot order is canonical (lexicographic) so that
// equal diplotypes always render identically, regardless of call order.
type Diplotype struct {
	Gene    Gene   `json:"gene"`
	Allele1 string `json:"allele1"`
	Allele2 string `json:"allele2"`
}

// NewDiplotype constructs a diplotype in canonical slot order.
func NewDiplotype(gene Gene, a, b string) Diplotype {
	slots := []string{a, b}
	sort.Strings(slots)
	return Diplotype{Gene: gene, Allele1: slots[0], Allele2: slots[1]}
}

// String renders the diplotype in the conventional "allele1/allele2" form.
func (d Diplotype) String() string {
	return d.Allele1 + "/" + d.Allele2
}

// IsWildType reports whether both slots hold the default wild-type allele,
// i.e. no variant evidence contributed to the call.
func (d Diplotype) IsWildType() bool {
	return d.Allele1 == WildTypeAllele && d.Allele2 == WildTypeAllele
}

// Validate ensures the diplotype has both slots filled and is canonical.
func (d Diplotype) Validate() error {
	if !d.Gene.IsValid() {
		return fmt.Errorf("diplotype validation: %w", ErrUnsupportedGene)
	}

	if d.Allele1 == "" || d.Allele2 == "" {
		return fmt.Errorf("diplotype validation: %w", errors.New("both allele slots are required"))
	}

	if d.Allele1 > d.Allele2 {
		return fmt.Errorf("diplotype validation: %w", errors.New("allele slots are not in canonical order"))
	}

	return nil
}
