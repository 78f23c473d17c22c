package domain

import (
	"testing"
)

func TestGeneConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Gene
		expected string
	}{
		{"CYP2D6", CYP2D6, "CYP2D6"},
		{"CYP2C19", CYP2C19, "CYP2C19"},
		{"CYP2C9", CYP2C9, "CYP2C9"},
		{"SLCO1B1", SLCO1B1, "SLCO1B1"},
		{"TPMT", TPMT, "TPMT"},
		{"DPYD", DPYD, "DPYD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}

			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
		})
	}
}

func TestGeneIsValidRejectsOffPanel(t *testing.T) {
	tests := []struct {
		name  string
		value Gene
	}{
		{"Empty gene", Gene("")},
		{"Unsupported gene", Gene("CYP3A4")},
		{"Lowercase panel gene", Gene("cyp2d6")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.IsValid() {
				t.Errorf("Expected %s to be invalid", tt.value)
			}
		})
	}
}

func TestSupportedGenesOrder(t *testing.T) {
	genes := SupportedGenes()

	expected := []Gene{CYP2D6, CYP2C19, CYP2C9, SLCO1B1, TPMT, DPYD}
	if len(genes) != len(expected) {
		t.Fatalf("Expected %d genes, got %d", len(expected), len(genes))
	}

	for i, g := range expected {
		if genes[i] != g {
			t.Errorf("Expected gene %s at position %d, got %s", g, i, genes[i])
		}
	}
}

func TestZygosityConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Zygosity
		expected string
	}{
		{"Homozygous", HOMOZYGOUS, "homozygous"},
		{"Homozygous reference", HOMOZYGOUS_REFERENCE, "homozygous_reference"},
		{"Heterozygous", HETEROZYGOUS, "heterozygous"},
		{"Compound heterozygous", COMPOUND_HETEROZYGOUS, "compound_heterozygous"},
		{"Unknown", UNKNOWN_ZYGOSITY, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}

			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
		})
	}
}

func TestZygosityCarriesVariant(t *testing.T) {
	tests := []struct {
		name     string
		value    Zygosity
		expected bool
	}{
		{"Homozygous carries variant", HOMOZYGOUS, true},
		{"Heterozygous carries variant", HETEROZYGOUS, true},
		{"Compound heterozygous carries variant", COMPOUND_HETEROZYGOUS, true},
		{"Homozygous reference carries nothing", HOMOZYGOUS_REFERENCE, false},
		{"Unknown carries nothing", UNKNOWN_ZYGOSITY, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.CarriesVariant() != tt.expected {
				t.Errorf("Expected CarriesVariant() = %v for %s", tt.expected, tt.value)
			}
		})
	}
}

func TestAlleleEffectActivityScore(t *testing.T) {
	tests := []struct {
		name     string
		value    AlleleEffect
		expected float64
	}{
		{"Loss of function", LOSS_OF_FUNCTION, 0.0},
		{"Decreased function", DECREASED_FUNCTION, 0.5},
		{"Normal function", NORMAL_FUNCTION, 1.0},
		{"Increased function", INCREASED_FUNCTION, 1.5},
		{"Unknown effect scores as normal", UNKNOWN_EFFECT, 1.0},
		{"Unrecognized effect scores as normal", AlleleEffect("garbled"), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.ActivityScore(); got != tt.expected {
				t.Errorf("Expected activity score %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestPhenotypeFromActivityScore(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected PhenotypeCode
	}{
		{"Zero is poor", 0.0, PM},
		{"Negative clamps to poor", -0.5, PM},
		{"Half is intermediate", 0.5, IM},
		{"One is intermediate", 1.0, IM},
		{"Just above one is normal", 1.01, NM},
		{"One and a half is normal", 1.5, NM},
		{"Two is normal", 2.0, NM},
		{"Two and a half is rapid", 2.5, RM},
		{"Three is rapid", 3.0, RM},
		{"Above three is ultrarapid", 3.1, URM},
		{"Duplication range is ultrarapid", 4.0, URM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhenotypeFromActivityScore(tt.score); got != tt.expected {
				t.Errorf("Expected %s for score %v, got %s", tt.expected, tt.score, got)
			}
		})
	}
}

func TestPhenotypeCodeConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    PhenotypeCode
		expected string
	}{
		{"Poor metabolizer", PM, "PM"},
		{"Intermediate metabolizer", IM, "IM"},
		{"Normal metabolizer", NM, "NM"},
		{"Rapid metabolizer", RM, "RM"},
		{"Ultrarapid metabolizer", URM, "URM"},
		{"Unknown phenotype", UNKNOWN_PHENOTYPE, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}

			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}

			if tt.value.Definition() == "" {
				t.Errorf("Expected non-empty definition for %s", tt.value)
			}
		})
	}
}

func TestPhenotypeCodeIsActionable(t *testing.T) {
	tests := []struct {
		name     string
		value    PhenotypeCode
		expected bool
	}{
		{"PM is actionable", PM, true},
		{"IM is actionable", IM, true},
		{"NM is not actionable", NM, false},
		{"RM is actionable", RM, true},
		{"URM is actionable", URM, true},
		{"Unknown is actionable", UNKNOWN_PHENOTYPE, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.IsActionable() != tt.expected {
				t.Errorf("Expected IsActionable() = %v for %s", tt.expected, tt.value)
			}
		})
	}
}

func TestPhenotypeCodeRiskDirection(t *testing.T) {
	tests := []struct {
		name     string
		value    PhenotypeCode
		expected string
	}{
		{"PM reduces clearance", PM, "reduced_clearance"},
		{"IM reduces clearance", IM, "reduced_clearance"},
		{"NM is normal", NM, "normal"},
		{"RM increases clearance", RM, "increased_clearance"},
		{"URM increases clearance", URM, "increased_clearance"},
		{"Unknown direction", UNKNOWN_PHENOTYPE, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.RiskDirection(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestPhenotypeCodeLogFields(t *testing.T) {
	fields := PM.LogFields()

	if fields["phenotype"] != "PM" {
		t.Errorf("Expected phenotype field PM, got %v", fields["phenotype"])
	}

	if fields["is_actionable"] != true {
		t.Error("Expected is_actionable true for PM")
	}

	if fields["risk_direction"] != "reduced_clearance" {
		t.Errorf("Expected risk_direction reduced_clearance, got %v", fields["risk_direction"])
	}
}

func TestPredictionMethodConfidence(t *testing.T) {
	tests := []struct {
		name     string
		value    PredictionMethod
		expected float64
	}{
		{"Lookup", METHOD_LOOKUP, 0.95},
		{"Activity score", METHOD_ACTIVITY_SCORE, 0.75},
		{"Unresolved", METHOD_UNRESOLVED, 0.30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Confidence(); got != tt.expected {
				t.Errorf("Expected confidence %v, got %v", tt.expected, got)
			}
		})
	}

	// The ordering is the contract: a direct table hit always outranks a
	// score-derived call, which always outranks an unresolved one.
	if METHOD_LOOKUP.Confidence() <= METHOD_ACTIVITY_SCORE.Confidence() {
		t.Error("Expected lookup confidence to exceed activity-score confidence")
	}

	if METHOD_ACTIVITY_SCORE.Confidence() <= METHOD_UNRESOLVED.Confidence() {
		t.Error("Expected activity-score confidence to exceed unresolved confidence")
	}
}

func TestRiskLabelConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    RiskLabel
		expected string
	}{
		{"Safe", SAFE, "Safe"},
		{"Adjust dosage", ADJUST_DOSAGE, "AdjustDosage"},
		{"Toxic", TOXIC, "Toxic"},
		{"Ineffective", INEFFECTIVE, "Ineffective"},
		{"Unknown", UNKNOWN_RISK, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}

			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
		})
	}

	if RiskLabel("Dangerous").IsValid() {
		t.Error("Expected non-enumerated risk label to be invalid")
	}
}

func TestRiskLabelRequiresClinicalAction(t *testing.T) {
	tests := []struct {
		name     string
		value    RiskLabel
		expected bool
	}{
		{"Safe requires no action", SAFE, false},
		{"Adjust dosage requires action", ADJUST_DOSAGE, true},
		{"Toxic requires action", TOXIC, true},
		{"Ineffective requires action", INEFFECTIVE, true},
		{"Unknown requires action", UNKNOWN_RISK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.RequiresClinicalAction() != tt.expected {
				t.Errorf("Expected RequiresClinicalAction() = %v for %s", tt.expected, tt.value)
			}
		})
	}
}

func TestSeverityRank(t *testing.T) {
	ordered := []Severity{SEVERITY_NONE, SEVERITY_LOW, SEVERITY_MODERATE, SEVERITY_HIGH, SEVERITY_CRITICAL}

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("Expected %s to rank above %s", ordered[i], ordered[i-1])
		}
	}

	if Severity("extreme").Rank() != -1 {
		t.Errorf("Expected unrecognized severity to rank -1, got %d", Severity("extreme").Rank())
	}
}

func TestNewDiplotypeCanonicalOrder(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected string
	}{
		{"Already ordered", "*1", "*4", "*1/*4"},
		{"Reversed input", "*4", "*1", "*1/*4"},
		{"Homozygous", "*4", "*4", "*4/*4"},
		{"Wild type", "*1", "*1", "*1/*1"},
		{"Multi-digit alleles sort lexicographically", "*17", "*2", "*17/*2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiplotype(CYP2D6, tt.a, tt.b)

			if d.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, d.String())
			}

			if err := d.Validate(); err != nil {
				t.Errorf("Expected canonical diplotype to validate, got %v", err)
			}
		})
	}
}

func TestDiplotypeIsWildType(t *testing.T) {
	if !NewDiplotype(CYP2C9, "*1", "*1").IsWildType() {
		t.Error("Expected *1/*1 to be wild type")
	}

	if NewDiplotype(CYP2C9, "*1", "*3").IsWildType() {
		t.Error("Expected *1/*3 not to be wild type")
	}
}

func TestDiplotypeValidate(t *testing.T) {
	tests := []struct {
		name      string
		diplotype Diplotype
		wantErr   bool
	}{
		{
			name:      "Valid diplotype",
			diplotype: Diplotype{Gene: TPMT, Allele1: "*1", Allele2: "*3A"},
			wantErr:   false,
		},
		{
			name:      "Off-panel gene",
			diplotype: Diplotype{Gene: Gene("BRCA1"), Allele1: "*1", Allele2: "*2"},
			wantErr:   true,
		},
		{
			name:      "Missing allele slot",
			diplotype: Diplotype{Gene: TPMT, Allele1: "*1"},
			wantErr:   true,
		},
		{
			name:      "Non-canonical order",
			diplotype: Diplotype{Gene: TPMT, Allele1: "*3A", Allele2: "*1"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.diplotype.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVariantValidate(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		wantErr bool
	}{
		{
			name: "Valid variant",
			variant: Variant{
				RSID:       "rs3892097",
				Chromosome: "22",
				Position:   42524947,
				Reference:  "G",
				Alternate:  "A",
				Genotype:   "1/1",
				Zygosity:   HOMOZYGOUS,
			},
			wantErr: false,
		},
		{
			name: "Synthesized ID with zero position",
			variant: Variant{
				RSID:       "chr10:0",
				Chromosome: "10",
				Position:   0,
			},
			wantErr: false,
		},
		{
			name: "Missing reference ID",
			variant: Variant{
				Chromosome: "22",
				Position:   42524947,
			},
			wantErr: true,
		},
		{
			name: "Missing chromosome",
			variant: Variant{
				RSID:     "rs4244285",
				Position: 94781859,
			},
			wantErr: true,
		},
		{
			name: "Negative position",
			variant: Variant{
				RSID:       "rs4244285",
				Chromosome: "10",
				Position:   -1,
			},
			wantErr: true,
		},
		{
			name: "Invalid zygosity",
			variant: Variant{
				RSID:       "rs4244285",
				Chromosome: "10",
				Position:   94781859,
				Zygosity:   Zygosity("triploid"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.variant.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolvedAlleleValidate(t *testing.T) {
	tests := []struct {
		name    string
		allele  ResolvedAllele
		wantErr bool
	}{
		{
			name: "Valid resolution from lookup",
			allele: ResolvedAllele{
				Gene:       CYP2D6,
				StarAllele: "*4",
				Zygosity:   HOMOZYGOUS,
				Effect:     LOSS_OF_FUNCTION,
				Source:     SOURCE_LOOKUP,
			},
			wantErr: false,
		},
		{
			name: "Valid resolution from annotation",
			allele: ResolvedAllele{
				Gene:       CYP2C19,
				StarAllele: "*2",
				Zygosity:   HETEROZYGOUS,
				Effect:     UNKNOWN_EFFECT,
				Source:     SOURCE_ANNOTATION,
			},
			wantErr: false,
		},
		{
			name: "Off-panel gene",
			allele: ResolvedAllele{
				Gene:       Gene("VKORC1"),
				StarAllele: "*2",
				Zygosity:   HETEROZYGOUS,
				Source:     SOURCE_LOOKUP,
			},
			wantErr: true,
		},
		{
			name: "Missing star allele",
			allele: ResolvedAllele{
				Gene:     CYP2D6,
				Zygosity: HOMOZYGOUS,
				Source:   SOURCE_LOOKUP,
			},
			wantErr: true,
		},
		{
			name: "Missing source",
			allele: ResolvedAllele{
				Gene:       CYP2D6,
				StarAllele: "*4",
				Zygosity:   HOMOZYGOUS,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.allele.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolvedAlleleActivityScore(t *testing.T) {
	allele := ResolvedAllele{
		Gene:       CYP2D6,
		StarAllele: "*4",
		Zygosity:   HETEROZYGOUS,
		Effect:     LOSS_OF_FUNCTION,
		Source:     SOURCE_LOOKUP,
	}

	if got := allele.ActivityScore(); got != 0.0 {
		t.Errorf("Expected activity score 0.0 for loss of function allele, got %v", got)
	}
}
