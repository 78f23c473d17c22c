package domain

import (
	"testing"
	"time"
)

func TestParseStatsSuccessRatio(t *testing.T) {
	tests := []struct {
		name     string
		stats    ParseStats
		expected float64
	}{
		{"All lines parsed", ParseStats{TotalLines: 10, ParsedLines: 10}, 1.0},
		{"Half parsed", ParseStats{TotalLines: 10, ParsedLines: 5, SkippedLines: 5}, 0.5},
		{"Nothing parsed", ParseStats{TotalLines: 4, SkippedLines: 4}, 0.0},
		{"Header-only file counts as clean", ParseStats{}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.SuccessRatio(); got != tt.expected {
				t.Errorf("Expected ratio %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMappingResultGenesResolved(t *testing.T) {
	result := MappingResult{
		Resolved: []ResolvedAllele{
			{Gene: TPMT, StarAllele: "*3A", Zygosity: HETEROZYGOUS, Source: SOURCE_LOOKUP},
			{Gene: CYP2D6, StarAllele: "*4", Zygosity: HOMOZYGOUS, Source: SOURCE_LOOKUP},
			{Gene: CYP2D6, StarAllele: "*10", Zygosity: HETEROZYGOUS, Source: SOURCE_LOOKUP},
		},
	}

	genes := result.GenesResolved()

	// Panel order, each gene once, regardless of resolution order.
	expected := []Gene{CYP2D6, TPMT}
	if len(genes) != len(expected) {
		t.Fatalf("Expected %d genes, got %d", len(expected), len(genes))
	}

	for i, g := range expected {
		if genes[i] != g {
			t.Errorf("Expected gene %s at position %d, got %s", g, i, genes[i])
		}
	}
}

func TestMappingResultAllelesForGene(t *testing.T) {
	result := MappingResult{
		Resolved: []ResolvedAllele{
			{Gene: CYP2C19, StarAllele: "*2", Zygosity: HETEROZYGOUS, Source: SOURCE_LOOKUP},
			{Gene: CYP2C9, StarAllele: "*3", Zygosity: HETEROZYGOUS, Source: SOURCE_LOOKUP},
			{Gene: CYP2C19, StarAllele: "*17", Zygosity: HETEROZYGOUS, Source: SOURCE_LOOKUP},
		},
	}

	alleles := result.AllelesForGene(CYP2C19)
	if len(alleles) != 2 {
		t.Fatalf("Expected 2 alleles for CYP2C19, got %d", len(alleles))
	}

	if alleles[0].StarAllele != "*2" || alleles[1].StarAllele != "*17" {
		t.Errorf("Expected alleles in resolution order, got %s and %s", alleles[0].StarAllele, alleles[1].StarAllele)
	}

	if got := result.AllelesForGene(DPYD); len(got) != 0 {
		t.Errorf("Expected no alleles for DPYD, got %d", len(got))
	}
}

func TestExplanationIsEmpty(t *testing.T) {
	empty := Explanation{}
	if !empty.IsEmpty() {
		t.Error("Expected zero-value explanation to be empty")
	}

	filled := Explanation{Summary: "Codeine should be avoided in poor metabolizers."}
	if filled.IsEmpty() {
		t.Error("Expected explanation with a summary not to be empty")
	}
}

func TestPhenotypeCallIsActionable(t *testing.T) {
	call := PhenotypeCall{Gene: CYP2D6, Phenotype: PM, Method: METHOD_LOOKUP}
	if !call.IsActionable() {
		t.Error("Expected PM call to be actionable")
	}

	normal := PhenotypeCall{Gene: CYP2D6, Phenotype: NM, Method: METHOD_LOOKUP}
	if normal.IsActionable() {
		t.Error("Expected NM call not to be actionable")
	}
}

func TestRiskVerdictValidate(t *testing.T) {
	tests := []struct {
		name    string
		verdict RiskVerdict
		wantErr bool
	}{
		{
			name: "Valid verdict",
			verdict: RiskVerdict{
				Drug:               "CODEINE",
				PrimaryGene:        CYP2D6,
				RiskLabel:          TOXIC,
				Severity:           SEVERITY_CRITICAL,
				ConfidenceScore:    0.95,
				RecommendedAction:  "Avoid codeine; use a non-tramadol alternative",
				MonitoringRequired: true,
			},
			wantErr: false,
		},
		{
			name: "Invalid risk label",
			verdict: RiskVerdict{
				Drug:            "CODEINE",
				PrimaryGene:     CYP2D6,
				RiskLabel:       RiskLabel("Risky"),
				Severity:        SEVERITY_HIGH,
				ConfidenceScore: 0.95,
			},
			wantErr: true,
		},
		{
			name: "Invalid severity",
			verdict: RiskVerdict{
				Drug:            "CODEINE",
				PrimaryGene:     CYP2D6,
				RiskLabel:       TOXIC,
				Severity:        Severity("catastrophic"),
				ConfidenceScore: 0.95,
			},
			wantErr: true,
		},
		{
			name: "Confidence out of range",
			verdict: RiskVerdict{
				Drug:            "CODEINE",
				PrimaryGene:     CYP2D6,
				RiskLabel:       TOXIC,
				Severity:        SEVERITY_CRITICAL,
				ConfidenceScore: 1.5,
			},
			wantErr: true,
		},
		{
			name: "Missing drug",
			verdict: RiskVerdict{
				PrimaryGene:     CYP2D6,
				RiskLabel:       TOXIC,
				Severity:        SEVERITY_CRITICAL,
				ConfidenceScore: 0.95,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verdict.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalysisReportValidate(t *testing.T) {
	valid := AnalysisReport{
		ReportID:  "RPT-1234",
		PatientID: "PATIENT_AB12CD34",
		Drug:      "CODEINE",
		Timestamp: time.Now().UTC(),
		RiskAssessment: RiskAssessment{
			RiskLabel:       TOXIC,
			ConfidenceScore: 0.95,
			Severity:        SEVERITY_CRITICAL,
		},
		PharmacogenomicProfile: PharmacogenomicProfile{
			PrimaryGene: "CYP2D6",
			Diplotype:   "*4/*4",
			Phenotype:   PM,
		},
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid report to pass validation, got %v", err)
	}

	missingID := valid
	missingID.ReportID = ""
	if err := missingID.Validate(); err == nil {
		t.Error("Expected report without ID to fail validation")
	}

	badLabel := valid
	badLabel.RiskAssessment.RiskLabel = RiskLabel("Spicy")
	if err := badLabel.Validate(); err == nil {
		t.Error("Expected report with invalid risk label to fail validation")
	}
}
