package vcf

import (
	"strings"
	"testing"
)

const sampleVCF = `##fileformat=VCFv4.2
##source=PharmGuardTest
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	SAMPLE1
22	42524947	rs3892097	G	A	99	PASS	GENE=CYP2D6;STAR=*4	GT:DP	1/1:35
10	94781859	rs4244285	G	A	99	PASS	GENE=CYP2C19;STAR=*2	GT:DP	0/1:42
`

func TestParseFullFile(t *testing.T) {
	parser := NewParser()

	result, err := parser.ParseString(sampleVCF)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if result.Stats.TotalDataLines != 2 {
		t.Errorf("Expected 2 data lines, got %d", result.Stats.TotalDataLines)
	}

	if result.Stats.ParsedLines != 2 {
		t.Errorf("Expected 2 parsed lines, got %d", result.Stats.ParsedLines)
	}

	if result.Stats.SkippedLines != 0 {
		t.Errorf("Expected 0 skipped lines, got %d", result.Stats.SkippedLines)
	}

	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}

	first := result.Records[0]
	if first.Chrom != "22" {
		t.Errorf("Expected chrom 22, got %s", first.Chrom)
	}
	if first.Pos != 42524947 {
		t.Errorf("Expected pos 42524947, got %d", first.Pos)
	}
	if first.ID != "rs3892097" {
		t.Errorf("Expected ID rs3892097, got %s", first.ID)
	}
	if first.Ref != "G" || first.Alt != "A" {
		t.Errorf("Expected G>A, got %s>%s", first.Ref, first.Alt)
	}
	if first.Info["GENE"] != "CYP2D6" {
		t.Errorf("Expected GENE=CYP2D6, got %s", first.Info["GENE"])
	}
	if first.Info["STAR"] != "*4" {
		t.Errorf("Expected STAR=*4, got %s", first.Info["STAR"])
	}
	if first.Genotype != "1/1" {
		t.Errorf("Expected genotype 1/1, got %s", first.Genotype)
	}

	second := result.Records[1]
	if second.Genotype != "0/1" {
		t.Errorf("Expected genotype 0/1, got %s", second.Genotype)
	}
}

func TestParseDataLines(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name         string
		line         string
		wantParsed   bool
		wantID       string
		wantPos      int64
		wantGenotype string
	}{
		{
			name:         "Minimal eight columns",
			line:         "7\t87531302\trs776746\tT\tC\t.\t.\tGENE=CYP3A5",
			wantParsed:   true,
			wantID:       "rs776746",
			wantPos:      87531302,
			wantGenotype: "",
		},
		{
			name:         "Missing ID placeholder",
			line:         "6\t18130918\t.\tT\tC\t.\tPASS\tGENE=TPMT",
			wantParsed:   true,
			wantID:       ".",
			wantPos:      18130918,
			wantGenotype: "",
		},
		{
			name:         "Phased genotype",
			line:         "1\t97915614\trs3918290\tC\tT\t.\tPASS\tGENE=DPYD\tGT\t0|1",
			wantParsed:   true,
			wantID:       "rs3918290",
			wantPos:      97915614,
			wantGenotype: "0|1",
		},
		{
			name:       "Too few columns",
			line:       "22\t42524947\trs3892097\tG\tA",
			wantParsed: false,
		},
		{
			name:       "Non-numeric position",
			line:       "22\tNaN\trs3892097\tG\tA\t.\tPASS\tGENE=CYP2D6",
			wantParsed: false,
		},
		{
			name:       "Negative position",
			line:       "22\t-5\trs3892097\tG\tA\t.\tPASS\tGENE=CYP2D6",
			wantParsed: false,
		},
		{
			name:       "Empty chromosome",
			line:       "\t42524947\trs3892097\tG\tA\t.\tPASS\tGENE=CYP2D6",
			wantParsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parser.ParseString(tt.line + "\n")
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}

			if result.Stats.TotalDataLines != 1 {
				t.Errorf("Expected 1 data line, got %d", result.Stats.TotalDataLines)
			}

			if !tt.wantParsed {
				if result.Stats.SkippedLines != 1 {
					t.Errorf("Expected line to be skipped, stats = %+v", result.Stats)
				}
				if len(result.Records) != 0 {
					t.Errorf("Expected no records, got %d", len(result.Records))
				}
				return
			}

			if len(result.Records) != 1 {
				t.Fatalf("Expected 1 record, got %d", len(result.Records))
			}

			rec := result.Records[0]
			if rec.ID != tt.wantID {
				t.Errorf("Expected ID %s, got %s", tt.wantID, rec.ID)
			}
			if rec.Pos != tt.wantPos {
				t.Errorf("Expected pos %d, got %d", tt.wantPos, rec.Pos)
			}
			if rec.Genotype != tt.wantGenotype {
				t.Errorf("Expected genotype %q, got %q", tt.wantGenotype, rec.Genotype)
			}
		})
	}
}

func TestParseSkipsHeadersAndBlanks(t *testing.T) {
	parser := NewParser()

	content := "##fileformat=VCFv4.2\n\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n\n"
	result, err := parser.ParseString(content)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if result.Stats.TotalDataLines != 0 {
		t.Errorf("Expected 0 data lines for header-only content, got %d", result.Stats.TotalDataLines)
	}

	if len(result.Records) != 0 {
		t.Errorf("Expected no records, got %d", len(result.Records))
	}
}

func TestParseWindowsLineEndings(t *testing.T) {
	parser := NewParser()

	content := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\r\n22\t42524947\trs3892097\tG\tA\t.\tPASS\tGENE=CYP2D6;STAR=*4\r\n"
	result, err := parser.ParseString(content)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}

	if got := result.Records[0].Info["STAR"]; got != "*4" {
		t.Errorf("Expected STAR tag *4 without carriage return, got %q", got)
	}
}

func TestParseMixedGoodAndBadLines(t *testing.T) {
	parser := NewParser()

	lines := []string{
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
		"22\t42524947\trs3892097\tG\tA\t.\tPASS\tGENE=CYP2D6;STAR=*4",
		"garbage line without tabs",
		"10\tbadpos\trs4244285\tG\tA\t.\tPASS\tGENE=CYP2C19",
		"10\t94781859\trs4244285\tG\tA\t.\tPASS\tGENE=CYP2C19;STAR=*2",
	}

	result, err := parser.ParseString(strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if result.Stats.TotalDataLines != 4 {
		t.Errorf("Expected 4 data lines, got %d", result.Stats.TotalDataLines)
	}

	if result.Stats.ParsedLines != 2 {
		t.Errorf("Expected 2 parsed lines, got %d", result.Stats.ParsedLines)
	}

	if result.Stats.SkippedLines != 2 {
		t.Errorf("Expected 2 skipped lines, got %d", result.Stats.SkippedLines)
	}
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name     string
		info     string
		expected map[string]string
	}{
		{
			name:     "Key value pairs",
			info:     "GENE=CYP2D6;STAR=*4",
			expected: map[string]string{"GENE": "CYP2D6", "STAR": "*4"},
		},
		{
			name:     "Bare flag kept with empty value",
			info:     "DB;GENE=TPMT",
			expected: map[string]string{"DB": "", "GENE": "TPMT"},
		},
		{
			name:     "Value containing equals sign",
			info:     "NOTE=a=b;GENE=DPYD",
			expected: map[string]string{"NOTE": "a=b", "GENE": "DPYD"},
		},
		{
			name:     "Empty segments ignored",
			info:     ";;GENE=CYP2C9;;",
			expected: map[string]string{"GENE": "CYP2C9"},
		},
		{
			name:     "Missing value placeholder",
			info:     ".",
			expected: map[string]string{".": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseInfo(tt.info)

			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d tags, got %d (%v)", len(tt.expected), len(got), got)
			}

			for key, want := range tt.expected {
				if got[key] != want {
					t.Errorf("Expected %s=%q, got %q", key, want, got[key])
				}
			}
		})
	}
}
