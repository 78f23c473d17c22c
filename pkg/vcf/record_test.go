package vcf

import "testing"

func TestRecordHasID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		expected bool
	}{
		{"Real rs ID", "rs3892097", true},
		{"Missing placeholder", ".", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{ID: tt.id}
			if rec.HasID() != tt.expected {
				t.Errorf("Expected HasID() = %v for %q", tt.expected, tt.id)
			}
		})
	}
}

func TestRecordGenotypeAlleles(t *testing.T) {
	tests := []struct {
		name     string
		genotype string
		expected []string
	}{
		{"Unphased heterozygous", "0/1", []string{"0", "1"}},
		{"Phased heterozygous", "0|1", []string{"0", "1"}},
		{"Homozygous alternate", "1/1", []string{"1", "1"}},
		{"Multi-allelic", "1/2", []string{"1", "2"}},
		{"Haploid call", "1", []string{"1"}},
		{"Missing call", ".", nil},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{Genotype: tt.genotype}
			got := rec.GenotypeAlleles()

			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d alleles, got %d (%v)", len(tt.expected), len(got), got)
			}

			for i, want := range tt.expected {
				if got[i] != want {
					t.Errorf("Expected allele %s at position %d, got %s", want, i, got[i])
				}
			}
		})
	}
}

func TestRecordNormalizeChrom(t *testing.T) {
	tests := []struct {
		name     string
		chrom    string
		expected string
	}{
		{"Prefixed autosome", "chr22", "22"},
		{"Bare autosome", "22", "22"},
		{"Prefixed X", "chrX", "X"},
		{"Uppercase prefix", "CHR10", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{Chrom: tt.chrom}
			if got := rec.NormalizeChrom(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestRecordIsSNV(t *testing.T) {
	snv := Record{Ref: "G", Alt: "A"}
	if !snv.IsSNV() {
		t.Error("Expected G>A to be an SNV")
	}

	indel := Record{Ref: "GA", Alt: "G"}
	if indel.IsSNV() {
		t.Error("Expected GA>G not to be an SNV")
	}
}
