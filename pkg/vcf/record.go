// Package vcf provides lenient, line-oriented parsing of Variant Call Format
// files. Meta lines and the column header are skipped; malformed data lines
// are skipped and counted rather than aborting the parse, so a partially
// corrupt file still yields its usable records.
package vcf

import "strings"

// Record represents a single data line from a VCF file.
type Record struct {
	Chrom  string            // Chromosome name (e.g. "22", "chr22")
	Pos    int64             // 1-based genomic position
	ID     string            // Variant identifier (e.g. rs ID), "." when absent
	Ref    string            // Reference allele
	Alt    string            // Alternate allele
	Qual   string            // Quality column, kept verbatim
	Filter string            // Filter status (PASS or filter name)
	Info   map[string]string // INFO field key=value pairs; bare flags map to ""

	// Genotype is the first colon-separated token of the first sample
	// column (the GT value), empty when the line has no sample columns.
	Genotype string

	// Line is the 1-based line number in the source file.
	Line int
}

// HasID reports whether the record carries a real identifier. The VCF
// convention for a missing ID is ".".
func (r *Record) HasID() bool {
	return r.ID != "" && r.ID != "."
}

// HasGenotype reports whether the record carries a sample genotype call.
func (r *Record) HasGenotype() bool {
	return r.Genotype != "" && r.Genotype != "."
}

// GenotypeAlleles splits the genotype call into its allele indices,
// accepting both unphased ("0/1") and phased ("0|1") separators. A call
// with no separator yields a single element.
func (r *Record) GenotypeAlleles() []string {
	if !r.HasGenotype() {
		return nil
	}

	return strings.FieldsFunc(r.Genotype, func(c rune) bool {
		return c == '/' || c == '|'
	})
}

// NormalizeChrom returns the chromosome name without the "chr" prefix.
func (r *Record) NormalizeChrom() string {
	if len(r.Chrom) > 3 && strings.EqualFold(r.Chrom[:3], "chr") {
		return r.Chrom[3:]
	}
	return r.Chrom
}

// IsSNV returns true if the record describes a single nucleotide variant.
func (r *Record) IsSNV() bool {
	return len(r.Ref) == 1 && len(r.Alt) == 1
}
