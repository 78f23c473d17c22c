package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/pkg/vcf"
)

// INFO keys recognized as annotation tags.
const (
	infoKeyGene = "GENE"
	infoKeyStar = "STAR"
)

// VariantExtractor turns raw VCF text into normalized domain variants.
// Malformed lines degrade the parse statistics instead of failing the run;
// only a file yielding zero usable variants is fatal.
type VariantExtractor struct {
	logger *logrus.Logger
	parser *vcf.Parser
}

// NewVariantExtractor creates a new variant extractor.
func NewVariantExtractor(logger *logrus.Logger) *VariantExtractor {
	return &VariantExtractor{
		logger: logger,
		parser: vcf.NewParser(),
	}
}

// Extract parses the raw file content and returns the ordered variant list
// plus line-level parse statistics. Records annotated for a gene outside the
// supported panel are skipped and counted like malformed lines. Returns
// domain.ErrNoVariantsFound when not a single usable variant remains.
func (e *VariantExtractor) Extract(content string) ([]domain.Variant, domain.ParseStats, error) {
	result, err := e.parser.ParseString(content)
	if err != nil {
		return nil, domain.ParseStats{}, fmt.Errorf("extracting variants: %w", err)
	}

	stats := domain.ParseStats{
		TotalLines:   result.Stats.TotalDataLines,
		ParsedLines:  result.Stats.ParsedLines,
		SkippedLines: result.Stats.SkippedLines,
	}

	variants := make([]domain.Variant, 0, len(result.Records))
	genesSeen := make(map[string]bool)

	for i := range result.Records {
		rec := &result.Records[i]

		geneTag := rec.Info[infoKeyGene]
		if geneTag != "" && !domain.Gene(geneTag).IsValid() {
			stats.ParsedLines--
			stats.SkippedLines++
			e.logger.WithFields(logrus.Fields{
				"line": rec.Line,
				"gene": geneTag,
			}).Debug("Skipping variant annotated for off-panel gene")
			continue
		}

		if geneTag != "" {
			genesSeen[geneTag] = true
		}

		variants = append(variants, domain.Variant{
			RSID:       referenceID(rec),
			Chromosome: rec.NormalizeChrom(),
			Position:   rec.Pos,
			Reference:  rec.Ref,
			Alternate:  rec.Alt,
			Genotype:   rec.Genotype,
			Zygosity:   deriveZygosity(rec),
			GeneTag:    geneTag,
			StarTag:    rec.Info[infoKeyStar],
		})
	}

	for _, g := range domain.SupportedGenes() {
		if genesSeen[string(g)] {
			stats.GenesSeen = append(stats.GenesSeen, string(g))
		}
	}

	if len(variants) == 0 {
		return nil, stats, fmt.Errorf("extracting variants: %w", domain.ErrNoVariantsFound)
	}

	e.logger.WithFields(logrus.Fields{
		"total_lines":   stats.TotalLines,
		"parsed_lines":  stats.ParsedLines,
		"skipped_lines": stats.SkippedLines,
		"variants":      len(variants),
		"genes_seen":    stats.GenesSeen,
	}).Info("Variant extraction complete")

	return variants, stats, nil
}

// referenceID returns the record's rs identifier, or a synthesized
// positional identifier when the source record carries none.
func referenceID(rec *vcf.Record) string {
	if rec.HasID() {
		return rec.ID
	}
	return fmt.Sprintf("chr%s:%d", rec.NormalizeChrom(), rec.Pos)
}

// deriveZygosity classifies the genotype call at a site. Allele index "0"
// is the reference call; any other index is a variant call. Calls that are
// missing, haploid, or multi-allelic beyond a diploid pair stay unknown.
func deriveZygosity(rec *vcf.Record) domain.Zygosity {
	alleles := rec.GenotypeAlleles()
	if len(alleles) != 2 {
		return domain.UNKNOWN_ZYGOSITY
	}

	a, b := alleles[0], alleles[1]
	if a == "." || b == "." {
		return domain.UNKNOWN_ZYGOSITY
	}

	switch {
	case a == b && a != "0":
		return domain.HOMOZYGOUS
	case a == b:
		return domain.HOMOZYGOUS_REFERENCE
	case a == "0" || b == "0":
		return domain.HETEROZYGOUS
	default:
		return domain.COMPOUND_HETEROZYGOUS
	}
}
