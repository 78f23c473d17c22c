package reference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/domain"
)

// Data directory file names. Each file, when present, replaces the
// corresponding compiled-in table wholesale.
const (
	allelesFile    = "alleles.json"
	diplotypesFile = "diplotypes.json"
	guidelinesFile = "guidelines.json"
)

// NewLibraryFromDir creates a Library from the compiled-in tables with any
// tables found in dir applied as overrides. A missing file keeps the
// built-in table; a present but invalid file is an error, never a silent
// fallback.
func NewLibraryFromDir(logger *logrus.Logger, dir string) (*Library, error) {
	lib := &Library{
		logger:     logger,
		alleles:    builtinAlleles(),
		diplotypes: builtinDiplotypes(),
		guidelines: builtinGuidelines(),
	}

	overrides := []string{}

	alleles, ok, err := loadAlleles(filepath.Join(dir, allelesFile))
	if err != nil {
		return nil, err
	}
	if ok {
		lib.alleles = alleles
		overrides = append(overrides, allelesFile)
	}

	diplotypes, ok, err := loadDiplotypes(filepath.Join(dir, diplotypesFile))
	if err != nil {
		return nil, err
	}
	if ok {
		lib.diplotypes = diplotypes
		overrides = append(overrides, diplotypesFile)
	}

	guidelines, ok, err := loadGuidelines(filepath.Join(dir, guidelinesFile))
	if err != nil {
		return nil, err
	}
	if ok {
		lib.guidelines = guidelines
		overrides = append(overrides, guidelinesFile)
	}

	lib.checksum = computeChecksum(lib.alleles, lib.diplotypes, lib.guidelines)

	logger.WithFields(logrus.Fields{
		"data_dir":   dir,
		"overrides":  overrides,
		"alleles":    len(lib.alleles),
		"genes":      len(lib.diplotypes),
		"guidelines": len(lib.guidelines),
		"checksum":   lib.checksum[:12],
	}).Info("Initialized reference library from data directory")

	return lib, nil
}

// loadAlleles reads an allele table keyed by rsID. The middle return value
// reports whether the file existed.
func loadAlleles(path string) (map[string]AlleleDefinition, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read allele table: %w", err)
	}

	var raw map[string]AlleleDefinition
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to parse allele table %s: %w", path, err)
	}

	alleles := make(map[string]AlleleDefinition, len(raw))
	for rsid, def := range raw {
		def.RSID = rsid
		if err := def.Validate(); err != nil {
			return nil, false, fmt.Errorf("allele table %s: %w", path, err)
		}
		alleles[strings.ToLower(rsid)] = def
	}

	return alleles, true, nil
}

// loadDiplotypes reads the per-gene diplotype tables keyed by gene symbol.
func loadDiplotypes(path string) (map[domain.Gene]GeneDiplotypeTable, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read diplotype table: %w", err)
	}

	var raw map[domain.Gene]GeneDiplotypeTable
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to parse diplotype table %s: %w", path, err)
	}

	diplotypes := make(map[domain.Gene]GeneDiplotypeTable, len(raw))
	for gene, table := range raw {
		table.Gene = gene
		if err := table.Validate(); err != nil {
			return nil, false, fmt.Errorf("diplotype table %s: %w", path, err)
		}
		diplotypes[gene] = table
	}

	return diplotypes, true, nil
}

// loadGuidelines reads the drug guideline table keyed by drug name.
func loadGuidelines(path string) (map[string]DrugGuideline, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read guideline table: %w", err)
	}

	var raw map[string]DrugGuideline
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to parse guideline table %s: %w", path, err)
	}

	guidelines := make(map[string]DrugGuideline, len(raw))
	for drug, g := range raw {
		name := NormalizeDrug(drug)
		g.Drug = name
		if err := g.Validate(); err != nil {
			return nil, false, fmt.Errorf("guideline table %s: %w", path, err)
		}
		guidelines[name] = g
	}

	return guidelines, true, nil
}
