// Package main provides the one-shot PharmGuard command-line analyzer.
// It runs the full pipeline against a VCF file without any server, archive
// or cache; results go to stdout or a file as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/config"
	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
	"github.com/pharmguard-server/internal/service"
	"github.com/pharmguard-server/pkg/external"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pharmguard-analyze: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		vcfPath   = flag.String("vcf", "", "path to the VCF file to analyze (required)")
		drugsCSV  = flag.String("drugs", "", "comma-separated drugs to assess (required)")
		patientID = flag.String("patient", "", "patient identifier (anonymous when omitted)")
		dataDir   = flag.String("data", "", "directory with reference table overrides")
		outPath   = flag.String("out", "", "write the reports to this file instead of stdout")
		pretty    = flag.Bool("pretty", false, "indent the JSON output")
		timeout   = flag.Duration("timeout", 0, "per-explanation deadline (0 uses the configured default)")
	)
	flag.Parse()

	if *vcfPath == "" || *drugsCSV == "" {
		flag.Usage()
		return fmt.Errorf("both -vcf and -drugs are required")
	}

	drugs := splitDrugs(*drugsCSV)
	if len(drugs) == 0 {
		return fmt.Errorf("no drugs given")
	}

	// Environment config first, flags override
	cfg := config.LoadCLIConfig()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *timeout > 0 {
		cfg.ExplainTimeout = *timeout
	}

	logger := newLogger(cfg)

	content, err := os.ReadFile(*vcfPath)
	if err != nil {
		return fmt.Errorf("reading VCF file: %w", err)
	}

	library, err := loadLibrary(logger, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("loading reference tables: %w", err)
	}

	ctx := context.Background()

	// Static explainer unless a Gemini key is configured; the CLI runs
	// without Redis, so the explanation cache stays off.
	explainer, err := external.NewService(ctx, cfg.ExplainerConfig(), domain.CacheConfig{}, logger)
	if err != nil {
		return fmt.Errorf("initializing explanation service: %w", err)
	}
	defer explainer.Close()

	analyzer := service.NewAnalyzer(service.AnalyzerConfig{
		ExplanationTimeout: cfg.ExplainTimeout,
	}, library, explainer, logger)

	response, err := analyzer.AnalyzeBatch(ctx, service.BatchParams{
		PatientID:  *patientID,
		VCFContent: string(content),
		Drugs:      drugs,
	})
	if err != nil {
		return err
	}

	return writeReports(response.Reports, *outPath, *pretty)
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays clean
// for the report JSON.
func newLogger(cfg *config.CLIConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)

	return logger
}

// loadLibrary returns the compiled-in reference tables, or the tables from
// the override directory when one is configured.
func loadLibrary(logger *logrus.Logger, dataDir string) (*reference.Library, error) {
	if dataDir == "" {
		return reference.NewLibrary(logger), nil
	}
	return reference.NewLibraryFromDir(logger, dataDir)
}

// splitDrugs parses the comma-separated drugs argument.
func splitDrugs(raw string) []string {
	parts := strings.Split(raw, ",")
	drugs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			drugs = append(drugs, trimmed)
		}
	}
	return drugs
}

// writeReports encodes the report array to the requested destination.
func writeReports(reports []*domain.AnalysisReport, outPath string, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(reports, "", "  ")
	} else {
		data, err = json.Marshal(reports)
	}
	if err != nil {
		return fmt.Errorf("encoding reports: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}
