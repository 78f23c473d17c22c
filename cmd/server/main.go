// Package main provides the PharmGuard HTTP server entry point.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/api"
	"github.com/pharmguard-server/internal/archive"
	"github.com/pharmguard-server/internal/cache"
	"github.com/pharmguard-server/internal/config"
	"github.com/pharmguard-server/internal/database"
	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/reference"
	"github.com/pharmguard-server/internal/repository"
	"github.com/pharmguard-server/internal/service"
	"github.com/pharmguard-server/pkg/external"
)

func main() {
	// Local development reads .env; absence is fine in deployment
	_ = godotenv.Load()

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting PharmGuard server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reference tables
	library, err := loadLibrary(logger, cfg.Reference.DataDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load reference tables")
	}
	logger.WithFields(logrus.Fields{
		"checksum": library.Checksum(),
		"drugs":    len(library.SupportedDrugs()),
	}).Info("Reference tables loaded")

	// Explanation stack: provider behind breaker and cache, memoized in
	// process by the resolver.
	explanationService, err := external.NewService(ctx, cfg.Explainer, cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize explanation service")
	}
	defer explanationService.Close()

	resolver, err := service.NewExplanationResolver(service.ResolverConfig{}, explanationService, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize explanation resolver")
	}

	analyzer := service.NewAnalyzer(service.AnalyzerConfig{
		MaxConcurrentDrugs: cfg.Pipeline.MaxConcurrentDrugs,
		ExplanationTimeout: cfg.Explainer.Timeout,
	}, library, resolver, logger)

	// Report cache is best effort; a failed cache never blocks serving
	var reports *cache.ReportCache
	if cfg.Cache.Enabled {
		reports, err = cache.NewReportCache(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Warn("Report cache unavailable, serving without it")
			reports = nil
		} else {
			defer reports.Close()
		}
	}

	// Report archive
	store, err := archive.New(cfg.Archive, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize report archive")
	}
	if store != nil {
		defer store.Close()
	}

	// Audit database is optional; configuring one that cannot be reached
	// is an operator error worth failing on.
	if cfg.Database.Host != "" {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to audit database")
		}
		defer db.Close()

		if err := runMigrations(configManager.GetDatabaseURL(), logger); err != nil {
			logger.WithError(err).Fatal("Failed to run database migrations")
		}

		analyzer.WithAuditTrail(repository.NewAnalysisRepository(db.Pool, logger))
		logger.Info("Analysis audit trail enabled")
	}

	// Create server
	server := api.NewServer(configManager, api.Dependencies{
		Analyzer: analyzer,
		Library:  library,
		Archive:  store,
		Reports:  reports,
	}, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch cfg.Output {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Failed to open log file, using stdout")
			logger.SetOutput(os.Stdout)
		} else {
			logger.SetOutput(file)
		}
	}

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

// runMigrations brings the audit schema up to date.
func runMigrations(databaseURL string, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(databaseURL, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.Up()
}
