// Package api exposes the analysis pipeline over REST.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmguard-server/internal/cache"
	"github.com/pharmguard-server/internal/domain"
	"github.com/pharmguard-server/internal/middleware"
	"github.com/pharmguard-server/internal/reference"
	"github.com/pharmguard-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	analyzer      *service.Analyzer
	library       *reference.Library
	archive       domain.ReportArchive
	reports       *cache.ReportCache
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// Dependencies carries the wired pipeline components the API serves.
// Archive and Reports are optional: a nil archive turns report reads into
// 503s, a nil report cache disables idempotent-result caching.
type Dependencies struct {
	Analyzer *service.Analyzer
	Library  *reference.Library
	Archive  domain.ReportArchive
	Reports  *cache.ReportCache
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxUploadBytes))

	server := &Server{
		configManager: configManager,
		analyzer:      deps.Analyzer,
		library:       deps.Library,
		archive:       deps.Archive,
		reports:       deps.Reports,
		log:           logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router returns the configured handler, used by the HTTP server and tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	s.log.WithFields(logrus.Fields{
		"addr": addr,
		"tls":  cfg.TLSEnabled,
	}).Info("HTTP server listening")

	// Wait for context cancellation
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Liveness and readiness endpoints
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/reports/:id", s.handleGetReport)
		v1.GET("/reports", s.handleListReports)
		v1.GET("/drugs", s.handleDrugs)
		v1.GET("/genes", s.handleGenes)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
