// This file contains the lightweight configuration for the command-line
// analyzer, which runs without a config file or external services.
package config

import (
	"os"
	"time"

	"github.com/pharmguard-server/internal/domain"
)

// CLIConfig is a simplified configuration for the standalone analyzer.
// It requires no YAML file and uses sensible defaults.
type CLIConfig struct {
	// Data storage
	DataDir string // Optional directory with reference table overrides

	// Explanation settings
	GeminiAPIKey   string        // Optional: enables model-generated explanations
	ExplainTimeout time.Duration // Per-call explanation deadline

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultCLIConfig returns a configuration with sensible defaults.
func DefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		DataDir:        "",
		ExplainTimeout: 20 * time.Second,
		LogLevel:       "warn",
		LogFormat:      "text",
	}
}

// LoadCLIConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadCLIConfig() *CLIConfig {
	cfg := DefaultCLIConfig()

	// Data directory
	if v := os.Getenv("PHARMGUARD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Explanation settings
	cfg.GeminiAPIKey = os.Getenv("PHARMGUARD_GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if v := os.Getenv("PHARMGUARD_EXPLAIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ExplainTimeout = d
		}
	}

	// Logging
	if v := os.Getenv("PHARMGUARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PHARMGUARD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ExplainerConfig translates the CLI settings into an explanation service
// configuration. Without an API key the analyzer falls back to template
// explanations so it keeps working offline.
func (c *CLIConfig) ExplainerConfig() domain.ExplainerConfig {
	cfg := domain.ExplainerConfig{
		Provider:    "static",
		Model:       "gemini-1.5-flash",
		Timeout:     c.ExplainTimeout,
		RateLimit:   10,
		Temperature: 0.3,
		TopP:        0.95,
		MaxTokens:   1000,
	}
	if c.GeminiAPIKey != "" {
		cfg.Provider = "gemini"
		cfg.APIKey = c.GeminiAPIKey
	}
	return cfg
}
