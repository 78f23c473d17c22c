package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Explainer ExplainerConfig `mapstructure:"explainer"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Reference ReferenceConfig `mapstructure:"reference"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// PipelineConfig represents tuning for the analysis pipeline.
type PipelineConfig struct {
	// MaxConcurrentDrugs bounds the fan-out when one request analyzes
	// multiple drugs in parallel.
	MaxConcurrentDrugs int `mapstructure:"max_concurrent_drugs"`
}

// ExplainerConfig represents explanation service configuration. Provider
// selects the primary backend: "gemini", "http" or "static".
type ExplainerConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   int           `mapstructure:"rate_limit"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	Temperature float32       `mapstructure:"temperature"`
	TopP        float32       `mapstructure:"top_p"`
	MaxTokens   int32         `mapstructure:"max_tokens"`
}

// CacheConfig represents cache configuration shared by the report cache and
// the explanation response cache.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MemorySize  int           `mapstructure:"memory_size"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// DatabaseConfig represents the PostgreSQL audit database configuration.
// An empty Host disables the audit repository entirely.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// ArchiveConfig represents report archive configuration. Backend selects
// "sqlite", "postgres" or "" (archive disabled).
type ArchiveConfig struct {
	Backend     string `mapstructure:"backend"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	DatabaseURL string `mapstructure:"database_url"`
}

// ReferenceConfig represents reference table configuration. DataDir points
// at a directory of JSON table overrides; empty means compiled-in defaults.
type ReferenceConfig struct {
	DataDir string `mapstructure:"data_dir"`
}
