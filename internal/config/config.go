package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/pharmguard-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("pharmguard")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pharmguard/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("PHARMGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The Gemini key is conventionally set without the prefix as well.
	viper.BindEnv("explainer.api_key", "PHARMGUARD_EXPLAINER_API_KEY", "GEMINI_API_KEY")

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.max_upload_bytes", 5*1024*1024)
	viper.SetDefault("server.tls_enabled", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Pipeline defaults
	viper.SetDefault("pipeline.max_concurrent_drugs", 4)

	// Explainer defaults: static provider works with no credentials
	viper.SetDefault("explainer.provider", "static")
	viper.SetDefault("explainer.model", "gemini-1.5-flash")
	viper.SetDefault("explainer.timeout", "20s")
	viper.SetDefault("explainer.rate_limit", 10)
	viper.SetDefault("explainer.cache_ttl", "24h")
	viper.SetDefault("explainer.temperature", 0.3)
	viper.SetDefault("explainer.top_p", 0.95)
	viper.SetDefault("explainer.max_tokens", 1000)

	// Cache defaults: memory tier only until a Redis URL is configured
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.default_ttl", "1h")
	viper.SetDefault("cache.memory_size", 256)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Database defaults: audit trail stays disabled until a host is set
	viper.SetDefault("database.host", "")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "pharmguard")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.conn_max_idle_time", "30m")

	// Archive defaults
	viper.SetDefault("archive.backend", "sqlite")
	viper.SetDefault("archive.sqlite_path", "data/reports.db")
	viper.SetDefault("archive.database_url", "")

	// Reference defaults: empty data dir means compiled-in tables
	viper.SetDefault("reference.data_dir", "")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetExplainerConfig returns explanation service configuration
func (m *Manager) GetExplainerConfig() *domain.ExplainerConfig {
	return &m.config.Explainer
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetArchiveConfig returns report archive configuration
func (m *Manager) GetArchiveConfig() *domain.ArchiveConfig {
	return &m.config.Archive
}

// GetReferenceConfig returns reference table configuration
func (m *Manager) GetReferenceConfig() *domain.ReferenceConfig {
	return &m.config.Reference
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max upload size: %d", config.Server.MaxUploadBytes)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	// Validate pipeline configuration
	if config.Pipeline.MaxConcurrentDrugs <= 0 {
		return fmt.Errorf("invalid pipeline concurrency: %d", config.Pipeline.MaxConcurrentDrugs)
	}

	// Validate explainer configuration
	switch config.Explainer.Provider {
	case "gemini":
		if config.Explainer.APIKey == "" {
			return fmt.Errorf("gemini explainer requires an API key")
		}
	case "http":
		if config.Explainer.BaseURL == "" {
			return fmt.Errorf("http explainer requires a base URL")
		}
	case "static", "":
	default:
		return fmt.Errorf("unknown explainer provider: %s", config.Explainer.Provider)
	}

	// Validate archive configuration
	switch config.Archive.Backend {
	case "sqlite":
		if config.Archive.SQLitePath == "" {
			return fmt.Errorf("sqlite archive requires a database path")
		}
	case "postgres":
		if config.Archive.DatabaseURL == "" {
			return fmt.Errorf("postgres archive requires a database URL")
		}
	case "":
	default:
		return fmt.Errorf("unknown archive backend: %s", config.Archive.Backend)
	}

	// The audit database is optional; validate only when configured
	if config.Database.Host != "" {
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database connection URL consumed by the
// migration runner.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     db.Database,
		RawQuery: "sslmode=" + db.SSLMode,
	}
	return u.String()
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
