package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pharmassist-medsafety/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Holds store.db and audit.db

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// HTTP settings (server-lite only)
	HTTPPort   int
	SigningKey string // HS256 bearer token key
	APIBaseURL string // Prefix for relative picture URLs

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".medsafety")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      10 * time.Minute,
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("MEDSAFETY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("MEDSAFETY_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("MEDSAFETY_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("MEDSAFETY_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 65535 {
			cfg.HTTPPort = n
		}
	}
	cfg.SigningKey = os.Getenv("MEDSAFETY_SIGNING_KEY")
	cfg.APIBaseURL = os.Getenv("MEDSAFETY_API_BASE_URL")

	if v := os.Getenv("MEDSAFETY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MEDSAFETY_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// StoreDBPath returns the path to the profile and catalog SQLite database.
func (c *LiteConfig) StoreDBPath() string {
	return filepath.Join(c.DataDir, "store.db")
}

// AuditDBPath returns the path to the evaluation audit SQLite database.
func (c *LiteConfig) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// ToConfig expands the lite settings into a full configuration for the
// components shared with the full server.
func (c *LiteConfig) ToConfig() *domain.Config {
	return &domain.Config{
		Environment: "development",
		Server: domain.ServerConfig{
			Host:           "0.0.0.0",
			Port:           c.HTTPPort,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			RequestTimeout: 15 * time.Second,
			MaxBodyBytes:   1 << 20,
			APIBaseURL:     c.APIBaseURL,
			AllowedOrigins: []string{"*"},
		},
		Cache: domain.CacheConfig{
			Enabled:        true,
			DefaultTTL:     c.CacheTTL,
			MemoryMaxItems: c.CacheMaxItems,
			MemoryTTL:      c.CacheTTL,
		},
		Logging: domain.LoggingConfig{
			Level:  c.LogLevel,
			Format: c.LogFormat,
			Output: "stderr",
		},
		Auth: domain.AuthConfig{SigningKey: c.SigningKey},
		RateLimit: domain.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Engine: domain.EngineConfig{
			DefaultMaxResults:         10,
			DefaultConflictMaxResults: 50,
		},
		Audit: domain.AuditConfig{
			Enabled:    true,
			Driver:     "sqlite",
			SQLitePath: c.AuditDBPath(),
		},
	}
}

// StaticManager serves a fixed configuration through domain.ConfigManager.
type StaticManager struct {
	config *domain.Config
}

// NewStaticManager wraps cfg.
func NewStaticManager(cfg *domain.Config) *StaticManager {
	return &StaticManager{config: cfg}
}

func (s *StaticManager) GetConfig() *domain.Config                 { return s.config }
func (s *StaticManager) GetDatabaseConfig() *domain.DatabaseConfig { return &s.config.Database }
func (s *StaticManager) GetServerConfig() *domain.ServerConfig     { return &s.config.Server }
func (s *StaticManager) GetEngineConfig() *domain.EngineConfig     { return &s.config.Engine }
func (s *StaticManager) Reload() error                             { return nil }
func (s *StaticManager) Validate() error                           { return nil }
func (s *StaticManager) GetDatabaseConnectionString() string       { return "" }
func (s *StaticManager) GetDatabaseURL() string                    { return "" }
func (s *StaticManager) GetRedisConnectionString() string          { return s.config.Cache.RedisURL }
func (s *StaticManager) IsProduction() bool                        { return s.config.Environment == "production" }
func (s *StaticManager) IsDevelopment() bool                       { return s.config.Environment != "production" }
