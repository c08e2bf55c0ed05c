package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, ".medsafety", filepath.Base(cfg.DataDir))
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Empty(t, cfg.SigningKey)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("MEDSAFETY_DATA_DIR", "/tmp/test-medsafety")
	t.Setenv("MEDSAFETY_CACHE_MAX_ITEMS", "500")
	t.Setenv("MEDSAFETY_CACHE_TTL", "12h")
	t.Setenv("MEDSAFETY_HTTP_PORT", "9090")
	t.Setenv("MEDSAFETY_LOG_LEVEL", "debug")
	t.Setenv("MEDSAFETY_LOG_FORMAT", "text")
	t.Setenv("MEDSAFETY_SIGNING_KEY", "lite-key")
	t.Setenv("MEDSAFETY_API_BASE_URL", "https://api.test")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-medsafety", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "lite-key", cfg.SigningKey)
	assert.Equal(t, "https://api.test", cfg.APIBaseURL)
}

func TestLoadLiteConfig_InvalidValuesIgnored(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("MEDSAFETY_CACHE_MAX_ITEMS", "-3")
	t.Setenv("MEDSAFETY_CACHE_TTL", "soon")
	t.Setenv("MEDSAFETY_HTTP_PORT", "70000")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.medsafety"}

	assert.Equal(t, "/home/user/.medsafety/store.db", cfg.StoreDBPath())
	assert.Equal(t, "/home/user/.medsafety/audit.db", cfg.AuditDBPath())
	assert.Equal(t, "/home/user/.medsafety/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "medsafety")}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func TestLiteConfig_ToConfig(t *testing.T) {
	lite := &LiteConfig{
		DataDir:       "/data",
		CacheMaxItems: 50,
		CacheTTL:      time.Minute,
		HTTPPort:      9000,
		SigningKey:    "k",
		LogLevel:      "warn",
		LogFormat:     "text",
	}

	cfg := lite.ToConfig()
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Cache.MemoryMaxItems)
	assert.Equal(t, "sqlite", cfg.Audit.Driver)
	assert.Equal(t, "/data/audit.db", cfg.Audit.SQLitePath)
	assert.Equal(t, "k", cfg.Auth.SigningKey)
	assert.Equal(t, "stderr", cfg.Logging.Output)

	mgr := NewStaticManager(cfg)
	assert.Same(t, cfg, mgr.GetConfig())
	assert.Equal(t, 9000, mgr.GetServerConfig().Port)
	assert.True(t, mgr.IsDevelopment())
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"MEDSAFETY_DATA_DIR",
		"MEDSAFETY_CACHE_MAX_ITEMS",
		"MEDSAFETY_CACHE_TTL",
		"MEDSAFETY_HTTP_PORT",
		"MEDSAFETY_LOG_LEVEL",
		"MEDSAFETY_LOG_FORMAT",
		"MEDSAFETY_SIGNING_KEY",
		"MEDSAFETY_API_BASE_URL",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
