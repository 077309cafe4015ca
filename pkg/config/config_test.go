package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "filesystem", cfg.Storage.Type)
	assert.Equal(t, 5, cfg.RateLimit.Auth)
	assert.Equal(t, 200, cfg.RateLimit.Admin)
	assert.Equal(t, 100, cfg.RateLimit.Default)
	assert.Equal(t, 30*24*time.Hour, cfg.Purge.Retention)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MAKERSITE_PORT", "9090")
	t.Setenv("MAKERSITE_DB_DRIVER", "sqlite3")
	t.Setenv("MAKERSITE_DB_TIMEOUT", "3s")
	t.Setenv("MAKERSITE_RATELIMIT_DEFAULT", "50")
	t.Setenv("MAKERSITE_PURGE_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 3*time.Second, cfg.Database.Timeout)
	assert.Equal(t, 50, cfg.RateLimit.Default)
	assert.False(t, cfg.Purge.Enabled)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "makersite.yaml")
	data := []byte("server:\n  port: \"7070\"\nrate_limit:\n  admin: 500\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("MAKERSITE_CONFIG_FILE", path)
	t.Setenv("MAKERSITE_HOST", "127.0.0.1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// File values win over env for the keys the file sets.
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 500, cfg.RateLimit.Admin)
	// Keys the file omits keep their env values.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("bad driver", func(t *testing.T) {
		t.Setenv("MAKERSITE_DB_DRIVER", "mysql")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("MAKERSITE_STORAGE_TYPE", "s3")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		t.Setenv("MAKERSITE_CONFIG_FILE", "/nonexistent/makersite.yaml")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
