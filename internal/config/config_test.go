package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaultsWithSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("CATALOG_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.API.PageSize)
	assert.Equal(t, "movie-catalog", cfg.JWT.Issuer)
	assert.Equal(t, "movie-catalog", cfg.JWT.Audience)
	assert.Equal(t, testSecret, cfg.JWT.Secret)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("CATALOG_JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("CATALOG_JWT_SECRET", testSecret)
	t.Setenv("CATALOG_SERVER_PORT", "9090")
	t.Setenv("CATALOG_DATABASE_URL", "postgres://db.internal:5432/catalog")
	t.Setenv("CATALOG_API_PAGESIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://db.internal:5432/catalog", cfg.Database.URL)
	assert.Equal(t, 5, cfg.API.PageSize)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte("server:\n  port: 7070\ncache:\n  ttl: 5m\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CATALOG_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}
