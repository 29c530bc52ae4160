package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Backend)
	assert.Contains(t, cfg.GvfsRoot, "/gvfs")
	assert.Equal(t, "", cfg.StagingDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "", cfg.MetricsAddr)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MTP_BACKEND", "sim")
	t.Setenv("MTP_GVFS_ROOT", "/tmp/gvfs-test")
	t.Setenv("MTP_STAGING_DIR", "/tmp/stage")
	t.Setenv("MTP_LOG_LEVEL", "debug")
	t.Setenv("MTP_LOG_FORMAT", "json")
	t.Setenv("MTP_METRICS_ADDR", ":9102")
	t.Setenv("MTP_RETRY_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sim", cfg.Backend)
	assert.Equal(t, "/tmp/gvfs-test", cfg.GvfsRoot)
	assert.Equal(t, "/tmp/stage", cfg.StagingDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.Equal(t, 5, cfg.RetryAttempts)
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("MTP_RETRY_ATTEMPTS", "many")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RetryAttempts)
}
