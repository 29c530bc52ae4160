// Package config loads configuration from environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all nx-mtp-sender configuration.
type Config struct {
	// Backend selection ("auto", "wpd", "gvfs", "sim")
	Backend string

	// GVFS mount root (Linux). Overridable for tests.
	GvfsRoot string

	// Simulated backend seed directory (backend "sim" only).
	SimSeedDir string

	// Staging directory for the two-step upload fallback.
	// Empty means the OS temp directory.
	StagingDir string

	// Logging
	LogLevel  string
	LogFormat string

	// Metrics exposition address; empty disables the endpoint.
	MetricsAddr string

	// Retry attempts for transient backend enumeration failures.
	RetryAttempts int
}

// Load reads configuration from the environment with defaults. A .env file
// in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Backend:       envOr("MTP_BACKEND", "auto"),
		GvfsRoot:      envOr("MTP_GVFS_ROOT", defaultGvfsRoot()),
		SimSeedDir:    envOr("MTP_SIM_SEED_DIR", ""),
		StagingDir:    envOr("MTP_STAGING_DIR", ""),
		LogLevel:      envOr("MTP_LOG_LEVEL", "info"),
		LogFormat:     envOr("MTP_LOG_FORMAT", "console"),
		MetricsAddr:   envOr("MTP_METRICS_ADDR", ""),
		RetryAttempts: envInt("MTP_RETRY_ATTEMPTS", 3),
	}

	return cfg, nil
}

func defaultGvfsRoot() string {
	return "/run/user/" + strconv.Itoa(os.Getuid()) + "/gvfs"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
