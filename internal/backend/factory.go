// Package backend selects and constructs the platform device backend.
package backend

import (
	"fmt"
	"runtime"

	"github.com/sinajet/nx-mtp-sender/internal/backend/devsim"
	"github.com/sinajet/nx-mtp-sender/internal/backend/gvfs"
	"github.com/sinajet/nx-mtp-sender/internal/backend/wpd"
	"github.com/sinajet/nx-mtp-sender/internal/config"
	"github.com/sinajet/nx-mtp-sender/internal/logging"
	core "github.com/sinajet/nx-mtp-sender/pkg/backend"
)

// New creates the backend named by the configuration. "auto" picks the
// native backend for the running platform.
func New(cfg *config.Config) (core.Backend, error) {
	kind := cfg.Backend
	if kind == "auto" {
		if runtime.GOOS == "windows" {
			kind = "wpd"
		} else {
			kind = "gvfs"
		}
	}

	logging.Debug("creating device backend", logging.String("type", kind))

	switch kind {
	case "wpd":
		return wpd.New()

	case "gvfs":
		return gvfs.New(cfg.GvfsRoot), nil

	case "sim":
		b := devsim.New()
		if cfg.SimSeedDir != "" {
			if err := b.SeedFromDir("Internal Storage", cfg.SimSeedDir); err != nil {
				return nil, fmt.Errorf("seed simulated device from %q: %w", cfg.SimSeedDir, err)
			}
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend)
	}
}
