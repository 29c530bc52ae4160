package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sinajet/nx-mtp-sender/internal/backend"
	"github.com/sinajet/nx-mtp-sender/internal/config"
	"github.com/sinajet/nx-mtp-sender/internal/logging"
	"github.com/sinajet/nx-mtp-sender/internal/metrics"
	core "github.com/sinajet/nx-mtp-sender/pkg/backend"
	"github.com/sinajet/nx-mtp-sender/pkg/mtp"
)

// session bundles the resources every device command needs: loaded
// configuration, the platform backend and an open device.
type session struct {
	cfg        *config.Config
	backend    core.Backend
	dev        *mtp.Device
	metricsSrv *http.Server
}

// loadConfig reads the environment and applies flag overrides, then
// initializes logging and the optional metrics endpoint.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	return cfg, nil
}

// openBackend creates the configured backend without opening a device.
func openBackend(cmd *cobra.Command) (*config.Config, core.Backend, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	b, err := backend.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, b, nil
}

// openSession creates the backend, picks a device and opens it.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, b, err := openBackend(cmd)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, backend: b}
	if cfg.MetricsAddr != "" {
		s.metricsSrv = metrics.Serve(cfg.MetricsAddr)
	}

	ctx := cmd.Context()
	devices, err := b.ListDevices(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if len(devices) == 0 {
		s.Close()
		return nil, fmt.Errorf("no devices connected")
	}

	want, _ := cmd.Flags().GetString("device")
	info, err := selectDevice(devices, want)
	if err != nil {
		s.Close()
		return nil, err
	}

	dev, err := mtp.OpenDevice(ctx, b, info)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.dev = dev
	logging.Debug("device session opened", logging.String("device", dev.Label()))
	return s, nil
}

// selectDevice matches the --device substring against device labels and
// IDs. An empty selector picks the first device; an ambiguous one fails.
func selectDevice(devices []core.DeviceInfo, want string) (core.DeviceInfo, error) {
	if want == "" {
		return devices[0], nil
	}
	var matches []core.DeviceInfo
	for _, d := range devices {
		if strings.Contains(strings.ToLower(mtp.LabelFor(d)), strings.ToLower(want)) ||
			strings.Contains(d.ID, want) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return core.DeviceInfo{}, fmt.Errorf("no device matches %q", want)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, d := range matches {
			names[i] = mtp.LabelFor(d)
		}
		return core.DeviceInfo{}, fmt.Errorf("device selector %q is ambiguous: %s",
			want, strings.Join(names, ", "))
	}
}

// Close releases the device, the backend and the metrics endpoint.
func (s *session) Close() {
	if s.dev != nil {
		if err := s.dev.Close(); err != nil {
			logging.Warn("close device", logging.Err(err))
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			logging.Warn("close backend", logging.Err(err))
		}
	}
	if s.metricsSrv != nil {
		_ = s.metricsSrv.Shutdown(context.Background())
	}
	_ = logging.Sync()
}

// runWithDevice wraps a command body with session setup and teardown.
func runWithDevice(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s)
}
