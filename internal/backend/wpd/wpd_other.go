//go:build !windows

// Package wpd implements the Windows device backend. On every other
// platform it only reports itself unsupported so the factory can fall
// through to the platform backend.
package wpd

import (
	"context"
	"errors"

	"github.com/sinajet/nx-mtp-sender/pkg/backend"
)

// Backend is functional only on Windows builds.
type Backend struct{}

// New fails everywhere except Windows.
func New() (*Backend, error) {
	return nil, errors.New("wpd backend requires windows")
}

func (b *Backend) ListDevices(ctx context.Context) ([]backend.DeviceInfo, error) {
	return nil, backend.ErrUnsupported
}

func (b *Backend) Open(ctx context.Context, deviceID string) (backend.Conn, error) {
	return nil, backend.ErrUnsupported
}

func (b *Backend) Type() string { return "wpd" }

func (b *Backend) Close() error { return nil }
