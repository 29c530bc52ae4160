// Package backend defines the capability contract that platform device
// backends implement. The content-tree core (pkg/mtp) is written against
// these interfaces only and holds no knowledge of which backend is active
// beyond the queried capability flags.
package backend

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors shared by all backends.
var (
	// ErrUnavailable reports that the device disappeared mid-operation
	// (unplugged, session torn down by the OS).
	ErrUnavailable = errors.New("device unavailable")

	// ErrUnsupported reports that the requested capability does not exist
	// on this backend or platform.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// TypeTag is the backend-native object classification before normalization.
type TypeTag int

const (
	TagUnknown TypeTag = iota
	TagStorage
	TagFolder
	TagFile
	TagDevice
)

func (t TypeTag) String() string {
	switch t {
	case TagStorage:
		return "storage"
	case TagFolder:
		return "folder"
	case TagFile:
		return "file"
	case TagDevice:
		return "device"
	default:
		return "unknown"
	}
}

// TimeEncoding identifies how a backend encoded a modification timestamp.
type TimeEncoding int

const (
	// TimeUnset means the backend reported no timestamp for the object.
	TimeUnset TimeEncoding = iota
	// TimeFiletime is a 64-bit count of 100ns ticks since 1601-01-01 UTC.
	TimeFiletime
	// TimeUnix is seconds since 1970-01-01 UTC.
	TimeUnix
	// TimeText is an RFC 3339 string as reported by the backend.
	TimeText
)

// RawTimestamp carries a backend-native timestamp. Exactly one of the value
// fields is meaningful, selected by Encoding.
type RawTimestamp struct {
	Encoding TimeEncoding
	Ticks    uint64
	Unix     int64
	Text     string
}

// Object is the raw record a backend returns for one file, folder or
// storage. IDs are opaque, unique within a device, and stable only for the
// lifetime of one connection session.
type Object struct {
	ID       string
	Name     string
	Tag      TypeTag
	Size     int64
	Modified RawTimestamp
}

// DeviceInfo describes one attached device as reported by enumeration.
// FriendlyName is false when the device offered no user-facing name and
// Name was copied from the description or left empty.
type DeviceInfo struct {
	ID           string
	Name         string
	Description  string
	Serial       string
	FriendlyName bool
}

// Capabilities are the per-backend behavior flags the core queries instead
// of knowing which backend variant is active.
type Capabilities struct {
	// DirectWrite is true when CreateFile returns a handle the caller can
	// stream into. When false the backend only supports the staged
	// PushFile side channel.
	DirectWrite bool

	// FoldsCase is true when name matching on the device ignores case.
	FoldsCase bool

	// Separator is the path separator the backend uses in displayed
	// full filenames.
	Separator string
}

// Backend enumerates attached devices and opens per-device sessions.
type Backend interface {
	// ListDevices returns one DeviceInfo per attached device. An empty
	// slice (not an error) means nothing is connected.
	ListDevices(ctx context.Context) ([]DeviceInfo, error)

	// Open acquires a session on the device with the given ID. The
	// returned Conn must be closed on every exit path.
	Open(ctx context.Context, deviceID string) (Conn, error)

	// Type returns the backend identifier ("wpd", "gvfs", "sim").
	Type() string

	// Close releases backend-global resources.
	Close() error
}

// Conn is one open device session. Object IDs passed to its methods must
// come from the same session; they are not stable across reconnects.
type Conn interface {
	// Root returns the object record for the device root. Its children
	// are the storages.
	Root(ctx context.Context) (Object, error)

	// Children lists the immediate children of a folder-like object.
	// Every call re-queries the device; results are never cached.
	Children(ctx context.Context, parentID string) ([]Object, error)

	// Properties re-reads the raw record for a single object.
	Properties(ctx context.Context, id string) (Object, error)

	// OpenRead opens the content of a file object for streaming reads.
	OpenRead(ctx context.Context, id string) (io.ReadCloser, error)

	// CreateFolder creates an empty folder under parentID and returns
	// its record.
	CreateFolder(ctx context.Context, parentID, name string) (Object, error)

	// CreateFile creates a file of the given size under parentID and
	// returns a write handle for its content. Only valid when
	// Capabilities().DirectWrite is true; otherwise it returns
	// ErrUnsupported.
	CreateFile(ctx context.Context, parentID, name string, size int64) (io.WriteCloser, error)

	// PushFile transfers a local file into parentID/name through the
	// backend's staged side channel. Always available.
	PushFile(ctx context.Context, parentID, name, localPath string) error

	// Delete removes an object, recursively when requested. The boolean
	// is the backend's own claim of success; callers must not trust it
	// without a post-condition check, some backends report success for
	// no-op deletions.
	Delete(ctx context.Context, id string, recursive bool) (bool, error)

	// Capabilities reports the session's behavior flags.
	Capabilities() Capabilities

	// Close releases the device session.
	Close() error
}
