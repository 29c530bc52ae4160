// Package gvfs implements the Linux device backend. MTP devices mounted
// by the desktop's virtual filesystem appear as directories under the
// user's gvfs root, so enumeration and reads are plain file I/O. Writes
// into the mount are not reliable for MTP, so the backend advertises no
// direct-write capability and uploads go through `gio copy`, which talks
// to the mount daemon directly.
package gvfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sinajet/nx-mtp-sender/internal/retry"
	"github.com/sinajet/nx-mtp-sender/pkg/backend"
)

const mountPrefix = "mtp:host="

// Backend enumerates MTP mounts below one gvfs root directory.
type Backend struct {
	// Root is the gvfs mount directory, normally /run/user/<uid>/gvfs.
	// Tests point it at a scratch directory.
	Root string
}

// New creates a backend over the given gvfs root.
func New(root string) *Backend {
	return &Backend{Root: root}
}

func (b *Backend) Type() string { return "gvfs" }

func (b *Backend) Close() error { return nil }

// ListDevices reports one device per mtp: mount directory. A missing or
// empty gvfs root means no devices, not an error.
func (b *Backend) ListDevices(ctx context.Context) ([]backend.DeviceInfo, error) {
	entries, err := os.ReadDir(b.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read gvfs root %q: %w", b.Root, err)
	}
	var out []backend.DeviceInfo
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), mountPrefix) {
			continue
		}
		out = append(out, parseMountName(e.Name()))
	}
	return out, nil
}

// parseMountName derives a device identity from a mount directory name
// like "mtp:host=Google_Pixel_7_1A2B3C4D". The host field carries no
// explicit structure, so the last underscore-separated token is taken as
// the serial and the rest as the description. The mount offers no
// friendly name.
func parseMountName(name string) backend.DeviceInfo {
	info := backend.DeviceInfo{ID: name}
	host := strings.TrimPrefix(name, mountPrefix)
	if i := strings.LastIndex(host, "_"); i > 0 {
		info.Description = strings.ReplaceAll(host[:i], "_", " ")
		info.Serial = host[i+1:]
	} else {
		info.Description = strings.ReplaceAll(host, "_", " ")
	}
	return info
}

func (b *Backend) Open(ctx context.Context, deviceID string) (backend.Conn, error) {
	dir := filepath.Join(b.Root, deviceID)
	fi, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("mount %q: %w", deviceID, backend.ErrUnavailable)
		}
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("mount %q is not a directory", deviceID)
	}
	return &conn{dir: dir, uri: "mtp://" + strings.TrimPrefix(deviceID, "mtp:host=")}, nil
}

// conn serves one mounted device. Object IDs are paths relative to the
// mount directory; the empty ID is the device root.
type conn struct {
	dir string
	uri string
}

func (c *conn) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		DirectWrite: false,
		FoldsCase:   false,
		Separator:   "/",
	}
}

func (c *conn) Close() error { return nil }

// abs maps an object ID onto the mounted path, rejecting IDs that escape
// the mount.
func (c *conn) abs(id string) (string, error) {
	p := filepath.Join(c.dir, filepath.FromSlash(id))
	if p != c.dir && !strings.HasPrefix(p, c.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("object id %q escapes mount", id)
	}
	return p, nil
}

// wrapStat converts stat failures on the mount into backend errors. A
// vanished mount directory means the device was unplugged.
func (c *conn) wrapStat(err error) error {
	if os.IsNotExist(err) {
		if _, rootErr := os.Stat(c.dir); os.IsNotExist(rootErr) {
			return backend.ErrUnavailable
		}
	}
	return err
}

func (c *conn) object(id string, fi os.FileInfo) backend.Object {
	tag := backend.TagFile
	if fi.IsDir() {
		switch strings.Count(id, "/") {
		case 0:
			if id == "" {
				tag = backend.TagDevice
			} else {
				tag = backend.TagStorage
			}
		default:
			tag = backend.TagFolder
		}
	}
	obj := backend.Object{
		ID:   id,
		Name: fi.Name(),
		Tag:  tag,
		Modified: backend.RawTimestamp{
			Encoding: backend.TimeUnix,
			Unix:     fi.ModTime().Unix(),
		},
	}
	if tag == backend.TagFile {
		obj.Size = fi.Size()
	}
	return obj
}

func (c *conn) Root(ctx context.Context) (backend.Object, error) {
	fi, err := os.Stat(c.dir)
	if err != nil {
		return backend.Object{}, c.wrapStat(err)
	}
	return c.object("", fi), nil
}

func (c *conn) Children(ctx context.Context, parentID string) ([]backend.Object, error) {
	dir, err := c.abs(parentID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, c.wrapStat(err)
	}
	out := make([]backend.Object, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			// Entry vanished between listing and stat; skip it, the
			// next enumeration will not see it either.
			continue
		}
		id := e.Name()
		if parentID != "" {
			id = parentID + "/" + e.Name()
		}
		out = append(out, c.object(id, fi))
	}
	return out, nil
}

func (c *conn) Properties(ctx context.Context, id string) (backend.Object, error) {
	p, err := c.abs(id)
	if err != nil {
		return backend.Object{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return backend.Object{}, c.wrapStat(err)
	}
	return c.object(id, fi), nil
}

func (c *conn) OpenRead(ctx context.Context, id string) (io.ReadCloser, error) {
	p, err := c.abs(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, c.wrapStat(err)
	}
	return f, nil
}

func (c *conn) CreateFolder(ctx context.Context, parentID, name string) (backend.Object, error) {
	id := name
	if parentID != "" {
		id = parentID + "/" + name
	}
	p, err := c.abs(id)
	if err != nil {
		return backend.Object{}, err
	}
	if err := os.Mkdir(p, 0o755); err != nil {
		return backend.Object{}, c.wrapStat(err)
	}
	fi, err := os.Stat(p)
	if err != nil {
		return backend.Object{}, c.wrapStat(err)
	}
	return c.object(id, fi), nil
}

// CreateFile is unsupported; the mount daemon does not honor streamed
// writes on MTP mounts.
func (c *conn) CreateFile(ctx context.Context, parentID, name string, size int64) (io.WriteCloser, error) {
	return nil, backend.ErrUnsupported
}

// PushFile copies a local file into the device through gio, which speaks
// to the mount daemon directly instead of going through the kernel
// passthrough. Failures are transient more often than not (bus resets,
// daemon restarts), so they are marked retryable.
func (c *conn) PushFile(ctx context.Context, parentID, name, localPath string) error {
	dest := c.uri + "/" + name
	if parentID != "" {
		dest = c.uri + "/" + parentID + "/" + name
	}
	cmd := exec.CommandContext(ctx, "gio", "copy", localPath, dest)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return retry.Retryable(fmt.Errorf("gio copy to %q: %w: %s", dest, err, strings.TrimSpace(string(out))))
	}
	return nil
}

func (c *conn) Delete(ctx context.Context, id string, recursive bool) (bool, error) {
	p, err := c.abs(id)
	if err != nil {
		return false, err
	}
	if recursive {
		err = os.RemoveAll(p)
	} else {
		err = os.Remove(p)
	}
	if err != nil {
		return false, c.wrapStat(err)
	}
	return true, nil
}
