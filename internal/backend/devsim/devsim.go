// Package devsim implements an in-memory device backend. It exists for
// tests and for running the tool without hardware: the tree it serves is
// seeded programmatically or from a local directory, and its capability
// flags and failure behaviors are configurable so both the streaming and
// the staged upload paths can be exercised.
package devsim

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sinajet/nx-mtp-sender/pkg/backend"
)

const deviceID = "sim-device"

// Option configures a simulated backend.
type Option func(*Backend)

// WithCapabilities overrides the default capability flags (direct write,
// case-sensitive names, "/" separator).
func WithCapabilities(caps backend.Capabilities) Option {
	return func(b *Backend) { b.caps = caps }
}

// WithDeviceInfo overrides the reported device identity.
func WithDeviceInfo(info backend.DeviceInfo) Option {
	return func(b *Backend) { b.info = info }
}

// Backend is a simulated device holding one in-memory content tree.
type Backend struct {
	mu     sync.Mutex
	caps   backend.Capabilities
	info   backend.DeviceInfo
	root   *entry
	nextID int

	// Object IDs whose Delete reports success without removing the
	// entry. Mimics firmware that acknowledges no-op deletions.
	silentDelete map[string]bool

	// Parent object IDs whose Children call fails once with the mapped
	// error, then behaves normally.
	listFault map[string]error

	closed bool
}

type entry struct {
	id       string
	name     string
	tag      backend.TypeTag
	size     int64
	modified backend.RawTimestamp
	content  []byte
	parent   *entry
	children []*entry
}

// New creates a simulated backend with a device root and one storage
// named "Internal Storage".
func New(opts ...Option) *Backend {
	b := &Backend{
		caps: backend.Capabilities{
			DirectWrite: true,
			Separator:   "/",
		},
		info: backend.DeviceInfo{
			ID:           deviceID,
			Name:         "SimPhone",
			Description:  "Simulated Device",
			Serial:       "SIM0001",
			FriendlyName: true,
		},
		silentDelete: make(map[string]bool),
		listFault:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.root = &entry{id: b.newID(), name: "", tag: backend.TagDevice}
	b.attach(b.root, &entry{id: b.newID(), name: "Internal Storage", tag: backend.TagStorage})
	return b
}

func (b *Backend) newID() string {
	b.nextID++
	return fmt.Sprintf("sim-%d", b.nextID)
}

func (b *Backend) attach(parent, child *entry) {
	child.parent = parent
	parent.children = append(parent.children, child)
}

// find walks the in-memory tree by slash-separated path from the root.
// The first component is the storage name.
func (b *Backend) find(path string) *entry {
	cur := b.root
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		var next *entry
		for _, c := range cur.children {
			if c.name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func (b *Backend) byID(id string) *entry {
	var found *entry
	var walk func(e *entry)
	walk = func(e *entry) {
		if e.id == id {
			found = e
			return
		}
		for _, c := range e.children {
			walk(c)
		}
	}
	walk(b.root)
	return found
}

// AddFolder creates the folder at path, making parents as needed. Panics
// on conflict with an existing file; seeding mistakes are programmer
// errors.
func (b *Backend) AddFolder(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureFolder(path)
}

func (b *Backend) ensureFolder(path string) *entry {
	cur := b.root
	for i, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		var next *entry
		for _, c := range cur.children {
			if c.name == part {
				next = c
				break
			}
		}
		if next == nil {
			tag := backend.TagFolder
			if cur == b.root {
				tag = backend.TagStorage
			}
			next = &entry{id: b.newID(), name: part, tag: tag}
			b.attach(cur, next)
		} else if next.tag == backend.TagFile {
			panic(fmt.Sprintf("devsim: %q component %d is a file", path, i))
		}
		cur = next
	}
	return cur
}

// AddFile creates a file at path with the given content and timestamp,
// making parent folders as needed.
func (b *Backend) AddFile(path string, content []byte, modified backend.RawTimestamp) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dir, name := filepath.Split(strings.ReplaceAll(path, "\\", "/"))
	parent := b.ensureFolder(strings.TrimSuffix(dir, "/"))
	b.attach(parent, &entry{
		id:       b.newID(),
		name:     name,
		tag:      backend.TagFile,
		size:     int64(len(content)),
		content:  append([]byte(nil), content...),
		modified: modified,
	})
}

// SeedFromDir mirrors a local directory tree into the given storage.
func (b *Backend) SeedFromDir(storage, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		simPath := storage + "/" + filepath.ToSlash(rel)
		if d.IsDir() {
			b.AddFolder(simPath)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		b.AddFile(simPath, data, backend.RawTimestamp{
			Encoding: backend.TimeUnix,
			Unix:     info.ModTime().Unix(),
		})
		return nil
	})
}

// Drop removes the entry at path directly, bypassing the Conn interface.
// Tests use it to mutate the tree mid-walk.
func (b *Backend) Drop(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.find(path)
	if e == nil || e.parent == nil {
		return
	}
	b.detach(e)
}

func (b *Backend) detach(e *entry) {
	siblings := e.parent.children
	for i, c := range siblings {
		if c == e {
			e.parent.children = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}

// Rename changes the name of the entry at path directly, bypassing the
// Conn interface. Tests use it to mutate the tree behind a session.
func (b *Backend) Rename(path, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e := b.find(path); e != nil {
		e.name = name
	}
}

// SilentDeleteAt makes Delete on the entry at path report success without
// removing anything.
func (b *Backend) SilentDeleteAt(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e := b.find(path); e != nil {
		b.silentDelete[e.id] = true
	}
}

// FailNextListAt makes the next Children call on the folder at path fail
// with err.
func (b *Backend) FailNextListAt(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e := b.find(path); e != nil {
		b.listFault[e.id] = err
	}
}

func (b *Backend) ListDevices(ctx context.Context) ([]backend.DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, backend.ErrUnavailable
	}
	return []backend.DeviceInfo{b.info}, nil
}

func (b *Backend) Open(ctx context.Context, id string) (backend.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, backend.ErrUnavailable
	}
	if id != b.info.ID {
		return nil, fmt.Errorf("no such device %q: %w", id, backend.ErrUnavailable)
	}
	return &conn{b: b}, nil
}

func (b *Backend) Type() string { return "sim" }

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type conn struct {
	b      *Backend
	closed bool
}

func (c *conn) record(e *entry) backend.Object {
	return backend.Object{
		ID:       e.id,
		Name:     e.name,
		Tag:      e.tag,
		Size:     e.size,
		Modified: e.modified,
	}
}

func (c *conn) lookup(id string) (*entry, error) {
	if c.closed {
		return nil, backend.ErrUnavailable
	}
	e := c.b.byID(id)
	if e == nil {
		return nil, fmt.Errorf("object %q gone: %w", id, backend.ErrUnavailable)
	}
	return e, nil
}

func (c *conn) Root(ctx context.Context) (backend.Object, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return backend.Object{}, backend.ErrUnavailable
	}
	return c.record(c.b.root), nil
}

func (c *conn) Children(ctx context.Context, parentID string) ([]backend.Object, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if err, ok := c.b.listFault[parentID]; ok {
		delete(c.b.listFault, parentID)
		return nil, err
	}
	e, err := c.lookup(parentID)
	if err != nil {
		return nil, err
	}
	out := make([]backend.Object, 0, len(e.children))
	for _, child := range e.children {
		out = append(out, c.record(child))
	}
	return out, nil
}

func (c *conn) Properties(ctx context.Context, id string) (backend.Object, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	e, err := c.lookup(id)
	if err != nil {
		return backend.Object{}, err
	}
	return c.record(e), nil
}

func (c *conn) OpenRead(ctx context.Context, id string) (io.ReadCloser, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	if e.tag != backend.TagFile {
		return nil, fmt.Errorf("object %q is not a file", id)
	}
	return io.NopCloser(bytes.NewReader(e.content)), nil
}

func (c *conn) CreateFolder(ctx context.Context, parentID, name string) (backend.Object, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	parent, err := c.lookup(parentID)
	if err != nil {
		return backend.Object{}, err
	}
	for _, child := range parent.children {
		if child.name == name {
			return backend.Object{}, fmt.Errorf("entry %q already exists", name)
		}
	}
	e := &entry{id: c.b.newID(), name: name, tag: backend.TagFolder}
	c.b.attach(parent, e)
	return c.record(e), nil
}

func (c *conn) CreateFile(ctx context.Context, parentID, name string, size int64) (io.WriteCloser, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if !c.b.caps.DirectWrite {
		return nil, backend.ErrUnsupported
	}
	parent, err := c.lookup(parentID)
	if err != nil {
		return nil, err
	}
	return &simWriter{c: c, parent: parent, name: name}, nil
}

// simWriter buffers written content and commits the file entry on Close.
type simWriter struct {
	c      *conn
	parent *entry
	name   string
	buf    bytes.Buffer
}

func (w *simWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *simWriter) Close() error {
	w.c.b.mu.Lock()
	defer w.c.b.mu.Unlock()
	content := w.buf.Bytes()
	w.c.b.attach(w.parent, &entry{
		id:      w.c.b.newID(),
		name:    w.name,
		tag:     backend.TagFile,
		size:    int64(len(content)),
		content: append([]byte(nil), content...),
	})
	return nil
}

func (c *conn) PushFile(ctx context.Context, parentID, name, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	parent, err := c.lookup(parentID)
	if err != nil {
		return err
	}
	c.b.attach(parent, &entry{
		id:      c.b.newID(),
		name:    name,
		tag:     backend.TagFile,
		size:    int64(len(data)),
		content: data,
	})
	return nil
}

func (c *conn) Delete(ctx context.Context, id string, recursive bool) (bool, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	e, err := c.lookup(id)
	if err != nil {
		return false, err
	}
	if c.b.silentDelete[e.id] {
		return true, nil
	}
	if e.parent == nil {
		return false, fmt.Errorf("cannot delete device root")
	}
	if len(e.children) > 0 && !recursive {
		return false, fmt.Errorf("folder %q not empty", e.name)
	}
	c.b.detach(e)
	return true, nil
}

func (c *conn) Capabilities() backend.Capabilities { return c.b.caps }

func (c *conn) Close() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.closed = true
	return nil
}
