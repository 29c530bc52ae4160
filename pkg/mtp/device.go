// Package mtp implements a platform-independent content tree over MTP
// devices. A Device wraps one open backend session and owns the tree of
// Nodes below it; resolution, traversal and transfers all operate on this
// model and behave identically regardless of which backend supplies the
// data.
package mtp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sinajet/nx-mtp-sender/pkg/backend"
)

// Device is the root of one device's content tree, scoped to a single open
// backend session. Not safe for concurrent use; the underlying device link
// is single-session.
type Device struct {
	conn backend.Conn
	caps backend.Capabilities
	info backend.DeviceInfo
	name string

	// Node table. Parent references are resolved through this table so
	// ownership flows strictly root to leaf; nodes hold parent IDs, not
	// back-pointers.
	nodes map[string]*Node
	root  *Node

	closed bool
}

// OpenDevice acquires a session for the given device and builds its root
// node. The caller must Close the device on every exit path.
func OpenDevice(ctx context.Context, b backend.Backend, info backend.DeviceInfo) (*Device, error) {
	conn, err := b.Open(ctx, info.ID)
	if err != nil {
		return nil, fmt.Errorf("open device %q: %w", info.ID, err)
	}

	d := &Device{
		conn:  conn,
		caps:  conn.Capabilities(),
		info:  info,
		name:  displayName(info),
		nodes: make(map[string]*Node),
	}

	rootObj, err := conn.Root(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read device root: %w", err)
	}
	root, err := d.newNode(rootObj, "")
	if err != nil {
		conn.Close()
		return nil, err
	}
	root.name = d.Label()
	d.root = root
	return d, nil
}

// displayName picks the user-facing device name. Devices without a friendly
// name fall back to their description, then to a generated placeholder.
func displayName(info backend.DeviceInfo) string {
	if info.FriendlyName && info.Name != "" {
		return info.Name
	}
	if info.Description != "" {
		return info.Description
	}
	return "portable-device-" + uuid.NewString()[:8]
}

// Close releases the backend session. Safe to call more than once.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.conn.Close()
}

// ID returns the backend-native device identifier (opaque).
func (d *Device) ID() string { return d.info.ID }

// Name returns the user-facing device name.
func (d *Device) Name() string { return d.name }

// Description returns the device description.
func (d *Device) Description() string { return d.info.Description }

// Serial returns the device serial number, if reported.
func (d *Device) Serial() string { return d.info.Serial }

// Label returns the full device name used as the first path component,
// built from name, description and serial.
func (d *Device) Label() string {
	return joinLabel(d.name, d.info.Description, d.info.Serial)
}

// LabelFor returns the label a device will carry once opened. Useful for
// listing devices without opening sessions.
func LabelFor(info backend.DeviceInfo) string {
	return joinLabel(displayName(info), info.Description, info.Serial)
}

func joinLabel(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "_")
}

// Capabilities reports the backend session's behavior flags.
func (d *Device) Capabilities() backend.Capabilities { return d.caps }

// Root returns the device root node. Its children are the storages.
func (d *Device) Root() *Node { return d.root }

// Storages lists the device's storages (the root's children).
func (d *Device) Storages(ctx context.Context) ([]*Node, error) {
	return d.root.Children(ctx)
}

// newNode normalizes a raw backend object into a Node and registers it in
// the device's node table.
func (d *Device) newNode(obj backend.Object, parentID string) (*Node, error) {
	kind, err := normalizeKind(obj.Tag)
	if err != nil {
		return nil, err
	}
	modified, err := normalizeTimestamp(obj.Modified)
	if err != nil {
		return nil, err
	}
	n := &Node{
		dev:      d,
		id:       obj.ID,
		parentID: parentID,
		name:     obj.Name,
		kind:     kind,
		size:     obj.Size,
		modified: modified,
	}
	d.nodes[obj.ID] = n
	return n, nil
}

// Node represents one file or folder on the device. Nodes are created from
// backend records during enumeration; their IDs are stable for the session
// only.
type Node struct {
	dev      *Device
	id       string
	parentID string
	name     string
	kind     Kind
	size     int64
	modified time.Time

	// Memoized absolute path; recomputable from the parent chain.
	fullName string
}

// ID returns the backend-native object identifier (opaque, session-scoped).
func (n *Node) ID() string { return n.id }

// Name returns the display name. Not guaranteed path-safe.
func (n *Node) Name() string { return n.name }

// Kind reports whether the node is a folder or a file.
func (n *Node) Kind() Kind { return n.kind }

// IsFolder reports whether the node can have children.
func (n *Node) IsFolder() bool { return n.kind == KindFolder }

// Size returns the stored size in bytes. Folders report 0; use
// Engine.Size for the walked aggregate.
func (n *Node) Size() int64 {
	if n.kind == KindFolder {
		return 0
	}
	return n.size
}

// Modified returns the canonical UTC last-modification instant. Zero when
// the backend reported none.
func (n *Node) Modified() time.Time { return n.modified }

// Device returns the owning device.
func (n *Node) Device() *Device { return n.dev }

// Parent resolves the weak back-reference through the device node table.
// Returns nil for the device root.
func (n *Node) Parent() *Node {
	if n.parentID == "" {
		return nil
	}
	return n.dev.nodes[n.parentID]
}

// FullName returns the absolute path from the device root to this node,
// joined with the backend's separator. Computed lazily from the parent
// chain and memoized.
func (n *Node) FullName() string {
	if n.fullName != "" {
		return n.fullName
	}
	parent := n.Parent()
	if parent == nil {
		n.fullName = n.name
	} else {
		n.fullName = parent.FullName() + n.dev.caps.Separator + n.name
	}
	return n.fullName
}

// invalidatePath drops the memoized path so it is recomputed from the
// parent chain on next use.
func (n *Node) invalidatePath() {
	n.fullName = ""
}

// invalidateSubtree drops the memoized path of root and of every
// registered node below it. A renamed folder changes the path of its
// whole subtree, not just its own.
func (d *Device) invalidateSubtree(root *Node) {
	root.invalidatePath()
	for _, n := range d.nodes {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p == root {
				n.invalidatePath()
				break
			}
		}
	}
}

// Children returns the immediate children of a folder. Every call issues a
// fresh backend query; no listing is cached, so structural changes on the
// device are picked up on the next enumeration. Files have no children.
func (n *Node) Children(ctx context.Context) ([]*Node, error) {
	if n.kind != KindFolder {
		return nil, nil
	}
	objs, err := n.dev.conn.Children(ctx, n.id)
	if err != nil {
		return nil, fmt.Errorf("list children of %q: %w", n.FullName(), err)
	}
	children := make([]*Node, 0, len(objs))
	for _, obj := range objs {
		child, err := n.dev.newNode(obj, n.id)
		if err != nil {
			return nil, fmt.Errorf("child of %q: %w", n.FullName(), err)
		}
		children = append(children, child)
	}
	return children, nil
}

// Refresh re-reads the node's raw properties from the backend.
func (n *Node) Refresh(ctx context.Context) error {
	obj, err := n.dev.conn.Properties(ctx, n.id)
	if err != nil {
		return fmt.Errorf("refresh %q: %w", n.FullName(), err)
	}
	kind, err := normalizeKind(obj.Tag)
	if err != nil {
		return err
	}
	modified, err := normalizeTimestamp(obj.Modified)
	if err != nil {
		return err
	}
	if obj.Name != n.name {
		n.name = obj.Name
		n.dev.invalidateSubtree(n)
	}
	n.kind = kind
	n.size = obj.Size
	n.modified = modified
	return nil
}
