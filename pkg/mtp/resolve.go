package mtp

import (
	"context"
	"strings"
)

// splitPath splits a textual path on both separator conventions and drops
// empty components.
func splitPath(path string) []string {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve maps a textual path to a node by descending the tree one name at
// a time. A nil base resolves from the device root; otherwise the path is
// taken relative to base. A leading component equal to the device label is
// accepted and treated as the root. Name matching folds case only when the
// backend says it does. Resolution is read-only; it never creates folders.
//
// An unresolvable component fails with a PathNotFoundError naming that
// segment.
func (d *Device) Resolve(ctx context.Context, base *Node, path string) (*Node, error) {
	cur := base
	if cur == nil {
		cur = d.root
	}
	parts := splitPath(path)
	if len(parts) > 0 && parts[0] == d.Label() {
		cur = d.root
		parts = parts[1:]
	}
	for _, part := range parts {
		child, err := d.lookupChild(ctx, cur, part)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, &PathNotFoundError{Path: path, Segment: part}
		}
		cur = child
	}
	return cur, nil
}

// lookupChild finds an immediate child by name, or nil when absent.
func (d *Device) lookupChild(ctx context.Context, parent *Node, name string) (*Node, error) {
	children, err := parent.Children(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.name == name {
			return c, nil
		}
		if d.caps.FoldsCase && strings.EqualFold(c.name, name) {
			return c, nil
		}
	}
	return nil, nil
}

// Exists reports whether a path resolves. Resolution failures map to
// (false, nil); every other error propagates.
func (d *Device) Exists(ctx context.Context, path string) (bool, error) {
	_, err := d.Resolve(ctx, nil, path)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
