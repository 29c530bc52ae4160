package mtp

import (
	"context"
	"fmt"

	"github.com/sinajet/nx-mtp-sender/internal/metrics"
)

// WalkFunc is called once per visited node with its absolute path. A
// non-nil return aborts the walk.
type WalkFunc func(path string, node *Node) error

// ErrorHandler decides what happens when enumerating one entry fails,
// typically because it vanished between listing and descent. Returning nil
// skips the entry and continues with its remaining siblings; returning an
// error aborts the walk with that error.
type ErrorHandler func(path string, err error) error

// WalkOption configures a walk.
type WalkOption func(*walker)

// WithErrorHandler installs a per-entry error handler. The default handler
// re-raises, so a vanished entry aborts the walk (fail-fast).
func WithErrorHandler(h ErrorHandler) WalkOption {
	return func(w *walker) { w.onError = h }
}

type walker struct {
	dev     *Device
	fn      WalkFunc
	onError ErrorHandler

	// Folder IDs entered during this walk. A well-formed device tree
	// never revisits one; a revisit means the backend reported a folder
	// as its own ancestor, which is routed through the error handler
	// instead of looping forever.
	visited map[string]bool
}

// Walk produces a depth-first pre-order traversal of the tree rooted at
// root, calling fn for every node encountered, root first. Children are
// re-enumerated from the backend at each folder, so the walk is bounded by
// the tree size at traversal time. Sibling order follows backend
// enumeration order.
//
// Entry failures during child enumeration do not abort the whole walk
// unless the error handler says so; see WithErrorHandler.
func (d *Device) Walk(ctx context.Context, root *Node, fn WalkFunc, opts ...WalkOption) error {
	w := &walker{
		dev:     d,
		fn:      fn,
		onError: func(_ string, err error) error { return err },
		visited: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	metrics.RecordWalkEntry()
	if err := fn(root.FullName(), root); err != nil {
		return err
	}
	if !root.IsFolder() {
		return nil
	}
	w.visited[root.id] = true
	return w.walkFolder(ctx, root)
}

func (w *walker) walkFolder(ctx context.Context, folder *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	children, err := folder.Children(ctx)
	if err != nil {
		metrics.RecordWalkError()
		return w.onError(folder.FullName(), err)
	}

	for _, child := range children {
		metrics.RecordWalkEntry()
		if err := w.fn(child.FullName(), child); err != nil {
			return err
		}
		if !child.IsFolder() {
			continue
		}
		if w.visited[child.id] {
			metrics.RecordWalkError()
			err := fmt.Errorf("folder %q reported as its own ancestor", child.FullName())
			if herr := w.onError(child.FullName(), err); herr != nil {
				return herr
			}
			continue
		}
		w.visited[child.id] = true
		if err := w.walkFolder(ctx, child); err != nil {
			return err
		}
	}
	return nil
}
