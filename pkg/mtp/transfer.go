package mtp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sinajet/nx-mtp-sender/internal/logging"
	"github.com/sinajet/nx-mtp-sender/internal/metrics"
	"github.com/sinajet/nx-mtp-sender/internal/retry"
)

// Engine copies bytes between the local filesystem and device content, in
// both directions, and carries the delete and size-aggregation operations.
// Uploads pick the direct streaming path or the staged fallback from the
// backend's capability flags; both paths produce byte-identical results
// and identical resulting node metadata.
type Engine struct {
	Device *Device

	// StagingDir holds temp files for the staged upload fallback. Empty
	// means the OS temp directory.
	StagingDir string

	// Retry governs re-attempts of operations a backend marks transient.
	Retry retry.Config
}

// NewEngine creates a transfer engine for one open device.
func NewEngine(dev *Device) *Engine {
	return &Engine{
		Device: dev,
		Retry:  retry.DefaultConfig(),
	}
}

// Download streams device content to local storage. For a file, dest is
// the local file to write. For a folder, the folder's structure is
// recreated under dest and every file in it is downloaded. No partial-file
// cleanup is attempted on failure; the caller decides.
func (e *Engine) Download(ctx context.Context, node *Node, dest string) error {
	if !node.IsFolder() {
		return e.downloadFile(ctx, node, dest)
	}

	rootPath := node.FullName()
	sep := e.Device.caps.Separator
	return e.Device.Walk(ctx, node, func(path string, n *Node) error {
		rel := strings.TrimPrefix(strings.TrimPrefix(path, rootPath), sep)
		local := dest
		if rel != "" {
			segs := strings.Split(rel, sep)
			local = filepath.Join(append([]string{dest}, segs...)...)
		}
		if n.IsFolder() {
			if err := os.MkdirAll(local, 0o755); err != nil {
				return &TransferError{Op: "download", Path: path, Err: err}
			}
			return nil
		}
		return e.downloadFile(ctx, n, local)
	})
}

func (e *Engine) downloadFile(ctx context.Context, node *Node, dest string) error {
	if node.IsFolder() {
		return &TransferError{Op: "download", Path: node.FullName(), Err: ErrIsAFolder}
	}

	start := time.Now()
	rc, err := retry.DoWithResult(ctx, e.Retry, func() (io.ReadCloser, error) {
		return e.Device.conn.OpenRead(ctx, node.id)
	})
	if err != nil {
		metrics.RecordDownload(0, time.Since(start), err)
		return &TransferError{Op: "download", Path: node.FullName(), Err: err}
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		metrics.RecordDownload(0, time.Since(start), err)
		return &TransferError{Op: "download", Path: node.FullName(), Err: err}
	}

	n, err := io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	metrics.RecordDownload(n, time.Since(start), err)
	if err != nil {
		return &TransferError{Op: "download", Path: node.FullName(), Err: err}
	}

	logging.Debug("downloaded file",
		logging.String("path", node.FullName()),
		logging.Int64("bytes", n))
	return nil
}

// Upload copies one local file into the destination folder on the device
// and returns the node of the newly created file.
func (e *Engine) Upload(ctx context.Context, localPath string, folder *Node) (*Node, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, &TransferError{Op: "upload", Path: localPath, Err: err}
	}
	if info.IsDir() {
		return nil, &TransferError{Op: "upload", Path: localPath, Err: ErrIsAFolder}
	}
	return e.uploadLocal(ctx, folder, filepath.Base(localPath), localPath, info.Size())
}

// UploadReader copies content from r into folder/name on the device. When
// the backend cannot stream directly, the content is staged to a local
// temp file first and pushed through the backend's side channel.
func (e *Engine) UploadReader(ctx context.Context, r io.Reader, size int64, name string, folder *Node) (*Node, error) {
	if e.Device.caps.DirectWrite {
		return e.uploadStream(ctx, folder, name, r, size)
	}

	// Staged fallback: materialize the content locally, then push.
	staging := e.StagingDir
	if staging == "" {
		staging = os.TempDir()
	}
	tmpPath := filepath.Join(staging, "mtp-stage-"+uuid.NewString())
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return nil, &TransferError{Op: "upload", Path: name, Err: err}
	}
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, &TransferError{Op: "upload", Path: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &TransferError{Op: "upload", Path: name, Err: err}
	}
	return e.uploadLocal(ctx, folder, name, tmpPath, size)
}

// uploadLocal uploads a file that already exists on the local filesystem,
// choosing the write path from the backend capability flag.
func (e *Engine) uploadLocal(ctx context.Context, folder *Node, name, localPath string, size int64) (*Node, error) {
	if !folder.IsFolder() {
		return nil, &TransferError{Op: "upload", Path: folder.FullName(), Err: ErrNotAFolder}
	}

	if e.Device.caps.DirectWrite {
		f, err := os.Open(localPath)
		if err != nil {
			return nil, &TransferError{Op: "upload", Path: name, Err: err}
		}
		defer f.Close()
		return e.uploadStream(ctx, folder, name, f, size)
	}

	start := time.Now()
	err := retry.Do(ctx, e.Retry, func() error {
		return e.Device.conn.PushFile(ctx, folder.id, name, localPath)
	})
	metrics.RecordUpload(size, true, time.Since(start), err)
	if err != nil {
		return nil, &TransferError{Op: "upload", Path: name, Err: err}
	}
	return e.verifyUploaded(ctx, folder, name)
}

// uploadStream writes content through a direct backend write handle.
func (e *Engine) uploadStream(ctx context.Context, folder *Node, name string, r io.Reader, size int64) (*Node, error) {
	if !folder.IsFolder() {
		return nil, &TransferError{Op: "upload", Path: folder.FullName(), Err: ErrNotAFolder}
	}

	start := time.Now()
	w, err := e.Device.conn.CreateFile(ctx, folder.id, name, size)
	if err != nil {
		metrics.RecordUpload(0, false, time.Since(start), err)
		return nil, &TransferError{Op: "upload", Path: name, Err: err}
	}

	n, err := io.Copy(w, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	metrics.RecordUpload(n, false, time.Since(start), err)
	if err != nil {
		return nil, &TransferError{Op: "upload", Path: name, Err: err}
	}
	return e.verifyUploaded(ctx, folder, name)
}

// verifyUploaded re-resolves the new child so callers get a node with the
// metadata the device actually recorded, identical across write paths.
func (e *Engine) verifyUploaded(ctx context.Context, folder *Node, name string) (*Node, error) {
	child, err := e.Device.lookupChild(ctx, folder, name)
	if err != nil {
		return nil, &TransferError{Op: "upload", Path: name, Err: err}
	}
	if child == nil {
		return nil, &TransferError{
			Op:   "upload",
			Path: name,
			Err:  fmt.Errorf("file missing after upload"),
		}
	}
	logging.Debug("uploaded file",
		logging.String("path", child.FullName()),
		logging.Int64("bytes", child.Size()))
	return child, nil
}

// UploadTree recursively copies a local directory into the destination
// folder, recreating the directory structure on the device.
func (e *Engine) UploadTree(ctx context.Context, localDir string, folder *Node) error {
	info, err := os.Stat(localDir)
	if err != nil {
		return &TransferError{Op: "upload", Path: localDir, Err: err}
	}
	if !info.IsDir() {
		return &TransferError{Op: "upload", Path: localDir, Err: ErrNotAFolder}
	}

	// Device folder per local directory, created on first visit.
	devDirs := map[string]*Node{}
	root, err := e.ensureChildFolder(ctx, folder, filepath.Base(localDir))
	if err != nil {
		return err
	}
	devDirs[localDir] = root

	return filepath.WalkDir(localDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return &TransferError{Op: "upload", Path: path, Err: err}
		}
		if path == localDir {
			return nil
		}
		parent := devDirs[filepath.Dir(path)]
		if parent == nil {
			return &TransferError{
				Op:   "upload",
				Path: path,
				Err:  fmt.Errorf("device folder for %q missing", filepath.Dir(path)),
			}
		}
		if entry.IsDir() {
			dir, err := e.ensureChildFolder(ctx, parent, entry.Name())
			if err != nil {
				return err
			}
			devDirs[path] = dir
			return nil
		}
		_, err = e.Upload(ctx, path, parent)
		return err
	})
}

// ensureChildFolder resolves or creates one folder under parent.
func (e *Engine) ensureChildFolder(ctx context.Context, parent *Node, name string) (*Node, error) {
	child, err := e.Device.lookupChild(ctx, parent, name)
	if err != nil {
		return nil, err
	}
	if child != nil {
		if !child.IsFolder() {
			return nil, &TransferError{Op: "mkdirs", Path: child.FullName(), Err: ErrNotAFolder}
		}
		return child, nil
	}
	obj, err := e.Device.conn.CreateFolder(ctx, parent.id, name)
	if err != nil {
		return nil, &TransferError{Op: "mkdirs", Path: name, Err: err}
	}
	return e.Device.newNode(obj, parent.id)
}

// MakeDirs creates every missing folder along path and returns the node of
// the last one. Storages cannot be created; a missing first component
// fails with a PathNotFoundError.
func (e *Engine) MakeDirs(ctx context.Context, path string) (*Node, error) {
	d := e.Device
	parts := splitPath(path)
	if len(parts) > 0 && parts[0] == d.Label() {
		parts = parts[1:]
	}

	cur := d.root
	for i, part := range parts {
		child, err := d.lookupChild(ctx, cur, part)
		if err != nil {
			return nil, err
		}
		if child == nil {
			if i == 0 {
				// Storage level; only the device can create these.
				return nil, &PathNotFoundError{Path: path, Segment: part}
			}
			child, err = e.ensureChildFolder(ctx, cur, part)
			if err != nil {
				return nil, err
			}
		} else if !child.IsFolder() {
			return nil, &TransferError{Op: "mkdirs", Path: child.FullName(), Err: ErrNotAFolder}
		}
		cur = child
	}
	return cur, nil
}

// Remove deletes a file or folder, recursively for folders. The backend's
// success report is not trusted: the entry is re-checked afterwards and a
// surviving entry surfaces as ErrDeleteIneffective.
func (e *Engine) Remove(ctx context.Context, node *Node) error {
	parent := node.Parent()
	if parent == nil {
		err := fmt.Errorf("cannot delete device root")
		metrics.RecordDelete(err)
		return &TransferError{Op: "remove", Path: node.FullName(), Err: err}
	}

	ok, err := e.Device.conn.Delete(ctx, node.id, true)
	if err != nil {
		metrics.RecordDelete(err)
		return &TransferError{Op: "remove", Path: node.FullName(), Err: err}
	}
	if !ok {
		err := fmt.Errorf("backend rejected delete")
		metrics.RecordDelete(err)
		return &TransferError{Op: "remove", Path: node.FullName(), Err: err}
	}

	// Post-condition: some backends return success codes for no-op
	// deletions, so confirm absence by re-enumerating the parent.
	children, err := parent.Children(ctx)
	if err != nil {
		metrics.RecordDelete(err)
		return &TransferError{Op: "remove", Path: node.FullName(), Err: err}
	}
	for _, c := range children {
		if c.id == node.id {
			metrics.RecordDelete(ErrDeleteIneffective)
			return &TransferError{Op: "remove", Path: node.FullName(), Err: ErrDeleteIneffective}
		}
	}
	metrics.RecordDelete(nil)
	logging.Debug("removed entry", logging.String("path", node.FullName()))
	return nil
}

// Size returns a file's stored size, or for folders the sum of sizes of
// all descendant files, computed by walking the subtree. Never cached;
// device contents can mutate between calls.
func (e *Engine) Size(ctx context.Context, node *Node) (int64, error) {
	if !node.IsFolder() {
		return node.Size(), nil
	}
	var total int64
	err := e.Device.Walk(ctx, node, func(_ string, n *Node) error {
		if !n.IsFolder() {
			total += n.Size()
		}
		return nil
	})
	if err != nil {
		return 0, &TransferError{Op: "size", Path: node.FullName(), Err: err}
	}
	return total, nil
}
