package mtp_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinajet/nx-mtp-sender/internal/backend/devsim"
	"github.com/sinajet/nx-mtp-sender/pkg/backend"
	"github.com/sinajet/nx-mtp-sender/pkg/mtp"
)

// stagedCaps disables direct writes so uploads exercise the push fallback.
var stagedCaps = backend.Capabilities{
	DirectWrite: false,
	Separator:   "/",
}

func newEngine(t *testing.T, dev *mtp.Device) *mtp.Engine {
	t.Helper()
	eng := mtp.NewEngine(dev)
	eng.StagingDir = t.TempDir()
	return eng
}

func writeLocal(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestUploadDirect(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFolder("Internal Storage/Documents")
	eng := newEngine(t, dev)

	ctx := context.Background()
	local := writeLocal(t, t.TempDir(), "a.txt", []byte("direct content"))

	docs, err := dev.Resolve(ctx, nil, "Internal Storage/Documents")
	require.NoError(t, err)

	node, err := eng.Upload(ctx, local, docs)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", node.Name())
	assert.EqualValues(t, len("direct content"), node.Size())
	assert.Equal(t, docs.FullName()+"/a.txt", node.FullName())
}

func TestUploadStagedFallback(t *testing.T) {
	sim, dev := openSim(t, devsim.WithCapabilities(stagedCaps))
	sim.AddFolder("Internal Storage/Documents")
	eng := newEngine(t, dev)

	ctx := context.Background()
	local := writeLocal(t, t.TempDir(), "a.txt", []byte("staged content"))

	docs, err := dev.Resolve(ctx, nil, "Internal Storage/Documents")
	require.NoError(t, err)

	node, err := eng.Upload(ctx, local, docs)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", node.Name())
	assert.EqualValues(t, len("staged content"), node.Size())

	// Nothing left behind in the staging directory.
	entries, err := os.ReadDir(eng.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadReaderBothPathsProduceIdenticalFiles(t *testing.T) {
	content := []byte("identical regardless of path")
	ctx := context.Background()

	for name, opts := range map[string][]devsim.Option{
		"direct": nil,
		"staged": {devsim.WithCapabilities(stagedCaps)},
	} {
		t.Run(name, func(t *testing.T) {
			sim, dev := openSim(t, opts...)
			sim.AddFolder("Internal Storage/Documents")
			eng := newEngine(t, dev)

			docs, err := dev.Resolve(ctx, nil, "Internal Storage/Documents")
			require.NoError(t, err)

			node, err := eng.UploadReader(ctx, bytes.NewReader(content), int64(len(content)), "r.bin", docs)
			require.NoError(t, err)
			assert.EqualValues(t, len(content), node.Size())

			dest := filepath.Join(t.TempDir(), "r.bin")
			require.NoError(t, eng.Download(ctx, node, dest))
			got, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Equal(t, content, got)
		})
	}
}

func TestUploadIntoFileFails(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/a.txt", []byte("x"), backend.RawTimestamp{})
	eng := newEngine(t, dev)

	ctx := context.Background()
	file, err := dev.Resolve(ctx, nil, "Internal Storage/a.txt")
	require.NoError(t, err)

	local := writeLocal(t, t.TempDir(), "b.txt", []byte("y"))
	_, err = eng.Upload(ctx, local, file)
	assert.ErrorIs(t, err, mtp.ErrNotAFolder)
}

func TestDownloadFile(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/a.txt", []byte("device bytes"), backend.RawTimestamp{})
	eng := newEngine(t, dev)

	ctx := context.Background()
	node, err := dev.Resolve(ctx, nil, "Internal Storage/a.txt")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, eng.Download(ctx, node, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("device bytes"), got)
}

func TestDownloadFolderRecreatesStructure(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/docs/a.txt", []byte("aa"), backend.RawTimestamp{})
	sim.AddFile("Internal Storage/docs/sub/b.txt", []byte("bb"), backend.RawTimestamp{})
	eng := newEngine(t, dev)

	ctx := context.Background()
	docs, err := dev.Resolve(ctx, nil, "Internal Storage/docs")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, eng.Download(ctx, docs, dest))

	a, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("aa"), a)

	b, err := os.ReadFile(filepath.Join(dest, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bb"), b)
}

func TestUploadTreeRoundTrip(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFolder("Internal Storage/backup")
	eng := newEngine(t, dev)

	src := t.TempDir()
	writeLocal(t, src, "a.txt", []byte("aa"))
	writeLocal(t, src, filepath.Join("nested", "deep", "b.txt"), []byte("bb"))

	ctx := context.Background()
	backup, err := dev.Resolve(ctx, nil, "Internal Storage/backup")
	require.NoError(t, err)
	require.NoError(t, eng.UploadTree(ctx, src, backup))

	uploaded, err := dev.Resolve(ctx, backup, filepath.Base(src))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "restored")
	require.NoError(t, eng.Download(ctx, uploaded, dest))

	a, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("aa"), a)

	b, err := os.ReadFile(filepath.Join(dest, "nested", "deep", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bb"), b)
}

func TestRemoveFile(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/a.txt", []byte("x"), backend.RawTimestamp{})
	eng := newEngine(t, dev)

	ctx := context.Background()
	node, err := dev.Resolve(ctx, nil, "Internal Storage/a.txt")
	require.NoError(t, err)
	require.NoError(t, eng.Remove(ctx, node))

	ok, err := dev.Exists(ctx, "Internal Storage/a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveFolderRecursive(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/docs/sub/a.txt", []byte("x"), backend.RawTimestamp{})
	eng := newEngine(t, dev)

	ctx := context.Background()
	docs, err := dev.Resolve(ctx, nil, "Internal Storage/docs")
	require.NoError(t, err)
	require.NoError(t, eng.Remove(ctx, docs))

	ok, err := dev.Exists(ctx, "Internal Storage/docs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveDetectsIneffectiveDelete(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/sticky.txt", []byte("x"), backend.RawTimestamp{})
	sim.SilentDeleteAt("Internal Storage/sticky.txt")
	eng := newEngine(t, dev)

	ctx := context.Background()
	node, err := dev.Resolve(ctx, nil, "Internal Storage/sticky.txt")
	require.NoError(t, err)

	err = eng.Remove(ctx, node)
	assert.ErrorIs(t, err, mtp.ErrDeleteIneffective)
}

func TestSizeFile(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/a.txt", []byte("12345"), backend.RawTimestamp{})
	eng := newEngine(t, dev)

	ctx := context.Background()
	node, err := dev.Resolve(ctx, nil, "Internal Storage/a.txt")
	require.NoError(t, err)

	n, err := eng.Size(ctx, node)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestSizeFolderAggregates(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/docs/a.txt", []byte("12345"), backend.RawTimestamp{})
	sim.AddFile("Internal Storage/docs/sub/b.txt", []byte("123"), backend.RawTimestamp{})
	sim.AddFolder("Internal Storage/docs/empty")
	eng := newEngine(t, dev)

	ctx := context.Background()
	docs, err := dev.Resolve(ctx, nil, "Internal Storage/docs")
	require.NoError(t, err)

	n, err := eng.Size(ctx, docs)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
}

func TestMakeDirs(t *testing.T) {
	_, dev := openSim(t)
	eng := newEngine(t, dev)

	ctx := context.Background()
	node, err := eng.MakeDirs(ctx, "Internal Storage/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "c", node.Name())

	ok, err := dev.Exists(ctx, "Internal Storage/a/b/c")
	require.NoError(t, err)
	assert.True(t, ok)

	// Creating the same path again is a no-op returning the same folder.
	again, err := eng.MakeDirs(ctx, "Internal Storage/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, node.ID(), again.ID())
}

func TestMakeDirsCannotCreateStorage(t *testing.T) {
	_, dev := openSim(t)
	eng := newEngine(t, dev)

	_, err := eng.MakeDirs(context.Background(), "No Such Storage/folder")
	var nf *mtp.PathNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "No Such Storage", nf.Segment)
}

func TestMakeDirsRejectsFileComponent(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/a.txt", []byte("x"), backend.RawTimestamp{})
	eng := newEngine(t, dev)

	_, err := eng.MakeDirs(context.Background(), "Internal Storage/a.txt/sub")
	assert.ErrorIs(t, err, mtp.ErrNotAFolder)
}
