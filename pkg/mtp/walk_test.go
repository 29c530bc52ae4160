package mtp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinajet/nx-mtp-sender/pkg/backend"
	"github.com/sinajet/nx-mtp-sender/pkg/mtp"
)

func TestWalkPreOrder(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/docs/a.txt", []byte("x"), backend.RawTimestamp{})
	sim.AddFile("Internal Storage/docs/b.txt", []byte("x"), backend.RawTimestamp{})
	sim.AddFolder("Internal Storage/music")

	var names []string
	err := dev.Walk(context.Background(), dev.Root(), func(path string, n *mtp.Node) error {
		names = append(names, n.Name())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		dev.Label(), "Internal Storage", "docs", "a.txt", "b.txt", "music",
	}, names)
}

func TestWalkFromSubfolder(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/docs/a.txt", []byte("x"), backend.RawTimestamp{})

	ctx := context.Background()
	docs, err := dev.Resolve(ctx, nil, "Internal Storage/docs")
	require.NoError(t, err)

	var paths []string
	err = dev.Walk(ctx, docs, func(path string, n *mtp.Node) error {
		paths = append(paths, path)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, docs.FullName(), paths[0])
	assert.Equal(t, docs.FullName()+"/a.txt", paths[1])
}

func TestWalkSingleFile(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/a.txt", []byte("x"), backend.RawTimestamp{})

	ctx := context.Background()
	file, err := dev.Resolve(ctx, nil, "Internal Storage/a.txt")
	require.NoError(t, err)

	var count int
	err = dev.Walk(ctx, file, func(string, *mtp.Node) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWalkCallbackErrorAborts(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/a.txt", []byte("x"), backend.RawTimestamp{})
	sim.AddFile("Internal Storage/b.txt", []byte("x"), backend.RawTimestamp{})

	stop := errors.New("stop")
	var seen int
	err := dev.Walk(context.Background(), dev.Root(), func(path string, n *mtp.Node) error {
		seen++
		if n.Name() == "a.txt" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, seen)
}

func TestWalkEntryFailureAbortsByDefault(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFolder("Internal Storage/boom")
	sim.AddFile("Internal Storage/keep/k.txt", []byte("x"), backend.RawTimestamp{})

	boom := errors.New("device hiccup")
	sim.FailNextListAt("Internal Storage/boom", boom)

	err := dev.Walk(context.Background(), dev.Root(), func(string, *mtp.Node) error {
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestWalkEntryFailureSwallowedContinuesSiblings(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFolder("Internal Storage/boom")
	sim.AddFile("Internal Storage/keep/k.txt", []byte("x"), backend.RawTimestamp{})

	boom := errors.New("device hiccup")
	sim.FailNextListAt("Internal Storage/boom", boom)

	var handled []string
	var names []string
	err := dev.Walk(context.Background(), dev.Root(),
		func(path string, n *mtp.Node) error {
			names = append(names, n.Name())
			return nil
		},
		mtp.WithErrorHandler(func(path string, err error) error {
			handled = append(handled, path)
			return nil
		}),
	)
	require.NoError(t, err)
	require.Len(t, handled, 1)
	assert.Contains(t, handled[0], "boom")
	// The sibling subtree after the failure is still visited.
	assert.Contains(t, names, "keep")
	assert.Contains(t, names, "k.txt")
}

func TestWalkEntryVanishesMidWalk(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/gone/g.txt", []byte("x"), backend.RawTimestamp{})
	sim.AddFile("Internal Storage/keep/k.txt", []byte("x"), backend.RawTimestamp{})

	var names []string
	err := dev.Walk(context.Background(), dev.Root(),
		func(path string, n *mtp.Node) error {
			names = append(names, n.Name())
			// Pull the folder out from under the walker right after it
			// is yielded, before its children are enumerated.
			if n.Name() == "gone" {
				sim.Drop("Internal Storage/gone")
			}
			return nil
		},
		mtp.WithErrorHandler(func(path string, err error) error {
			return nil
		}),
	)
	require.NoError(t, err)
	assert.NotContains(t, names, "g.txt")
	assert.Contains(t, names, "k.txt")
}

func TestWalkContextCancellation(t *testing.T) {
	sim, dev := openSim(t)
	sim.AddFile("Internal Storage/docs/a.txt", []byte("x"), backend.RawTimestamp{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := dev.Walk(ctx, dev.Root(), func(string, *mtp.Node) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
