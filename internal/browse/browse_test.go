package browse

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinajet/nx-mtp-sender/internal/backend/devsim"
	"github.com/sinajet/nx-mtp-sender/pkg/backend"
	"github.com/sinajet/nx-mtp-sender/pkg/mtp"
)

func newBrowserModel(t *testing.T) (*devsim.Backend, Model) {
	t.Helper()
	sim := devsim.New()
	sim.AddFile("Internal Storage/docs/a.txt", []byte("12345"), backend.RawTimestamp{})

	ctx := context.Background()
	devices, err := sim.ListDevices(ctx)
	require.NoError(t, err)
	dev, err := mtp.OpenDevice(ctx, sim, devices[0])
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	return sim, New(dev)
}

func TestItemLabels(t *testing.T) {
	sim, m := newBrowserModel(t)
	_ = sim

	docs, err := m.dev.Resolve(context.Background(), nil, "Internal Storage/docs")
	require.NoError(t, err)
	folder := item{node: docs}
	assert.Equal(t, "docs/", folder.Title())
	assert.Equal(t, "folder", folder.Description())

	file, err := m.dev.Resolve(context.Background(), nil, "Internal Storage/docs/a.txt")
	require.NoError(t, err)
	fi := item{node: file}
	assert.Equal(t, "a.txt", fi.Title())
	assert.Contains(t, fi.Description(), "5 bytes")
	assert.Equal(t, "a.txt", fi.FilterValue())
}

func TestInitLoadsRootChildren(t *testing.T) {
	_, m := newBrowserModel(t)

	cmd := m.Init()
	require.NotNil(t, cmd)
	msg, ok := cmd().(childrenMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	require.Len(t, msg.nodes, 1)
	assert.Equal(t, "Internal Storage", msg.nodes[0].Name())
}

func TestUpdateAppliesChildren(t *testing.T) {
	_, m := newBrowserModel(t)

	msg := m.load(m.cur)()
	next, _ := m.Update(msg)
	got := next.(Model)
	require.Len(t, got.list.Items(), 1)
	assert.Equal(t, got.dev.Label(), got.list.Title)
}

func TestUpdateKeepsErrorVisible(t *testing.T) {
	sim, m := newBrowserModel(t)
	sim.Close()

	msg := m.load(m.cur)()
	next, _ := m.Update(msg)
	got := next.(Model)
	require.Error(t, got.err)
	assert.Contains(t, got.View(), "error")
}

func TestQuitKey(t *testing.T) {
	_, m := newBrowserModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
