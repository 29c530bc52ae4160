// Package browse implements an interactive terminal browser over a
// device content tree. Navigation is read-only; every descent issues a
// fresh enumeration so the view tracks the device.
package browse

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sinajet/nx-mtp-sender/pkg/mtp"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Padding(1, 2)
)

// item adapts a tree node for the list component.
type item struct {
	node *mtp.Node
}

func (i item) Title() string {
	if i.node.IsFolder() {
		return i.node.Name() + "/"
	}
	return i.node.Name()
}

func (i item) Description() string {
	if i.node.IsFolder() {
		return "folder"
	}
	desc := fmt.Sprintf("%d bytes", i.node.Size())
	if mod := i.node.Modified(); !mod.IsZero() {
		desc += "  " + mod.Format("2006-01-02 15:04")
	}
	return desc
}

func (i item) FilterValue() string { return i.node.Name() }

type childrenMsg struct {
	parent *mtp.Node
	nodes  []*mtp.Node
	err    error
}

// Model is the browser state: the current folder and the trail back to
// the device root.
type Model struct {
	dev   *mtp.Device
	cur   *mtp.Node
	trail []*mtp.Node
	list  list.Model
	err   error
}

// New creates a browser rooted at the device root.
func New(dev *mtp.Device) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = dev.Label()
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	return Model{
		dev:  dev,
		cur:  dev.Root(),
		list: l,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load(m.cur)
}

func (m Model) load(folder *mtp.Node) tea.Cmd {
	return func() tea.Msg {
		nodes, err := folder.Children(context.Background())
		return childrenMsg{parent: folder, nodes: nodes, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case childrenMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.nodes))
		for i, n := range msg.nodes {
			items[i] = item{node: n}
		}
		m.cur = msg.parent
		m.list.Title = m.cur.FullName()
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "enter", "l", "right":
			sel, ok := m.list.SelectedItem().(item)
			if !ok || !sel.node.IsFolder() {
				return m, nil
			}
			m.trail = append(m.trail, m.cur)
			return m, m.load(sel.node)

		case "backspace", "h", "left":
			if len(m.trail) == 0 {
				return m, nil
			}
			parent := m.trail[len(m.trail)-1]
			m.trail = m.trail[:len(m.trail)-1]
			return m, m.load(parent)

		case "r":
			return m, m.load(m.cur)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.err != nil {
		return errStyle.Render(fmt.Sprintf("error: %v\n\npress q to quit", m.err))
	}
	return m.list.View()
}

// Run opens the browser and blocks until the user quits.
func Run(dev *mtp.Device) error {
	_, err := tea.NewProgram(New(dev), tea.WithAltScreen()).Run()
	return err
}
