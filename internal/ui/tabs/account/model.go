// Package account provides the account tab: the upstream user summary,
// effective configuration and stored fallback snapshots.
package account

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/newapi-usage-tui/internal/app"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

// Model represents the account tab state.
type Model struct {
	state    *app.State
	config   func() *config.Config
	keys     keyMap
	viewport viewport.Model
	width    int
	height   int
}

// New creates a new account tab. cfg is consulted on every render so a
// reloaded configuration shows up without rebuilding the tab.
func New(state *app.State, cfg func() *config.Config) *Model {
	return &Model{
		state:    state,
		config:   cfg,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the account tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the account tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(keyMsg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) currentConfig() *config.Config {
	if m.config == nil {
		return nil
	}
	return m.config()
}

// SetSize sets the available size for the account tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Up, m.keys.Down}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.keys.Up, m.keys.Down}}
}
