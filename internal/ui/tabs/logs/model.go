// Package logs provides the logs tab for recent API calls.
package logs

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/newapi-usage-tui/internal/anomaly"
	"github.com/j-veylop/newapi-usage-tui/internal/app"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

type keyMap struct {
	ToggleFilter key.Binding
	Up           key.Binding
	Down         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleFilter: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "errors/slow only"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the logs tab state.
type Model struct {
	state        *app.State
	config       *config.Config
	keys         keyMap
	viewport     viewport.Model
	width        int
	height       int
	onlyProblems bool
}

// New creates a new logs tab.
func New(state *app.State, cfg *config.Config) *Model {
	return &Model{
		state:    state,
		config:   cfg,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the logs tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the logs tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.ToggleFilter) {
		m.onlyProblems = !m.onlyProblems
		m.viewport.GotoTop()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(keyMsg)
	return m, cmd
}

// visibleEntries applies the problem filter using the anomaly detector's rules.
func (m *Model) visibleEntries(entries []models.LogEntry) []models.LogEntry {
	if !m.onlyProblems {
		return entries
	}
	threshold := m.slowThreshold()
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if isProblem(e, threshold) {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) slowThreshold() int64 {
	if m.config == nil || m.config.SlowThresholdMs <= 0 {
		return 10000
	}
	return m.config.SlowThresholdMs
}

func isProblem(e models.LogEntry, slowMs int64) bool {
	o := e.Observation()
	return anomaly.IsFailure(o) || anomaly.IsSlow(o, slowMs)
}

// SetSize sets the available size for the logs tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleFilter}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleFilter},
		{m.keys.Up, m.keys.Down},
	}
}
