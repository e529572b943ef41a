// Package advice provides the advisory tab: an LLM narrative over the
// current usage window.
package advice

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/newapi-usage-tui/internal/app"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/components"
)

const maxHours = 24 * 31

type keyMap struct {
	Generate  key.Binding
	EditHours key.Binding
	Submit    key.Binding
	Cancel    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate advice"),
		),
		EditHours: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "set window hours"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Model represents the advice tab state.
type Model struct {
	state      *app.State
	configured func() bool
	hoursInput textinput.Model
	spinner    components.LoadingSpinner
	keys       keyMap
	viewport   viewport.Model
	width      int
	height     int
	hours      int
	editing    bool
	inputErr   string
}

// New creates a new advice tab. configured reports whether an advisory
// provider is currently resolved; nil means unknown.
func New(state *app.State, configured func() bool) *Model {
	input := textinput.New()
	input.Placeholder = "hours (blank for configured window)"
	input.CharLimit = 4
	input.Width = 36

	return &Model{
		state:      state,
		configured: configured,
		hoursInput: input,
		spinner:    components.NewSpinner("Generating advice..."),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
	}
}

// Init initializes the advice tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the advice tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m, m.handleEditKey(msg)
		}
		return m, m.handleKeyMsg(msg)

	case app.GenerateAdviceMsg:
		// The app model has already marked the request as loading.
		if m.state.IsLoading(app.ResourceAdvice) {
			return m, m.spinner.Tick()
		}

	case app.ServiceEventMsg:
		m.viewport.GotoTop()
	}

	if m.spinner.IsTick(msg) && m.state.IsLoading(app.ResourceAdvice) {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Generate):
		if m.state.IsLoading(app.ResourceAdvice) {
			return nil
		}
		hours := m.hours
		return func() tea.Msg { return app.GenerateAdviceMsg{Hours: hours} }

	case key.Matches(msg, m.keys.EditHours):
		m.editing = true
		m.inputErr = ""
		if m.hours > 0 {
			m.hoursInput.SetValue(strconv.Itoa(m.hours))
		} else {
			m.hoursInput.SetValue("")
		}
		return m.hoursInput.Focus()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
}

func (m *Model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopEditing()
		return nil

	case key.Matches(msg, m.keys.Submit):
		hours, err := parseHours(m.hoursInput.Value())
		if err != "" {
			m.inputErr = err
			return nil
		}
		m.hours = hours
		m.stopEditing()
		return nil
	}

	var cmd tea.Cmd
	m.hoursInput, cmd = m.hoursInput.Update(msg)
	return cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.inputErr = ""
	m.hoursInput.Blur()
}

// Editing reports whether the hours form has focus.
func (m *Model) Editing() bool {
	return m.editing
}

// parseHours accepts a blank value (configured window) or 1..maxHours.
func parseHours(s string) (int, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ""
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, "hours must be a positive whole number"
	}
	if n > maxHours {
		return 0, "hours must be at most " + strconv.Itoa(maxHours)
	}
	return n, ""
}

// SetSize sets the available size for the advice tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = min(max(width-6, 40), 100) - 4
	m.viewport.Height = max(height-12, 5)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Generate, m.keys.EditHours}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Generate, m.keys.EditHours},
		{m.keys.Submit, m.keys.Cancel},
	}
}
