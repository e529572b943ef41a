// Package usage provides the usage tab: windowed totals, hourly activity and
// the model ranking.
package usage

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/newapi-usage-tui/internal/app"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/components"
)

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*40, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

type keyMap struct {
	NextModel    key.Binding
	PrevModel    key.Binding
	ToggleSeries key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextModel: key.NewBinding(
			key.WithKeys("n", "j", "down"),
			key.WithHelp("j/n", "next model"),
		),
		PrevModel: key.NewBinding(
			key.WithKeys("p", "k", "up"),
			key.WithHelp("k/p", "prev model"),
		),
		ToggleSeries: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "requests/tokens"),
		),
	}
}

// Model represents the usage tab state.
type Model struct {
	state          *app.State
	config         *config.Config
	spinner        components.LoadingSpinner
	keys           keyMap
	viewport       viewport.Model
	width          int
	height         int
	selectedIndex  int
	animationFrame int
	showTokens     bool
}

// New creates a new usage tab.
func New(state *app.State, cfg *config.Config) *Model {
	return &Model{
		state:    state,
		config:   cfg,
		spinner:  components.NewSpinner("Loading usage..."),
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init starts the spinner and the loading animation.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), animationTickCmd())
}

// Update handles messages for the usage tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case animationTickMsg:
		m.animationFrame++
		if m.state.IsInitialLoading() {
			cmds = append(cmds, animationTickCmd())
		}

	case app.ServiceEventMsg:
		m.clampSelection()

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	default:
		if m.spinner.IsTick(msg) {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	count := m.rankCount()

	switch {
	case key.Matches(msg, m.keys.NextModel):
		if count > 0 {
			m.selectedIndex = (m.selectedIndex + 1) % count
		}
	case key.Matches(msg, m.keys.PrevModel):
		if count > 0 {
			m.selectedIndex = (m.selectedIndex - 1 + count) % count
		}
	case key.Matches(msg, m.keys.ToggleSeries):
		m.showTokens = !m.showTokens
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) rankCount() int {
	res := m.state.GetStats()
	if res == nil || res.Report == nil {
		return 0
	}
	return len(res.Report.Ranking)
}

func (m *Model) clampSelection() {
	if count := m.rankCount(); m.selectedIndex >= count {
		m.selectedIndex = max(count-1, 0)
	}
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.NextModel, m.keys.PrevModel, m.keys.ToggleSeries}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.NextModel, m.keys.PrevModel},
		{m.keys.ToggleSeries},
	}
}
