// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/services"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabUsage shows the aggregated usage report.
	TabUsage TabID = iota
	// TabLogs shows recent API calls and anomalies.
	TabLogs
	// TabAccount shows the account summary and local configuration.
	TabAccount
	// TabAdvice shows the advisory narrative.
	TabAdvice
)

var tabNames = []string{"Usage", "Logs", "Account", "Advice"}

// String returns the string representation of the TabID.
func (t TabID) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Tab, tea.Cmd)
	View() string
	SetSize(width, height int)
	ShortHelp() []key.Binding
	FullHelp() [][]key.Binding
}

// KeyMap defines the global keybindings.
type KeyMap struct {
	Tab1     key.Binding
	Tab2     key.Binding
	Tab3     key.Binding
	Tab4     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
	Escape   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "usage")),
		Tab2:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "logs")),
		Tab3:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "account")),
		Tab4:     key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "advice")),
		NextTab:  key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/→", "next tab")),
		PrevTab:  key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/←", "prev tab")),
		Refresh:  key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.NextTab, k.PrevTab},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Refresh, k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	TabBar       lipgloss.Style
	ActiveTab    lipgloss.Style
	InactiveTab  lipgloss.Style
	TabSeparator lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Help    lipgloss.Style
	Spinner lipgloss.Style
	Toast   lipgloss.Style

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)
	s.TabSeparator = lipgloss.NewStyle().Foreground(subtle).SetString(" | ")

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Help = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.Spinner = lipgloss.NewStyle().Foreground(highlight)
	s.Toast = styles.ToastStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)
	s.Error = lipgloss.NewStyle().Foreground(errorColor)
	s.Success = lipgloss.NewStyle().Foreground(success)
	s.Warning = lipgloss.NewStyle().Foreground(warning)

	return s
}

// Model is the main application model.
type Model struct {
	state        *State
	services     *services.Manager
	commands     *Commands
	eventChannel chan services.ServiceEvent
	tabs         []Tab
	styles       Styles
	keymap       KeyMap
	spinner      spinner.Model
	activeTab    TabID
	width        int
	height       int
	showHelp     bool
	ready        bool
}

// NewModel initializes a new application model. mgr may be nil in tests.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabUsage,
		tabs:      make([]Tab, len(tabNames)),
		state:     NewState(),
		services:  mgr,
		commands:  NewCommands(mgr),
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetServices returns the service manager.
func (m *Model) GetServices() *services.Manager {
	return m.services
}

// GetCommands returns the commands helper.
func (m *Model) GetCommands() *Commands {
	return m.commands
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// Init subscribes to the manager and starts the first refresh.
func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Loading usage data...")

	cmds := []tea.Cmd{m.spinner.Tick, defaultTickCmd()}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services), refreshCmd(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.updateTabSizes()
	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		if cmd := m.handleServiceEvent(msg.Event); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case RefreshMsg:
		cmds = append(cmds, m.startRefresh())
	case RefreshDoneMsg:
		cmds = append(cmds, m.handleRefreshDone(msg)...)
	case GenerateAdviceMsg:
		cmds = append(cmds, m.startAdvice(msg.Hours))
	case AdviceDoneMsg:
		m.stopLoading(ResourceAdvice)
		if msg.Error != nil {
			cmds = append(cmds, notifyErrorCmd(describe("advice", msg.Error)))
		}
	case SnapshotsLoadedMsg:
		if msg.Error == nil {
			m.state.SetSnapshots(msg.Snapshots)
		}
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()
	case StartLoadingMsg:
		m.state.SetLoading(msg.Resource, true)
		m.state.SetLoadingNotification("Refreshing...")
	case StopLoadingMsg:
		m.stopLoading(msg.Resource)
	case ErrorMsg:
		cmds = append(cmds, notifyErrorCmd(describe(msg.Context, msg.Error)))
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) startRefresh() tea.Cmd {
	if m.services == nil || m.state.IsLoading(ResourceRefresh) {
		return nil
	}
	m.state.SetLoading(ResourceRefresh, true)
	m.state.SetLoadingNotification("Refreshing...")
	return refreshCmd(m.services)
}

func (m *Model) startAdvice(hours int) tea.Cmd {
	if m.services == nil || m.state.IsLoading(ResourceAdvice) {
		return nil
	}
	m.state.SetLoading(ResourceAdvice, true)
	m.state.SetLoadingNotification("Generating advice...")
	return generateAdviceCmd(m.services, hours)
}

func (m *Model) handleRefreshDone(msg RefreshDoneMsg) []tea.Cmd {
	manual := m.state.IsLoading(ResourceRefresh)
	m.state.SetLoading(ResourceInitial, false)
	m.stopLoading(ResourceRefresh)

	var cmds []tea.Cmd
	if m.services != nil {
		cmds = append(cmds, loadSnapshotsCmd(m.services))
	}
	if msg.Error == nil {
		m.state.SetLastError(nil)
		if manual {
			cmds = append(cmds, notifySuccessCmd("Data refreshed"))
		}
	}
	return cmds
}

func (m *Model) stopLoading(resource string) {
	m.state.SetLoading(resource, false)
	if !m.state.AnyLoading() {
		m.state.ClearLoadingNotification()
	}
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.StatsUpdatedEvent:
		m.state.SetStats(e.Result)
		if e.Result.Source.Fallback {
			return notifyWarningCmd("Live usage unavailable, showing saved snapshot")
		}

	case services.LogsUpdatedEvent:
		before := m.state.AnomalyCount()
		m.state.SetLogs(e.Result)
		if after := m.state.AnomalyCount(); after > before {
			a := e.Result.Anomalies
			return notifyWarningCmd(fmt.Sprintf("%d failed, %d slow calls in recent logs", a.ErrorCount, a.SlowCount))
		}

	case services.UserUpdatedEvent:
		m.state.SetUser(e.Result)

	case services.AdviceReadyEvent:
		m.state.SetAdvice(e.Result)

	case services.ConfigReloadedEvent:
		if e.Configured {
			return notifyInfoCmd("Config reloaded, advisory provider " + e.Provider)
		}
		return notifyInfoCmd("Config reloaded, advisory not configured")

	case services.ErrorEvent:
		m.state.SetLastError(e.Error)
		return notifyErrorCmd(describe(e.Source, e.Error))
	}

	return nil
}

// describe renders an error for a toast, preferring the diagnostic summary.
func describe(source string, err error) string {
	var diag *report.DiagnosticError
	if errors.As(err, &diag) {
		return fmt.Sprintf("[%s] %s", source, diag.Message())
	}
	msg := fmt.Sprintf("[%s] %v", source, err)
	if hint := apperr.Hint(err); hint != "" {
		msg += " (" + hint + ")"
	}
	return msg
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) switchTab(t TabID) {
	m.activeTab = t
	m.updateTabSizes()
}

// InputTab is implemented by tabs that can take text input. While Editing
// reports true only ctrl+c is handled globally.
type InputTab interface {
	Editing() bool
}

func (m *Model) activeTabEditing() bool {
	if int(m.activeTab) >= len(m.tabs) || m.tabs[m.activeTab] == nil {
		return false
	}
	it, ok := m.tabs[m.activeTab].(InputTab)
	return ok && it.Editing()
}

// handleKeyMsg handles global keys. Everything else is left to the tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.activeTabEditing() {
		if msg.Type == tea.KeyCtrlC {
			return tea.Quit
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false

	case key.Matches(msg, m.keymap.Tab1):
		m.switchTab(TabUsage)

	case key.Matches(msg, m.keymap.Tab2):
		m.switchTab(TabLogs)

	case key.Matches(msg, m.keymap.Tab3):
		m.switchTab(TabAccount)

	case key.Matches(msg, m.keymap.Tab4):
		m.switchTab(TabAdvice)

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp {
			m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
		}

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp {
			m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))
		}

	case key.Matches(msg, m.keymap.Refresh):
		return m.startRefresh()
	}

	return nil
}

