package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
	"github.com/j-veylop/newapi-usage-tui/internal/services"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
)

func readyModel() *Model {
	model := NewModel(nil)
	model.ready = true
	model.width = 100
	model.height = 30
	return model
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabUsage {
		t.Error("Default tab should be Usage")
	}
	if len(model.tabs) != 4 {
		t.Errorf("Should have 4 tab placeholders, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	if NewModel(nil).Init() == nil {
		t.Error("Init returned nil command")
	}
}

func TestTabID_String(t *testing.T) {
	tests := map[TabID]string{
		TabUsage:   "Usage",
		TabLogs:    "Logs",
		TabAccount: "Account",
		TabAdvice:  "Advice",
		TabID(9):   "Unknown",
	}
	for id, want := range tests {
		if got := id.String(); got != want {
			t.Errorf("TabID(%d).String() = %q, want %q", id, got, want)
		}
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}
	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_TabSwitching(t *testing.T) {
	model := readyModel()

	model.Update(TabSwitchMsg{Tab: TabLogs})
	if model.activeTab != TabLogs {
		t.Errorf("ActiveTab = %v, want Logs", model.activeTab)
	}

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'4'}})
	if model.activeTab != TabAdvice {
		t.Errorf("ActiveTab = %v, want Advice", model.activeTab)
	}

	model.Update(tea.KeyMsg{Type: tea.KeyTab})
	if model.activeTab != TabUsage {
		t.Errorf("ActiveTab = %v, want wrap to Usage", model.activeTab)
	}

	model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if model.activeTab != TabAdvice {
		t.Errorf("ActiveTab = %v, want wrap to Advice", model.activeTab)
	}
}

func TestModel_Update_Tick(t *testing.T) {
	_, cmd := NewModel(nil).Update(TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil)
	if !strings.Contains(model.View(), "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model = readyModel()
	view := model.View()
	for _, want := range []string{"Usage", "Logs", "Account", "Advice", "not available"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_Help(t *testing.T) {
	model := readyModel()
	model.SetTabs([]Tab{&formTab{lines: model.height}, nil, nil, nil})

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Fatal("showHelp should be true")
	}
	if !strings.Contains(model.View(), "Keyboard Shortcuts") {
		t.Error("View should show help modal")
	}

	model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	if model.showHelp {
		t.Error("showHelp should be false after toggle")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := readyModel()
	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})

	if n := len(model.state.GetNotifications()); n != 1 {
		t.Errorf("Expected 1 notification, got %d", n)
	}
	if !strings.Contains(model.View(), "Test Note") {
		t.Error("View should show notification")
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	model := NewModel(nil)

	stats := &report.StatsResult{
		Report:    &models.StatsReport{TotalRequests: 5},
		Anomalies: &models.AnomalyReport{},
		Source:    report.Source{Fallback: true},
	}
	if cmd := model.handleServiceEvent(services.StatsUpdatedEvent{Result: stats}); cmd == nil {
		t.Error("fallback stats should raise a warning")
	}
	if model.state.GetStats() != stats {
		t.Error("Stats should be updated")
	}

	logs := &report.LogsResult{Anomalies: &models.AnomalyReport{ErrorCount: 2}}
	if cmd := model.handleServiceEvent(services.LogsUpdatedEvent{Result: logs}); cmd == nil {
		t.Error("new anomalies should raise a warning")
	}
	if cmd := model.handleServiceEvent(services.LogsUpdatedEvent{Result: logs}); cmd != nil {
		t.Error("unchanged anomalies should not warn again")
	}

	user := &report.UserResult{User: models.UserInfo{Username: "alice"}}
	model.handleServiceEvent(services.UserUpdatedEvent{Result: user})
	if model.state.GetUser() != user {
		t.Error("User should be updated")
	}

	advice := &report.AdviceResult{Text: "ok"}
	model.handleServiceEvent(services.AdviceReadyEvent{Result: advice})
	if model.state.GetAdvice() != advice {
		t.Error("Advice should be updated")
	}

	errEvent := services.ErrorEvent{Source: "stats", Error: apperr.New(apperr.CodeNetwork, "down")}
	if cmd := model.handleServiceEvent(errEvent); cmd == nil {
		t.Error("Error event should trigger notification command")
	}
	if model.state.GetLastError() == nil {
		t.Error("LastError should be recorded")
	}
}

func TestModel_RefreshLifecycle(t *testing.T) {
	model := NewModel(nil)

	model.Update(StartLoadingMsg{Resource: ResourceRefresh})
	if !model.state.IsLoading(ResourceRefresh) {
		t.Error("refresh should be loading")
	}

	model.Update(RefreshDoneMsg{})
	if model.state.AnyLoading() {
		t.Errorf("nothing should be loading, got %v", model.state.GetLoadingResources())
	}
	for _, n := range model.state.GetNotifications() {
		if n.ID == LoadingNotificationID {
			t.Error("loading notification should be cleared")
		}
	}
}

func TestModel_AdviceDoneError(t *testing.T) {
	model := NewModel(nil)
	model.state.SetLoading(ResourceAdvice, true)

	_, cmd := model.Update(AdviceDoneMsg{Error: errors.New("boom")})
	if model.state.IsLoading(ResourceAdvice) {
		t.Error("advice should stop loading")
	}
	if cmd == nil {
		t.Error("advice error should notify")
	}
}

func TestDescribe(t *testing.T) {
	diag := &report.DiagnosticError{
		Endpoint: "/api/data/self",
		Live:     apperr.Network(apperr.KindTimeout, errors.New("deadline")),
		Fallback: apperr.New(apperr.CodeFallbackUnavailable, "no snapshot"),
	}
	if got := describe("stats", diag); !strings.HasPrefix(got, "[stats] ") || !strings.Contains(got, diag.Message()) {
		t.Errorf("describe(diag) = %q", got)
	}

	got := describe("user", apperr.Status(401, "unauthorized"))
	if !strings.Contains(got, "AUTHORIZATION") {
		t.Errorf("describe(status) = %q, want hint", got)
	}
}

type formTab struct {
	keys    []string
	editing bool
	lines   int
}

func (f *formTab) Init() tea.Cmd { return nil }
func (f *formTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		f.keys = append(f.keys, k.String())
	}
	return f, nil
}
func (f *formTab) View() string              { return strings.Repeat("\n", f.lines) }
func (f *formTab) SetSize(int, int)          {}
func (f *formTab) ShortHelp() []key.Binding  { return nil }
func (f *formTab) FullHelp() [][]key.Binding { return nil }
func (f *formTab) Editing() bool             { return f.editing }

func TestModel_EditingTabCapturesKeys(t *testing.T) {
	model := readyModel()
	tab := &formTab{editing: true}
	model.SetTabs([]Tab{tab, nil, nil, nil})

	for _, r := range "2q?" {
		_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		if cmd != nil {
			if _, quit := cmd().(tea.QuitMsg); quit {
				t.Fatalf("%q should not quit while the tab is editing", r)
			}
		}
	}
	if model.activeTab != TabUsage {
		t.Errorf("ActiveTab = %v, tab switch keys should go to the form", model.activeTab)
	}
	if model.showHelp {
		t.Error("help should not toggle while editing")
	}
	if got := strings.Join(tab.keys, ""); got != "2q?" {
		t.Errorf("tab received %q, want %q", got, "2q?")
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should still quit")
	}

	tab.editing = false
	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	if model.activeTab != TabLogs {
		t.Errorf("ActiveTab = %v, want Logs once editing ends", model.activeTab)
	}
}
