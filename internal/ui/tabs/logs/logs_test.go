package logs

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/newapi-usage-tui/internal/app"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
)

var base = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func sampleLogs() *report.LogsResult {
	return &report.LogsResult{
		Entries: []models.LogEntry{
			{
				CreatedAt: base.Add(2 * time.Minute).Unix(), Type: models.LogTypeError, ModelName: "gpt-4o",
				IP: "203.0.113.7", Content: "upstream said: invalid key sk-abcdefghijklmnop",
			},
			{
				CreatedAt: base.Add(time.Minute).Unix(), Type: models.LogTypeConsume, ModelName: "gpt-4o",
				PromptTokens: 1200, CompletionTokens: 300, LatencyMs: 15000, HasLatency: true, IP: "198.51.100.4",
			},
			{
				CreatedAt: base.Unix(), Type: models.LogTypeConsume, ModelName: "claude-3-haiku",
				PromptTokens: 10, CompletionTokens: 5, LatencyMs: 800, HasLatency: true, IP: "198.51.100.5",
			},
		},
		Anomalies: &models.AnomalyReport{Scanned: 3, ErrorCount: 1, SlowCount: 1, SlowThresholdMs: 10000},
	}
}

func newTab(state *app.State) *Model {
	m := New(state, &config.Config{DisplayLocation: time.UTC, SlowThresholdMs: 10000})
	m.SetSize(140, 200)
	return m
}

func TestModel_Init(t *testing.T) {
	if New(app.NewState(), nil).Init() != nil {
		t.Error("Init should not schedule work")
	}
}

func TestModel_ViewEmpty(t *testing.T) {
	state := app.NewState()
	m := newTab(state)
	if !strings.Contains(m.View(), "No logs loaded yet") {
		t.Error("missing not-loaded notice")
	}

	state.SetLogs(&report.LogsResult{})
	if !strings.Contains(m.View(), "No log entries were returned") {
		t.Error("missing empty-list notice")
	}
}

func TestModel_ViewEntries(t *testing.T) {
	state := app.NewState()
	state.SetLogs(sampleLogs())

	view := newTab(state).View()
	for _, want := range []string{"recent 3 calls", "1,200", "15,000ms", "198.51.x.x", "203.0.x.x", "Latency", "Anomalies"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	for _, leak := range []string{"198.51.100.4", "203.0.113.7", "sk-abcdefghijklmnop"} {
		if strings.Contains(view, leak) {
			t.Errorf("view leaked %q", leak)
		}
	}
	if !strings.Contains(view, "upstream said") {
		t.Error("error detail should be shown")
	}
}

func TestModel_ToggleFilter(t *testing.T) {
	state := app.NewState()
	state.SetLogs(sampleLogs())
	m := newTab(state)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	if !m.onlyProblems {
		t.Fatal("filter should be on")
	}
	view := m.View()
	if strings.Contains(view, "claude-3-haiku") {
		t.Error("healthy call should be hidden")
	}
	if !strings.Contains(view, "errors/slow") {
		t.Error("header should show the active filter")
	}

	visible := m.visibleEntries(sampleLogs().Entries)
	if len(visible) != 2 {
		t.Errorf("visible = %d entries, want 2", len(visible))
	}
}

func TestModel_FilterNoProblems(t *testing.T) {
	res := sampleLogs()
	res.Entries = res.Entries[2:]
	state := app.NewState()
	state.SetLogs(res)
	m := newTab(state)
	m.onlyProblems = true

	if !strings.Contains(m.View(), "No failed or slow calls") {
		t.Error("filter with no matches should say so")
	}
}

func TestModel_FallbackBadge(t *testing.T) {
	res := sampleLogs()
	res.Source = report.Source{Fallback: true, CapturedAt: base}
	state := app.NewState()
	state.SetLogs(res)

	if !strings.Contains(newTab(state).View(), "snapshot from 2024-06-01 10:00:00 UTC") {
		t.Error("fallback badge missing")
	}
}

func TestSlowThresholdDefault(t *testing.T) {
	if got := New(app.NewState(), nil).slowThreshold(); got != 10000 {
		t.Errorf("slowThreshold() = %d, want 10000", got)
	}
}
