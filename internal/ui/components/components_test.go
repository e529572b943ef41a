package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

func TestSpinner_Methods(t *testing.T) {
	s := NewSpinner("Init")

	s.SetLabel("Loading")
	if s.Label() != "Loading" {
		t.Errorf("Label = %s, want Loading", s.Label())
	}

	if s.View() == "" {
		t.Error("View returned empty")
	}
	if !strings.Contains(s.ViewWithLabel(), "Loading") {
		t.Error("ViewWithLabel should include the label")
	}

	if s.Init() == nil {
		t.Error("Init should return command")
	}
	if _, cmd := s.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("Update should return command for tick")
	}
	if s.Tick() == nil {
		t.Error("Tick should return command")
	}
}

func TestSpinner_IsTick(t *testing.T) {
	s := NewSpinner("x")
	if !s.IsTick(s.Tick()()) {
		t.Error("own tick not recognized")
	}
	if s.IsTick(NewSpinner("y").Tick()()) {
		t.Error("foreign tick recognized")
	}
	if s.IsTick("nope") {
		t.Error("non-tick recognized")
	}
}

func TestRenderSpinnerCentered(t *testing.T) {
	view := RenderSpinnerCentered(NewSpinner("Loading..."), 20, 5)
	if !strings.Contains(view, "Loading...") {
		t.Error("RenderSpinnerCentered should include the label")
	}
}

func TestRenderLineChart(t *testing.T) {
	if s := RenderLineChart([]float64{1, 2, 3, 4}, 20, 5, "Requests"); !strings.Contains(s, "Requests") {
		t.Error("RenderLineChart should include caption")
	}
	if s := RenderLineChart([]float64{7}, 20, 5, ""); s == "" {
		t.Error("single point should still render")
	}
	if s := RenderLineChart(nil, 20, 5, ""); !strings.Contains(s, "No data") {
		t.Error("empty data should render a notice")
	}
}

func TestRenderBarChart(t *testing.T) {
	s := RenderBarChart([]float64{10, 20}, []string{"A", "B"}, 40, func(v float64) string {
		return "n=" + lipgloss.NewStyle().Render(strings.Repeat("x", int(v)/10))
	})
	lines := strings.Split(s, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[1], "n=xx") {
		t.Errorf("custom format not applied: %q", lines[1])
	}
	if RenderBarChart(nil, nil, 40, nil) != "" {
		t.Error("empty values should render nothing")
	}
}

func TestRenderHourlyHeatmap(t *testing.T) {
	data := make([]float64, 24)
	data[3] = 10
	s := RenderHourlyHeatmap(data)
	if got := strings.Count(s, " "); got != 1 {
		t.Errorf("expected a single midday gap, got %d spaces", got)
	}
	if RenderHourlyHeatmap(nil) != "" {
		t.Error("empty input should render nothing")
	}
}

func TestRenderSparkline(t *testing.T) {
	if s := RenderSparkline([]float64{1, 2, 3}, 10); len([]rune(s)) != 3 {
		t.Errorf("RenderSparkline = %q, want 3 columns", s)
	}
	if s := RenderSparkline([]float64{1, 2, 3, 4, 5, 6}, 3); len([]rune(s)) != 3 {
		t.Errorf("RenderSparkline = %q, want sampling to 3 columns", s)
	}
}

func TestRenderLatencySparkline(t *testing.T) {
	if RenderLatencySparkline([]float64{100, 6000, 12000}, 10, 10000) == "" {
		t.Error("RenderLatencySparkline returned empty")
	}
	if RenderLatencySparkline(nil, 10, 10000) != "" {
		t.Error("empty input should render nothing")
	}
}

func TestRenderLegend(t *testing.T) {
	s := RenderLegend([]LegendItem{{Label: "requests", Color: lipgloss.Color("#ffffff")}})
	if !strings.Contains(s, "requests") {
		t.Error("RenderLegend missing label")
	}
}
