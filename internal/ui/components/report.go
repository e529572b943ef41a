package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/newapi-usage-tui/internal/models"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
)

// SourceBadge describes where a result came from. Live, unanchored data
// renders as an empty string.
func SourceBadge(src report.Source, f *report.Formatter) string {
	switch {
	case src.Fallback:
		return styles.SnapshotBadgeStyle.Render("◌ snapshot from " + f.Timestamp(src.CapturedAt))
	case src.Anchored:
		return styles.SnapshotBadgeStyle.Render("◌ window anchored to latest record")
	default:
		return ""
	}
}

// AnomalyCard renders error and slow-call counts with their newest samples.
func AnomalyCard(a *models.AnomalyReport, f *report.Formatter, width int) string {
	if a == nil {
		return ""
	}

	rows := []string{styles.CardTitleStyle.Render("Anomalies")}

	if !a.HasAnomalies() {
		rows = append(rows, styles.SuccessTextStyle.Render(fmt.Sprintf("● No failed or slow calls in %d scanned", a.Scanned)))
		return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	gauge := NewRateGauge(max(width-34, 10))
	rows = append(rows,
		gauge.View("Failed", a.ErrorCount, a.Scanned),
		gauge.View(fmt.Sprintf("Slow >%dms", a.SlowThresholdMs), a.SlowCount, a.Scanned),
		"",
	)

	for _, o := range a.ErrorSamples {
		line := fmt.Sprintf("! %s %s", f.Timestamp(o.Time()), modelOrDash(o.Model))
		if o.Status != "" {
			line += " (" + o.Status + ")"
		}
		rows = append(rows, styles.ErrorTextStyle.Render(line))
	}
	for _, o := range a.SlowSamples {
		rows = append(rows, styles.WarningTextStyle.Render(
			fmt.Sprintf("~ %s %s %dms", f.Timestamp(o.Time()), modelOrDash(o.Model), o.LatencyMs)))
	}

	return styles.AnomalyCardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func modelOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
