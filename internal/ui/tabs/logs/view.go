package logs

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/newapi-usage-tui/internal/anomaly"
	"github.com/j-veylop/newapi-usage-tui/internal/mask"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/components"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
)

// View renders the logs tab.
func (m *Model) View() string {
	res := m.state.GetLogs()
	if res == nil {
		return m.renderEmpty("No logs loaded yet.")
	}
	if len(res.Entries) == 0 {
		return m.renderEmpty("No log entries were returned.")
	}

	f := m.formatter()
	cardWidth := max(m.width-6, 40)

	sections := []string{m.renderHeader(res, f)}
	if spark := m.renderLatency(res.Entries, cardWidth); spark != "" {
		sections = append(sections, spark)
	}
	if card := components.AnomalyCard(res.Anomalies, f, cardWidth); card != "" {
		sections = append(sections, card)
	}
	sections = append(sections, m.renderEntries(res.Entries, f, cardWidth))

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) formatter() *report.Formatter {
	if m.config == nil {
		return report.NewFormatter(nil, 0, 0)
	}
	return report.NewFormatter(m.config.DisplayLocation, m.config.TopN, m.config.QuotaPerUnit)
}

func (m *Model) renderEmpty(message string) string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Logs"),
		styles.HelpStyle.Render(message),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderHeader(res *report.LogsResult, f *report.Formatter) string {
	title := styles.TitleStyle.Render(fmt.Sprintf("Logs: recent %d calls", len(res.Entries)))

	filter := "all"
	if m.onlyProblems {
		filter = "errors/slow"
	}
	filterStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", filterStyle.Render("[e] "+filter))

	lines := []string{header}
	if badge := components.SourceBadge(res.Source, f); badge != "" {
		lines = append(lines, badge)
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(lines, "")...)
}

// renderLatency plots latency oldest to newest; entries arrive newest first.
func (m *Model) renderLatency(entries []models.LogEntry, width int) string {
	var latencies []float64
	for _, e := range slices.Backward(entries) {
		if e.HasLatency {
			latencies = append(latencies, float64(e.LatencyMs))
		}
	}
	if len(latencies) == 0 {
		return ""
	}

	threshold := float64(m.slowThreshold())
	rows := []string{
		styles.CardTitleStyle.Render("Latency"),
		components.RenderLatencySparkline(latencies, width-8, threshold),
		styles.HelpStyle.Render(fmt.Sprintf("peak %s ms, slow over %s ms",
			humanize.Comma(int64(slices.Max(latencies))), humanize.Comma(int64(threshold)))),
	}
	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderEntries(entries []models.LogEntry, f *report.Formatter, width int) string {
	visible := m.visibleEntries(entries)

	rows := []string{styles.CardTitleStyle.Render("Calls")}
	if len(visible) == 0 {
		rows = append(rows, styles.SuccessTextStyle.Render("● No failed or slow calls"))
		return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	header := fmt.Sprintf("%-23s %-8s %-24s %9s %9s %9s  %s", "Time", "Type", "Model", "In", "Out", "Latency", "IP")
	rows = append(rows, styles.TableHeaderStyle.Render(header))

	threshold := m.slowThreshold()
	for _, e := range visible {
		rows = append(rows, m.renderEntry(e, f, threshold))
		if e.Type == models.LogTypeError && e.Content != "" {
			rows = append(rows, styles.ErrorTextStyle.Render("  ╰─ "+mask.Line(e.Content)))
		}
	}

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderEntry(e models.LogEntry, f *report.Formatter, slowMs int64) string {
	latency := "-"
	if e.HasLatency {
		latency = humanize.Comma(e.LatencyMs) + "ms"
	}

	modelName := e.ModelName
	if modelName == "" {
		modelName = "unknown model"
	}
	if r := []rune(modelName); len(r) > 24 {
		modelName = string(r[:21]) + "..."
	}

	line := fmt.Sprintf("%-23s %-8s %-24s %9s %9s %9s  %s",
		f.Timestamp(e.Time()),
		e.Type,
		modelName,
		humanize.Comma(e.PromptTokens),
		humanize.Comma(e.CompletionTokens),
		latency,
		mask.IP(e.IP),
	)

	o := e.Observation()
	switch {
	case anomaly.IsFailure(o):
		return styles.ErrorTextStyle.Render(line)
	case anomaly.IsSlow(o, slowMs):
		return styles.WarningTextStyle.Render(line)
	default:
		return line
	}
}
