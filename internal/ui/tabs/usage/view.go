package usage

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/newapi-usage-tui/internal/models"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/stats"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/components"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
)

// View renders the usage tab.
func (m *Model) View() string {
	res := m.state.GetStats()
	if res == nil || res.Report == nil {
		if m.state.IsInitialLoading() {
			return m.renderLoading()
		}
		return m.renderEmpty()
	}

	f := m.formatter()
	cardWidth := max(m.width-6, 40)

	sections := []string{m.renderTitle(res, f)}
	sections = append(sections, m.renderSummary(res.Report, cardWidth))
	sections = append(sections, m.renderActivity(res.Report, cardWidth))
	if len(res.Report.Ranking) > 0 {
		sections = append(sections, m.renderRanking(res.Report, cardWidth))
	}
	if card := components.AnomalyCard(res.Anomalies, f, cardWidth); card != "" {
		sections = append(sections, card)
	}

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

func (m *Model) renderLoading() string {
	width := max(m.width-6, 30)
	bars := []string{
		m.spinner.ViewWithLabel(),
		"",
		components.ShareBarLoading(width, m.animationFrame),
		components.ShareBarLoading(width, m.animationFrame+40),
		components.ShareBarLoading(width, m.animationFrame+80),
	}
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, bars...))
}

func (m *Model) renderEmpty() string {
	rows := []string{
		styles.TitleStyle.Render("Usage"),
		styles.HelpStyle.Render("No usage report yet."),
	}
	if err := m.state.GetLastError(); err != nil {
		rows = append(rows, "", styles.ErrorTextStyle.Render(err.Error()))
	}
	rows = append(rows, "", styles.InfoTextStyle.Render("  ╰─▶ Press r to fetch usage"))
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderTitle(res *report.StatsResult, f *report.Formatter) string {
	r := res.Report
	title := styles.TitleStyle.Render("Usage")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%s → %s (%d min)",
		f.Timestamp(r.WindowStart), f.Timestamp(r.WindowEnd), int(r.WindowMinutes())))

	lines := []string{title, subtitle}
	if badge := components.SourceBadge(res.Source, f); badge != "" {
		lines = append(lines, badge)
	}
	if r.Empty {
		lines = append(lines, styles.WarningTextStyle.Render(report.EmptyNotice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(lines, "")...)
}

func (m *Model) renderSummary(r *models.StatsReport, width int) string {
	cell := func(label, value string) string {
		return lipgloss.JoinVertical(lipgloss.Left,
			styles.HelpStyle.Render(label),
			lipgloss.NewStyle().Bold(true).Foreground(styles.TextPrimary).Render(value),
		)
	}

	colWidth := max((width-6)/3, 12)
	col := lipgloss.NewStyle().Width(colWidth)

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		col.Render(cell("Requests", humanize.Comma(r.TotalRequests))),
		col.Render(cell("Tokens", humanize.Comma(r.TotalTokens))),
		col.Render(cell("Quota", humanize.Comma(r.TotalQuota))),
	)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		col.Render(cell("Avg RPM", fmt.Sprintf("%.3f", r.AvgRPM))),
		col.Render(cell("Avg TPM", fmt.Sprintf("%.3f", r.AvgTPM))),
		col.Render(cell("Models", humanize.Comma(int64(r.Models)))),
	)

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render("Totals"), top, "", bottom))
}

func (m *Model) renderActivity(r *models.StatsReport, width int) string {
	series := make([]float64, len(r.Hourly))
	for i, h := range r.Hourly {
		if m.showTokens {
			series[i] = float64(h.Tokens)
		} else {
			series[i] = float64(h.Requests)
		}
	}

	label, color := "requests per hour", styles.Requests
	if m.showTokens {
		label, color = "tokens per hour", styles.Tokens
	}

	rows := []string{
		styles.CardTitleStyle.Render("Hourly activity"),
		components.RenderLegend([]components.LegendItem{{Label: label, Color: color}}),
		"",
		components.RenderLineChart(series, max(width-24, 20), 6, ""),
	}

	if n := len(series); n > 0 {
		last := series[max(n-24, 0):]
		rows = append(rows, "", styles.HelpStyle.Render("last 24h ")+components.RenderHourlyHeatmap(last))
	}

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderRanking(r *models.StatsReport, width int) string {
	values := make([]float64, len(r.Ranking))
	labels := make([]string, len(r.Ranking))
	for i, rank := range r.Ranking {
		values[i] = float64(rank.Count)
		labels[i] = truncate(rank.ModelName, 28)
	}

	rows := []string{
		styles.CardTitleStyle.Render(fmt.Sprintf("Top %d models by requests", len(r.Ranking))),
		components.RenderBarChart(values, labels, width-6, func(v float64) string {
			return humanize.Comma(int64(v))
		}),
		"",
	}

	for i, rank := range r.Ranking {
		prefix := "  "
		if i == m.selectedIndex {
			prefix = styles.FocusedStyle.Render("▸ ")
		}
		rows = append(rows, prefix+components.ShareBar(truncate(rank.ModelName, 28), rank.Count, r.TotalRequests, width-10))
	}

	if m.selectedIndex < len(r.Ranking) {
		rows = append(rows, "", m.renderModelDetail(r, r.Ranking[m.selectedIndex]))
	}

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderModelDetail(r *models.StatsReport, rank models.ModelRank) string {
	rpm, tpm := stats.RatePerModel(rank, stats.Window{Start: r.WindowStart, End: r.WindowEnd})
	parts := []string{
		styles.FocusedStyle.Render(rank.ModelName),
		fmt.Sprintf("%s req", humanize.Comma(rank.Count)),
		fmt.Sprintf("%s tok", humanize.Comma(rank.Tokens)),
		fmt.Sprintf("quota %s", humanize.Comma(rank.Quota)),
		fmt.Sprintf("RPM %.3f", rpm),
		fmt.Sprintf("TPM %.3f", tpm),
	}
	return strings.Join(parts, styles.HelpStyle.Render(" · "))
}

func truncate(s string, n int) string {
	if s == "" {
		return "-"
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
