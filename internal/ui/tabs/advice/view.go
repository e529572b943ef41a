package advice

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/newapi-usage-tui/internal/advisory"
	"github.com/j-veylop/newapi-usage-tui/internal/app"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/components"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
)

// View renders the advice tab.
func (m *Model) View() string {
	sections := []string{m.renderTitle()}

	if m.editing {
		sections = append(sections, m.renderHoursForm())
	}
	sections = append(sections, m.renderBody(), m.renderFooter())

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 40), 100)
}

func (m *Model) windowLabel() string {
	if m.hours > 0 {
		return fmt.Sprintf("last %d hours", m.hours)
	}
	return "configured window"
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Advice")
	subtitle := styles.HelpStyle.Render("Narrative summary of the " + m.windowLabel())
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderHoursForm() string {
	rows := []string{
		styles.CardTitleStyle.Render("Window"),
		styles.FocusedStyle.Render("> Hours:"),
		m.hoursInput.View(),
	}
	if m.inputErr != "" {
		rows = append(rows, styles.ErrorTextStyle.Render(m.inputErr))
	}
	rows = append(rows, "", styles.HelpStyle.Render("Enter: apply | Esc: cancel"))

	return styles.CardStyle.Width(min(m.cardWidth(), 60)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderBody() string {
	if m.state.IsLoading(app.ResourceAdvice) {
		return styles.CardStyle.Width(m.cardWidth()).Render(m.spinner.ViewWithLabel())
	}

	res := m.state.GetAdvice()
	if res == nil {
		return m.renderEmpty()
	}

	rows := []string{styles.CardTitleStyle.Render("Summary")}
	if res.Stats != nil {
		f := report.NewFormatter(nil, 0, 0)
		if badge := components.SourceBadge(res.Stats.Source, f); badge != "" {
			rows = append(rows, badge)
		}
	}
	if res.Err != nil && res.Text != advisory.NotConfiguredText {
		rows = append(rows, styles.WarningTextStyle.Render("Advisory call failed: "+res.Err.Error()))
	}

	m.viewport.Width = m.cardWidth() - 4
	text := lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.TrimSpace(res.Text))
	m.viewport.SetContent(text)
	rows = append(rows, "", m.viewport.View())

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderEmpty() string {
	rows := []string{
		"",
		styles.HelpStyle.Render("No advice generated yet."),
		"",
	}
	if m.configured != nil && !m.configured() {
		rows = append(rows,
			styles.WarningTextStyle.Render(advisory.NotConfiguredText),
			styles.HelpStyle.Render(advisory.NotConfiguredHint),
			"",
		)
	}
	rows = append(rows, styles.InfoTextStyle.Render("Press g to generate advice"), "")

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}

func (m *Model) renderFooter() string {
	shortcuts := []string{"g generate", "w window", "↑/↓ scroll"}
	if m.editing {
		shortcuts = []string{"enter apply", "esc cancel"}
	}
	return lipgloss.NewStyle().
		MarginTop(1).
		Foreground(styles.TextMuted).
		Render(strings.Join(shortcuts, " | "))
}
