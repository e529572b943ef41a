package account

import (
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/mask"
	"github.com/j-veylop/newapi-usage-tui/internal/services/projection"
	"github.com/j-veylop/newapi-usage-tui/internal/services/report"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/components"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
	"github.com/j-veylop/newapi-usage-tui/internal/version"
)

// View renders the account tab.
func (m *Model) View() string {
	cfg := m.currentConfig()
	f := formatter(cfg)

	sections := []string{
		m.renderTitle(),
		m.renderUserCard(f, cfg),
		m.renderConfigCard(cfg),
		m.renderSnapshotsCard(f),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func formatter(cfg *config.Config) *report.Formatter {
	if cfg == nil {
		return report.NewFormatter(nil, 0, 0)
	}
	return report.NewFormatter(cfg.DisplayLocation, cfg.TopN, cfg.QuotaPerUnit)
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Account")
	subtitle := styles.HelpStyle.Render("Upstream account, configuration and saved snapshots")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderUserCard(f *report.Formatter, cfg *config.Config) string {
	rows := []string{styles.CardTitleStyle.Render("User")}

	res := m.state.GetUser()
	if res == nil {
		rows = append(rows, styles.HelpStyle.Render("Account details not loaded yet"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	u := res.User
	perUnit := 0.0
	if cfg != nil {
		perUnit = cfg.QuotaPerUnit
	}

	statusStyle := styles.SuccessTextStyle
	if u.StatusName() != "enabled" {
		statusStyle = styles.WarningTextStyle
	}

	rows = append(rows,
		row("Username", orDash(u.Username)),
		row("Display name", orDash(u.Nickname)),
		row("Group", orDash(u.Group)),
		row("Role", u.RoleName()),
		row("Status", statusStyle.Render(u.StatusName())),
		row("Requests", humanize.Comma(u.RequestCount)),
		row("Used quota", humanize.Comma(u.UsedQuota)),
		row("Balance", "$"+humanize.CommafWithDigits(u.Balance(perUnit), 2)),
	)
	if st := m.state.GetStats(); st != nil && st.Report != nil {
		rows = append(rows, row("Runway", renderRunway(projection.Calculate(st.Report, u, time.Now()))))
	}
	if u.UsedQuota+u.Quota > 0 {
		rows = append(rows, "", components.ShareBar("Used", u.UsedQuota, u.UsedQuota+u.Quota, m.cardWidth()-8))
	}
	if badge := components.SourceBadge(res.Source, f); badge != "" {
		rows = append(rows, "", badge)
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderConfigCard(cfg *config.Config) string {
	rows := []string{styles.CardTitleStyle.Render("Configuration")}

	if cfg == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	advisory := styles.HelpStyle.Render("not configured")
	if p, err := cfg.LLMProvider(); err == nil {
		advisory = fmt.Sprintf("%s (%s, %s)", p.ID, p.Kind, p.Model)
	}

	rows = append(rows,
		row("Base domain", cfg.BaseDomain),
		row("Authorization", orDash(mask.Authorization(cfg.Authorization))),
		row("User ID", orDash(cfg.NewAPIUser)),
		row("Window", cfg.Window().String()),
		row("Top models", fmt.Sprintf("%d", cfg.TopN)),
		row("Slow threshold", fmt.Sprintf("%dms", cfg.SlowThresholdMs)),
		row("Fallback", fmt.Sprintf("%s at %s", cfg.FallbackBackend, orDash(cfg.FallbackPath))),
		row("Refresh", refreshLabel(cfg.RefreshInterval)),
		row("Advisory", advisory),
	)
	if cfg.ConfigFile != "" {
		rows = append(rows, row("Config file", cfg.ConfigFile))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderSnapshotsCard(f *report.Formatter) string {
	rows := []string{styles.CardTitleStyle.Render("Saved snapshots")}

	infos := m.state.GetSnapshots()
	if len(infos) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No snapshots saved yet"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	for _, info := range infos {
		rows = append(rows, fmt.Sprintf("%-20s %s  %s  %s",
			info.EndpointKey,
			f.Timestamp(info.CapturedAt),
			styles.HelpStyle.Render(humanize.Time(info.CapturedAt)),
			humanize.Bytes(uint64(max(info.PayloadBytes, 0))),
		))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About " + version.Name),
		row("Version", version.GetVersion()),
		row("Build Date", version.GetDate()),
		row("Git Commit", version.GetCommit()),
		row("Go Version", runtime.Version()),
		row("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderRunway(r *projection.Runway) string {
	if r.Status == projection.StatusUnknown {
		return styles.HelpStyle.Render("no spend in window")
	}

	style := styles.SuccessTextStyle
	switch r.Status {
	case projection.StatusCritical:
		style = styles.ErrorTextStyle
	case projection.StatusWarning:
		style = styles.WarningTextStyle
	}

	text := fmt.Sprintf("empty %s at %s/h", humanize.Time(r.DepleteAt), humanize.Comma(int64(r.BurnPerHour)))
	return style.Render(text) + styles.HelpStyle.Render(fmt.Sprintf("  (%s confidence, %s)", r.Confidence, r.Trend))
}

func row(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func refreshLabel(d time.Duration) string {
	if d <= 0 {
		return "manual"
	}
	return "every " + d.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
