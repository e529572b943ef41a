package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/newapi-usage-tui/internal/logger"
	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
)

const (
	shareFrom = "#6c5ce7"
	shareTo   = "#ff8c42"
)

// RateGauge renders an error-rate gauge backed by a bubbles progress bar.
type RateGauge struct {
	progress progress.Model
}

// NewRateGauge creates a gauge that shifts from green to red as the rate grows.
func NewRateGauge(width int) RateGauge {
	return RateGauge{
		progress: progress.New(
			progress.WithScaledGradient("#51cf66", "#ff6b6b"),
			progress.WithWidth(max(width, 5)),
			progress.WithoutPercentage(),
		),
	}
}

// SetWidth sets the bar width.
func (g *RateGauge) SetWidth(width int) {
	g.progress.Width = max(width, 5)
}

// View renders failed/total as a gauge followed by the percentage.
func (g RateGauge) View(label string, failed, total int) string {
	percent := 0.0
	if total > 0 {
		percent = float64(failed) / float64(total) * 100
	}

	labelStr := styles.ProgressLabelStyle.Width(15).Render(label)
	bar := g.progress.ViewAs(min(percent/100, 1))
	percentStr := styles.GetRateStyle(percent).
		Width(8).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.1f%%", percent))

	return lipgloss.JoinHorizontal(lipgloss.Center, labelStr, bar, " ", percentStr)
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*percent/100), 0), width)

	var b strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(shareFrom, shareTo, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}

	return b.String()
}

// ShareBar renders a labelled bar showing part as a share of total.
func ShareBar(label string, part, total int64, width int) string {
	percent := 0.0
	if total > 0 {
		percent = float64(part) / float64(total) * 100
	}

	const percentWidth = 7
	barWidth := max(width-lipgloss.Width(label)-percentWidth-4, 5)

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)
	percentStr := styles.GetShareStyle(percent).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.1f%%", percent))

	return fmt.Sprintf("%s [%s] %s", labelStr, RenderGradientBar(percent, barWidth), percentStr)
}

// ShareBarLoading renders a shimmering placeholder while the first report loads.
func ShareBarLoading(width, frame int) string {
	barWidth := max(width-12, 10)

	const cycle = 120
	t := float64(frame%cycle) / float64(cycle)
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(barWidth))

	var b strings.Builder
	for i := range barWidth {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}

		switch {
		case dist < 3:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render("▓"))
		case dist < 5:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			b.WriteString(lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}

	dots := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	dot := lipgloss.NewStyle().Foreground(styles.Primary).Render(dots[(frame/2)%len(dots)])

	return "    " + b.String() + " " + dot
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
