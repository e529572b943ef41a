// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/newapi-usage-tui/internal/ui/styles"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	width = max(width, 20)
	height = max(height, 3)

	// asciigraph needs two points to draw a line.
	if len(data) == 1 {
		data = []float64{data[0], data[0]}
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.DarkOrange),
	)
}

// RenderBarChart creates a simple horizontal bar chart. format renders the
// trailing value; nil falls back to one decimal.
func RenderBarChart(values []float64, labels []string, width int, format func(float64) string) string {
	if len(values) == 0 {
		return ""
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}

	maxVal := peak(values)

	maxLabelLen := 0
	for _, l := range labels {
		maxLabelLen = max(maxLabelLen, lipgloss.Width(l))
	}

	barWidth := max(width-maxLabelLen-12, 10)

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		barLen := max(int((v/maxVal)*float64(barWidth)), 0)
		bar := lipgloss.NewStyle().Foreground(styles.Requests).Render(strings.Repeat("█", barLen))

		lines = append(lines, fmt.Sprintf("%*s │%s %s", maxLabelLen, label, bar, format(v)))
	}

	return strings.Join(lines, "\n")
}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

// RenderHourlyHeatmap draws one cell per hourly bucket, oldest first, with a
// gap every 12 cells.
func RenderHourlyHeatmap(counts []float64) string {
	if len(counts) == 0 {
		return ""
	}

	maxVal := peak(counts)

	var result strings.Builder
	for i, v := range counts {
		intensity := min(max(int((v/maxVal)*float64(len(HeatmapBlocks)-1)), 0), len(HeatmapBlocks)-1)

		var style lipgloss.Style
		switch {
		case v == 0:
			style = lipgloss.NewStyle().Foreground(styles.BgLight)
		case intensity <= 1:
			style = lipgloss.NewStyle().Foreground(styles.Success)
		case intensity == 2:
			style = lipgloss.NewStyle().Foreground(styles.Warning)
		default:
			style = lipgloss.NewStyle().Foreground(styles.Requests)
		}

		result.WriteString(style.Render(string(HeatmapBlocks[intensity])))
		if i%12 == 11 && i < len(counts)-1 {
			result.WriteString(" ")
		}
	}

	return result.String()
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := peak(values)

	var result strings.Builder
	for _, v := range sample(values, width) {
		result.WriteRune(sparkChars[sparkLevel(v, maxVal)])
	}
	return result.String()
}

// RenderLatencySparkline colors each column against the slow threshold:
// green below half of it, yellow below it, red at or above.
func RenderLatencySparkline(values []float64, width int, threshold float64) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := max(peak(values), threshold)

	var result strings.Builder
	for _, v := range sample(values, width) {
		style := styles.RateHealthyStyle
		switch {
		case threshold > 0 && v >= threshold:
			style = styles.RateFailingStyle
		case threshold > 0 && v >= threshold/2:
			style = styles.RateDegradedStyle
		}
		result.WriteString(style.Render(string(sparkChars[sparkLevel(v, maxVal)])))
	}
	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

func peak(values []float64) float64 {
	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		return 1
	}
	return maxVal
}

func sample(values []float64, width int) []float64 {
	step := max(float64(len(values))/float64(width), 1)
	out := make([]float64, 0, min(width, len(values)))
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		out = append(out, values[int(float64(i)*step)])
	}
	return out
}

func sparkLevel(v, maxVal float64) int {
	return min(max(int((v/maxVal)*float64(len(sparkChars)-1)), 0), len(sparkChars)-1)
}
