package report

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/j-veylop/newapi-usage-tui/internal/mask"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
	"github.com/j-veylop/newapi-usage-tui/internal/stats"
)

// EmptyNotice prefixes a stats report with no records in the window.
const EmptyNotice = "[notice] no usage data was returned for this window"

// Formatter renders results as plain text.
type Formatter struct {
	Location     *time.Location
	TopN         int
	QuotaPerUnit float64
}

// NewFormatter creates a Formatter from display settings.
func NewFormatter(loc *time.Location, topN int, quotaPerUnit float64) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{Location: loc, TopN: topN, QuotaPerUnit: quotaPerUnit}
}

// Timestamp formats t in the display zone. The zero time renders as "-".
func (f *Formatter) Timestamp(t time.Time) string {
	if t.IsZero() || t.Unix() <= 0 {
		return "-"
	}
	return t.In(f.Location).Format("2006-01-02 15:04:05 MST")
}

// Stats renders a stats result.
func (f *Formatter) Stats(res *StatsResult) string {
	r := res.Report
	var b strings.Builder

	if r.Empty {
		b.WriteString(EmptyNotice + "\n")
	}
	f.sourceNotice(&b, res.Source)

	b.WriteString("--- Usage report ---\n")
	fmt.Fprintf(&b, "Window: %d minutes\n", int(r.WindowMinutes()))
	fmt.Fprintf(&b, "Range: %s to %s\n", f.Timestamp(r.WindowStart), f.Timestamp(r.WindowEnd))
	fmt.Fprintf(&b, "Total tokens: %s\n", humanize.Comma(r.TotalTokens))
	fmt.Fprintf(&b, "Total requests: %s\n", humanize.Comma(r.TotalRequests))
	fmt.Fprintf(&b, "Total quota: %s\n", humanize.Comma(r.TotalQuota))
	fmt.Fprintf(&b, "Average RPM: %.3f\n", r.AvgRPM)
	fmt.Fprintf(&b, "Average TPM: %.3f\n", r.AvgTPM)
	b.WriteString("-------------------------\n")

	if f.TopN > 0 && len(r.Ranking) > 0 {
		window := stats.Window{Start: r.WindowStart, End: r.WindowEnd}
		fmt.Fprintf(&b, "Top %d models by requests:\n", f.TopN)
		for _, m := range r.Ranking {
			rpm, tpm := stats.RatePerModel(m, window)
			fmt.Fprintf(&b, "\nModel: %s\n", m.ModelName)
			fmt.Fprintf(&b, "  - Tokens: %s\n", humanize.Comma(m.Tokens))
			fmt.Fprintf(&b, "  - Requests: %s\n", humanize.Comma(m.Count))
			fmt.Fprintf(&b, "  - Average TPM: %.3f\n", tpm)
			fmt.Fprintf(&b, "  - Average RPM: %.3f\n", rpm)
			fmt.Fprintf(&b, "  - Quota: %s\n", humanize.Comma(m.Quota))
		}
	}

	if a := res.Anomalies; a.HasAnomalies() {
		b.WriteString("\n")
		f.anomalies(&b, a)
	}

	return strings.TrimRight(b.String(), "\n")
}

// Logs renders a logs result.
func (f *Formatter) Logs(res *LogsResult) string {
	if len(res.Entries) == 0 {
		return "No log entries were returned."
	}

	var b strings.Builder
	f.sourceNotice(&b, res.Source)
	fmt.Fprintf(&b, "Recent %d API calls\n", len(res.Entries))

	for _, e := range res.Entries {
		model := e.ModelName
		if model == "" {
			model = "unknown model"
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Time: %s\n", f.Timestamp(e.Time()))
		fmt.Fprintf(&b, " Type: %s\n", e.Type)
		fmt.Fprintf(&b, " Model: %s\n", model)
		fmt.Fprintf(&b, " Input: %s\n", humanize.Comma(e.PromptTokens))
		fmt.Fprintf(&b, " Output: %s\n", humanize.Comma(e.CompletionTokens))
		if e.HasLatency {
			fmt.Fprintf(&b, " Latency: %dms\n", e.LatencyMs)
		}
		fmt.Fprintf(&b, " IP: %s\n", mask.IP(e.IP))
		if e.Type == models.LogTypeError && e.Content != "" {
			fmt.Fprintf(&b, " Detail: %s\n", mask.Line(e.Content))
		}
	}

	if res.Anomalies.HasAnomalies() {
		b.WriteString("\n")
		f.anomalies(&b, res.Anomalies)
	}

	fmt.Fprintf(&b, "\nTotal: %d entries", len(res.Entries))
	return b.String()
}

// User renders an account summary.
func (f *Formatter) User(res *UserResult) string {
	u := res.User
	var b strings.Builder
	f.sourceNotice(&b, res.Source)

	b.WriteString("--- Account ---\n")
	fmt.Fprintf(&b, "Username: %s\n", orDash(u.Username))
	fmt.Fprintf(&b, "Display name: %s\n", orDash(u.Nickname))
	fmt.Fprintf(&b, "Group: %s\n", orDash(u.Group))
	fmt.Fprintf(&b, "Role: %s\n", u.RoleName())
	fmt.Fprintf(&b, "Status: %s\n", u.StatusName())
	fmt.Fprintf(&b, "Requests: %s\n", humanize.Comma(u.RequestCount))
	fmt.Fprintf(&b, "Used quota: %s\n", humanize.Comma(u.UsedQuota))
	fmt.Fprintf(&b, "Balance (quota/%g): $%s", f.QuotaPerUnit, humanize.CommafWithDigits(u.Balance(f.QuotaPerUnit), 2))
	return b.String()
}

func (f *Formatter) anomalies(b *strings.Builder, a *models.AnomalyReport) {
	fmt.Fprintf(b, "Anomalies: %d failed, %d slow (over %dms) of %d scanned\n",
		a.ErrorCount, a.SlowCount, a.SlowThresholdMs, a.Scanned)
	for _, o := range a.ErrorSamples {
		fmt.Fprintf(b, "  ! %s %s failed", f.Timestamp(o.Time()), orDash(o.Model))
		if o.Status != "" {
			fmt.Fprintf(b, " (%s)", o.Status)
		}
		b.WriteString("\n")
	}
	for _, o := range a.SlowSamples {
		fmt.Fprintf(b, "  ~ %s %s took %dms\n", f.Timestamp(o.Time()), orDash(o.Model), o.LatencyMs)
	}
}

func (f *Formatter) sourceNotice(b *strings.Builder, src Source) {
	switch {
	case src.Fallback:
		fmt.Fprintf(b, "[notice] live data unavailable, showing snapshot from %s\n", f.Timestamp(src.CapturedAt))
	case src.Anchored:
		b.WriteString("[notice] window anchored to the latest available record\n")
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Paginate splits text into pages of at most limit runes, preferring line
// breaks. limit <= 0 returns the text as one page.
func Paginate(text string, limit int) []string {
	if text == "" {
		return []string{"(empty)"}
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var pages []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			pages = append(pages, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n <= limit {
			cur.WriteString(line)
			curLen += n
			continue
		}
		flush()
		for n > limit {
			head, tail := splitRunes(line, limit)
			pages = append(pages, head)
			line = tail
			n -= limit
		}
		cur.WriteString(line)
		curLen = n
	}
	flush()

	for i, p := range pages {
		pages[i] = strings.TrimRight(p, "\n")
	}
	return pages
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}

// Deliver writes text to w either as one block or as numbered pages.
func Deliver(w io.Writer, text string, single bool, pageChars int) error {
	if single {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	pages := Paginate(text, pageChars)
	for i, p := range pages {
		if len(pages) > 1 {
			if _, err := fmt.Fprintf(w, "--- page %d/%d ---\n", i+1, len(pages)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}
