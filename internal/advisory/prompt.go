package advisory

import (
	"fmt"
	"strings"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/mask"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

// Input is everything the prompt is built from.
type Input struct {
	Stats     *models.StatsReport
	Anomalies *models.AnomalyReport
	Location  *time.Location
	Fallback  bool
}

// BuildPrompt renders stats and anomaly samples as plain text. Sample details
// pass through the masker.
func BuildPrompt(in Input) string {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	b.WriteString("Usage report for an API gateway account.\n")

	if s := in.Stats; s != nil {
		fmt.Fprintf(&b, "Window: %s to %s (%.0f minutes)\n",
			s.WindowStart.In(loc).Format(time.DateTime),
			s.WindowEnd.In(loc).Format(time.DateTime),
			s.WindowMinutes())
		fmt.Fprintf(&b, "Total tokens: %d\nTotal requests: %d\nTotal quota: %d\n",
			s.TotalTokens, s.TotalRequests, s.TotalQuota)
		fmt.Fprintf(&b, "Average RPM: %.3f\nAverage TPM: %.3f\n", s.AvgRPM, s.AvgTPM)
		if s.Empty {
			b.WriteString("No records fell inside the window.\n")
		}
		if len(s.Ranking) > 0 {
			b.WriteString("Top models by request count:\n")
			for i, r := range s.Ranking {
				fmt.Fprintf(&b, "%d. %s: %d requests, %d tokens, quota %d\n",
					i+1, r.ModelName, r.Count, r.Tokens, r.Quota)
			}
		}
	}

	if a := in.Anomalies; a != nil {
		fmt.Fprintf(&b, "Failed calls: %d of %d\n", a.ErrorCount, a.Scanned)
		writeSamples(&b, a.ErrorSamples, loc)
		fmt.Fprintf(&b, "Slow calls (over %d ms): %d\n", a.SlowThresholdMs, a.SlowCount)
		writeSamples(&b, a.SlowSamples, loc)
	}

	if in.Fallback {
		b.WriteString("Note: the live endpoint was unavailable; figures come from the last saved snapshot.\n")
	}

	b.WriteString("Write a short assessment with recommendations.")
	return b.String()
}

func writeSamples(b *strings.Builder, samples []models.Observation, loc *time.Location) {
	for _, o := range samples {
		fmt.Fprintf(b, "  - %s model=%s", o.Time().In(loc).Format(time.DateTime), o.Model)
		if o.Status != "" {
			fmt.Fprintf(b, " status=%s", o.Status)
		}
		if o.HasLatency {
			fmt.Fprintf(b, " latency=%dms", o.LatencyMs)
		}
		if o.IP != "" {
			fmt.Fprintf(b, " ip=%s", mask.IP(o.IP))
		}
		if o.Detail != "" {
			fmt.Fprintf(b, " detail=%q", truncate(mask.Line(o.Detail), 160))
		}
		b.WriteByte('\n')
	}
}
