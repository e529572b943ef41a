// Package anomaly flags failed and slow calls in usage records and logs.
package anomaly

import (
	"sort"
	"strconv"
	"strings"

	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

// Options configures detection. Both values come from configuration.
type Options struct {
	SlowThresholdMs int64
	SampleLimit     int
}

var failureStatuses = map[string]bool{
	"error":   true,
	"failed":  true,
	"failure": true,
	"fail":    true,
	"timeout": true,
}

// IsFailure reports whether an observation represents a failed call.
func IsFailure(o models.Observation) bool {
	if o.Type == models.LogTypeError {
		return true
	}
	status := strings.ToLower(strings.TrimSpace(o.Status))
	if status == "" {
		return false
	}
	if failureStatuses[status] {
		return true
	}
	if code, err := strconv.Atoi(status); err == nil {
		return code >= 400
	}
	return false
}

// IsSlow reports whether latency exceeds the threshold.
func IsSlow(o models.Observation, thresholdMs int64) bool {
	return o.HasLatency && o.LatencyMs > thresholdMs
}

// Detect counts failures and slow calls and keeps up to SampleLimit samples of
// each, most recent first. The input slice is not modified.
func Detect(observations []models.Observation, opts Options) *models.AnomalyReport {
	report := &models.AnomalyReport{
		SlowThresholdMs: opts.SlowThresholdMs,
		Scanned:         len(observations),
	}

	var errs, slow []models.Observation
	for _, o := range observations {
		if IsFailure(o) {
			report.ErrorCount++
			errs = append(errs, o)
		}
		if IsSlow(o, opts.SlowThresholdMs) {
			report.SlowCount++
			slow = append(slow, o)
		}
	}

	report.ErrorSamples = newestFirst(errs, opts.SampleLimit)
	report.SlowSamples = newestFirst(slow, opts.SampleLimit)

	return report
}

// FromRecords projects usage records and runs Detect.
func FromRecords(records []models.UsageRecord, opts Options) *models.AnomalyReport {
	obs := make([]models.Observation, len(records))
	for i, r := range records {
		obs[i] = r.Observation()
	}
	return Detect(obs, opts)
}

// FromLogs projects log entries and runs Detect.
func FromLogs(entries []models.LogEntry, opts Options) *models.AnomalyReport {
	obs := make([]models.Observation, len(entries))
	for i, e := range entries {
		obs[i] = e.Observation()
	}
	return Detect(obs, opts)
}

func newestFirst(obs []models.Observation, limit int) []models.Observation {
	if limit <= 0 || len(obs) == 0 {
		return []models.Observation{}
	}
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].CreatedAt > obs[j].CreatedAt
	})
	if len(obs) > limit {
		obs = obs[:limit]
	}
	return obs
}
