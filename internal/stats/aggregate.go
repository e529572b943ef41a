// Package stats computes windowed usage totals, rates and model rankings.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

const maxHourlyBuckets = 24 * 31

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEndingAt returns the window of length d that ends at end.
func WindowEndingAt(end time.Time, d time.Duration) Window {
	return Window{Start: end.Add(-d), End: end}
}

// Minutes returns the window length in minutes.
func (w Window) Minutes() float64 {
	return w.End.Sub(w.Start).Minutes()
}

// Contains reports whether the epoch second ts lies in [Start, End).
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start.Unix() && ts < w.End.Unix()
}

// Validate rejects empty or inverted windows.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return apperr.Wrap(fmt.Errorf("window end %s is not after start %s",
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339)), apperr.CodeInvalidConfig, "invalid window")
	}
	return nil
}

// Aggregate filters records to the window and computes totals, averages and
// the top-N ranking. An empty result is a zeroed report with Empty set.
func Aggregate(records []models.UsageRecord, w Window, topN int) (*models.StatsReport, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	report := &models.StatsReport{
		WindowStart: w.Start,
		WindowEnd:   w.End,
		Ranking:     []models.ModelRank{},
		Hourly:      newHourlyBuckets(w),
	}

	perModel := make(map[string]*models.ModelRank)
	for _, rec := range records {
		if !w.Contains(rec.CreatedAt) {
			continue
		}

		report.TotalTokens += rec.TokenUsed
		report.TotalRequests += rec.Count
		report.TotalQuota += rec.Quota

		rank, ok := perModel[rec.ModelName]
		if !ok {
			rank = &models.ModelRank{ModelName: rec.ModelName}
			perModel[rec.ModelName] = rank
		}
		rank.Count += rec.Count
		rank.Tokens += rec.TokenUsed
		rank.Quota += rec.Quota

		if idx := hourIndex(w, rec.CreatedAt); idx < len(report.Hourly) {
			report.Hourly[idx].Requests += rec.Count
			report.Hourly[idx].Tokens += rec.TokenUsed
		}
	}

	report.Models = len(perModel)
	report.Empty = len(perModel) == 0

	minutes := w.Minutes()
	report.AvgRPM = float64(report.TotalRequests) / minutes
	report.AvgTPM = float64(report.TotalTokens) / minutes

	report.Ranking = rank(perModel, topN)

	return report, nil
}

// rank sorts by summed count descending, then model name ascending.
func rank(perModel map[string]*models.ModelRank, topN int) []models.ModelRank {
	ranking := make([]models.ModelRank, 0, len(perModel))
	for _, r := range perModel {
		ranking = append(ranking, *r)
	}

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].ModelName < ranking[j].ModelName
	})

	if topN < 0 {
		topN = 0
	}
	if len(ranking) > topN {
		ranking = ranking[:topN]
	}
	return ranking
}

func newHourlyBuckets(w Window) []models.HourlyBucket {
	n := int(w.End.Sub(w.Start).Hours())
	if w.Start.Add(time.Duration(n) * time.Hour).Before(w.End) {
		n++
	}
	n = min(n, maxHourlyBuckets)

	buckets := make([]models.HourlyBucket, n)
	for i := range buckets {
		buckets[i].Start = w.Start.Add(time.Duration(i) * time.Hour)
	}
	return buckets
}

func hourIndex(w Window, ts int64) int {
	return int((ts - w.Start.Unix()) / 3600)
}

// RatePerModel returns requests and tokens per minute for one ranking entry.
func RatePerModel(r models.ModelRank, w Window) (rpm, tpm float64) {
	minutes := w.Minutes()
	if minutes <= 0 {
		return 0, 0
	}
	return float64(r.Count) / minutes, float64(r.Tokens) / minutes
}

// LatestCreatedAt returns the newest record timestamp, or false when there are none.
func LatestCreatedAt(records []models.UsageRecord) (time.Time, bool) {
	var latest int64
	for _, rec := range records {
		if rec.CreatedAt > latest {
			latest = rec.CreatedAt
		}
	}
	if latest == 0 {
		return time.Time{}, false
	}
	return time.Unix(latest, 0), true
}
