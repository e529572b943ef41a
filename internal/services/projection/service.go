// Package projection estimates how long the remaining account quota lasts at
// the burn rate observed in the current usage window.
package projection

import (
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

const (
	lowConfThreshold = 6
	medConfThreshold = 24

	criticalHours = 24
	warningHours  = 7 * 24
)

// Status classifies a runway.
type Status int

const (
	StatusUnknown Status = iota
	StatusSafe
	StatusWarning
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusSafe:
		return "safe"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Runway is the projected lifetime of the remaining quota.
type Runway struct {
	DepleteAt   time.Time
	Confidence  string
	Trend       string
	Remaining   int64
	BurnPerHour float64
	HoursLeft   float64
	ActiveHours int
	Status      Status
}

// Calculate projects the runway of user's remaining quota from the window in
// report. A window with no spend yields an infinite runway and StatusUnknown.
func Calculate(report *models.StatsReport, user models.UserInfo, now time.Time) *Runway {
	r := &Runway{
		Remaining:  user.Quota,
		HoursLeft:  math.Inf(1),
		Confidence: "low",
		Trend:      "No prior data",
	}
	if report == nil {
		return r
	}

	for _, b := range report.Hourly {
		if b.Requests > 0 {
			r.ActiveHours++
		}
	}
	switch {
	case r.ActiveHours < lowConfThreshold:
		r.Confidence = "low"
	case r.ActiveHours < medConfThreshold:
		r.Confidence = "medium"
	default:
		r.Confidence = "high"
	}

	hours := report.WindowEnd.Sub(report.WindowStart).Hours()
	if hours <= 0 {
		return r
	}
	r.Trend = formatTrend(report.Hourly, float64(report.TotalRequests)/hours)

	r.BurnPerHour = float64(report.TotalQuota) / hours
	if r.BurnPerHour <= 0 {
		return r
	}

	r.HoursLeft = float64(user.Quota) / r.BurnPerHour
	r.DepleteAt = now.Add(time.Duration(r.HoursLeft * float64(time.Hour)))

	switch {
	case r.HoursLeft < criticalHours:
		r.Status = StatusCritical
	case r.HoursLeft < warningHours:
		r.Status = StatusWarning
	default:
		r.Status = StatusSafe
	}
	return r
}

// formatTrend compares the latest active hour with the window average.
func formatTrend(hourly []models.HourlyBucket, avgPerHour float64) string {
	if avgPerHour <= 0 {
		return "No prior data"
	}
	var latest *models.HourlyBucket
	for i := range hourly {
		if hourly[i].Requests > 0 && (latest == nil || hourly[i].Start.After(latest.Start)) {
			latest = &hourly[i]
		}
	}
	if latest == nil {
		return "No prior data"
	}

	diff := (float64(latest.Requests) - avgPerHour) / avgPerHour * 100
	if math.Abs(diff) < 10 {
		return "Similar to window average"
	} else if diff > 0 {
		return fmt.Sprintf("%.0f%% above window average", diff)
	}
	return fmt.Sprintf("%.0f%% below window average", -diff)
}
