package models

import (
	"encoding/json"
	"time"
)

// ModelRank is one entry of the top-N ranking.
type ModelRank struct {
	ModelName string
	Count     int64
	Tokens    int64
	Quota     int64
}

// HourlyBucket holds the requests observed in one hour of the window.
type HourlyBucket struct {
	Start    time.Time
	Requests int64
	Tokens   int64
}

// StatsReport is the derived aggregate over one window. It is never persisted.
type StatsReport struct {
	WindowStart   time.Time
	WindowEnd     time.Time
	Ranking       []ModelRank
	Hourly        []HourlyBucket
	TotalTokens   int64
	TotalRequests int64
	TotalQuota    int64
	AvgRPM        float64
	AvgTPM        float64
	Models        int
	Empty         bool
}

// WindowMinutes returns the window length in minutes.
func (s *StatsReport) WindowMinutes() float64 {
	return s.WindowEnd.Sub(s.WindowStart).Minutes()
}

// AnomalyReport summarizes failed and slow calls.
type AnomalyReport struct {
	ErrorSamples    []Observation
	SlowSamples     []Observation
	ErrorCount      int
	SlowCount       int
	SlowThresholdMs int64
	Scanned         int
}

// HasAnomalies reports whether any failure or slow call was seen.
func (a *AnomalyReport) HasAnomalies() bool {
	return a != nil && (a.ErrorCount > 0 || a.SlowCount > 0)
}

// UserInfo is the account summary from /api/user/self.
type UserInfo struct {
	Username     string
	Nickname     string
	Group        string
	Role         int64
	Status       int64
	RequestCount int64
	UsedQuota    int64
	Quota        int64
}

// UserInfoFromMap builds a UserInfo from the data object of /api/user/self.
func UserInfoFromMap(row map[string]any) UserInfo {
	return UserInfo{
		Username:     anyToString(firstValue(row, "username")),
		Nickname:     anyToString(firstValue(row, "display_name", "displayName", "nickname")),
		Group:        anyToString(firstValue(row, "group")),
		Role:         nonNegativeInt(firstValue(row, "role")),
		Status:       nonNegativeInt(firstValue(row, "status")),
		RequestCount: nonNegativeInt(firstValue(row, "request_count", "requestCount")),
		UsedQuota:    nonNegativeInt(firstValue(row, "used_quota", "usedQuota")),
		Quota:        nonNegativeInt(firstValue(row, "quota")),
	}
}

// Balance converts the remaining quota to currency units.
func (u UserInfo) Balance(quotaPerUnit float64) float64 {
	if quotaPerUnit <= 0 {
		return 0
	}
	return float64(u.Quota) / quotaPerUnit
}

// RoleName returns a display label for the numeric role.
func (u UserInfo) RoleName() string {
	switch {
	case u.Role >= 100:
		return "root"
	case u.Role >= 10:
		return "admin"
	case u.Role >= 1:
		return "user"
	default:
		return "guest"
	}
}

// StatusName returns a display label for the numeric status.
func (u UserInfo) StatusName() string {
	switch u.Status {
	case 1:
		return "enabled"
	case 2:
		return "disabled"
	default:
		return "unknown"
	}
}

// FallbackSnapshot is the last successful raw payload for one endpoint.
type FallbackSnapshot struct {
	CapturedAt  time.Time       `json:"captured_at"`
	EndpointKey string          `json:"-"`
	RawPayload  json.RawMessage `json:"raw_payload"`
}

// Age returns how old the snapshot is relative to now.
func (s *FallbackSnapshot) Age(now time.Time) time.Duration {
	if s == nil || s.CapturedAt.IsZero() {
		return 0
	}
	return now.Sub(s.CapturedAt)
}
