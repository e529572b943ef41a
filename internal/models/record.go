// Package models defines the records, reports and snapshots shared across the application.
package models

import (
	"time"
)

// UsageRecord is one hourly usage bucket from /api/data/self.
type UsageRecord struct {
	ModelName  string
	Status     string
	CreatedAt  int64
	TokenUsed  int64
	Count      int64
	Quota      int64
	LatencyMs  int64
	HasLatency bool
}

// Time returns CreatedAt as a time.Time.
func (r UsageRecord) Time() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

// RecordFromMap builds a UsageRecord from one decoded list element.
// Missing or malformed numbers become zero.
func RecordFromMap(row map[string]any) UsageRecord {
	rec := UsageRecord{
		CreatedAt: unixSeconds(firstValue(row, "created_at", "createdAt", "timestamp")),
		ModelName: anyToString(firstValue(row, "model_name", "modelName", "model")),
		TokenUsed: nonNegativeInt(firstValue(row, "token_used", "tokenUsed", "tokens", "total_tokens")),
		Count:     nonNegativeInt(firstValue(row, "count", "requests", "request_count")),
		Quota:     nonNegativeInt(firstValue(row, "quota")),
		Status:    anyToString(firstValue(row, "status")),
	}
	if raw := firstValue(row, "latency_ms", "latencyMs"); raw != nil {
		if _, ok := parseFloat(raw); ok {
			rec.LatencyMs = nonNegativeInt(raw)
			rec.HasLatency = true
		}
	}
	return rec
}

// RecordsFromList converts a normalized list, skipping elements that are not objects.
func RecordsFromList(items []any) []UsageRecord {
	records := make([]UsageRecord, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, RecordFromMap(row))
	}
	return records
}

// Observation projects a record for anomaly detection.
func (r UsageRecord) Observation() Observation {
	return Observation{
		CreatedAt:  r.CreatedAt,
		Model:      r.ModelName,
		Status:     r.Status,
		LatencyMs:  r.LatencyMs,
		HasLatency: r.HasLatency,
	}
}

// LogType is the new-api log category.
type LogType int

const (
	LogTypeUnknown LogType = 0
	LogTypeTopUp   LogType = 1
	LogTypeConsume LogType = 2
	LogTypeManage  LogType = 3
	LogTypeSystem  LogType = 4
	LogTypeError   LogType = 5
)

// String returns the display label.
func (t LogType) String() string {
	switch t {
	case LogTypeConsume:
		return "consume"
	case LogTypeError:
		return "error"
	default:
		return "other"
	}
}

// LogEntry is one element of /api/log/.
type LogEntry struct {
	ModelName        string
	TokenName        string
	IP               string
	Content          string
	Status           string
	CreatedAt        int64
	PromptTokens     int64
	CompletionTokens int64
	Quota            int64
	LatencyMs        int64
	Type             LogType
	HasLatency       bool
}

// Time returns CreatedAt as a time.Time.
func (e LogEntry) Time() time.Time {
	return time.Unix(e.CreatedAt, 0)
}

// LogEntryFromMap builds a LogEntry. latencyUnit is the unit of the upstream
// use_time field.
func LogEntryFromMap(row map[string]any, latencyUnit time.Duration) LogEntry {
	entry := LogEntry{
		CreatedAt:        unixSeconds(firstValue(row, "created_at", "createdAt")),
		Type:             LogType(nonNegativeInt(firstValue(row, "type"))),
		ModelName:        anyToString(firstValue(row, "model_name", "modelName", "model")),
		TokenName:        anyToString(firstValue(row, "token_name", "tokenName")),
		PromptTokens:     nonNegativeInt(firstValue(row, "prompt_tokens", "promptTokens")),
		CompletionTokens: nonNegativeInt(firstValue(row, "completion_tokens", "completionTokens")),
		Quota:            nonNegativeInt(firstValue(row, "quota")),
		IP:               anyToString(firstValue(row, "ip")),
		Content:          anyToString(firstValue(row, "content")),
		Status:           anyToString(firstValue(row, "status")),
	}

	if latencyUnit <= 0 {
		latencyUnit = time.Millisecond
	}
	if raw := firstValue(row, "use_time", "useTime", "latency_ms", "duration"); raw != nil {
		if f, ok := parseFloat(raw); ok {
			entry.LatencyMs = max(int64(f*float64(latencyUnit)/float64(time.Millisecond)), 0)
			entry.HasLatency = true
		}
	}
	return entry
}

// LogEntriesFromList converts a normalized list, skipping non-object elements.
func LogEntriesFromList(items []any, latencyUnit time.Duration) []LogEntry {
	entries := make([]LogEntry, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, LogEntryFromMap(row, latencyUnit))
	}
	return entries
}

// TotalTokens is prompt plus completion tokens.
func (e LogEntry) TotalTokens() int64 {
	return e.PromptTokens + e.CompletionTokens
}

// Observation projects a log entry for anomaly detection.
func (e LogEntry) Observation() Observation {
	return Observation{
		CreatedAt:  e.CreatedAt,
		Model:      e.ModelName,
		Status:     e.Status,
		Detail:     e.Content,
		IP:         e.IP,
		Type:       e.Type,
		LatencyMs:  e.LatencyMs,
		HasLatency: e.HasLatency,
	}
}

// Observation is the common shape the anomaly detector scans.
type Observation struct {
	Model      string
	Status     string
	Detail     string
	IP         string
	CreatedAt  int64
	LatencyMs  int64
	Type       LogType
	HasLatency bool
}

// Time returns CreatedAt as a time.Time.
func (o Observation) Time() time.Time {
	return time.Unix(o.CreatedAt, 0)
}

func unixSeconds(v any) int64 {
	t := parseTimeField(v)
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
