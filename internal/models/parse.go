package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// mapValue looks up key exactly, then case-insensitively.
func mapValue(row map[string]any, key string) (any, bool) {
	if row == nil {
		return nil, false
	}
	if raw, ok := row[key]; ok {
		return raw, true
	}
	for candidate, raw := range row {
		if strings.EqualFold(candidate, key) {
			return raw, true
		}
	}
	return nil, false
}

// firstValue returns the first present, non-nil value among keys.
func firstValue(row map[string]any, keys ...string) any {
	for _, key := range keys {
		if raw, ok := mapValue(row, key); ok && raw != nil {
			return raw
		}
	}
	return nil
}

// parseFloat accepts JSON numbers, Go numerics and numeric strings.
func parseFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case int32:
		return float64(value), true
	case uint64:
		return float64(value), true
	case json.Number:
		parsed, err := value.Float64()
		return parsed, err == nil
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		return parsed, err == nil
	case bool:
		if value {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// nonNegativeInt parses v as an integer, clamping negatives and junk to zero.
func nonNegativeInt(v any) int64 {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return max(i, 0)
		}
	}
	f, ok := parseFloat(v)
	if !ok || math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func anyToString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

// parseTimeField accepts epoch seconds, epoch milliseconds or an RFC 3339 string.
func parseTimeField(v any) time.Time {
	if _, ok := v.(bool); ok {
		return time.Time{}
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		if t, err := time.Parse(time.DateTime, s); err == nil {
			return t
		}
	}

	numVal, ok := parseFloat(v)
	if !ok || numVal <= 0 {
		return time.Time{}
	}
	if numVal > 1e12 {
		return time.UnixMilli(int64(numVal))
	}
	return time.Unix(int64(numVal), 0)
}
