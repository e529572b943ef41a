package anomaly

import (
	"reflect"
	"testing"

	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

func TestIsFailure(t *testing.T) {
	tests := []struct {
		name string
		obs  models.Observation
		want bool
	}{
		{"ErrorLogType", models.Observation{Type: models.LogTypeError}, true},
		{"ConsumeLogType", models.Observation{Type: models.LogTypeConsume}, false},
		{"StatusError", models.Observation{Status: "Error"}, true},
		{"StatusTimeout", models.Observation{Status: " timeout "}, true},
		{"StatusCode500", models.Observation{Status: "500"}, true},
		{"StatusCode429", models.Observation{Status: "429"}, true},
		{"StatusCode200", models.Observation{Status: "200"}, false},
		{"StatusOK", models.Observation{Status: "success"}, false},
		{"NoStatus", models.Observation{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFailure(tt.obs); got != tt.want {
				t.Errorf("IsFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSlow(t *testing.T) {
	tests := []struct {
		name string
		obs  models.Observation
		want bool
	}{
		{"Above", models.Observation{LatencyMs: 10001, HasLatency: true}, true},
		{"Equal", models.Observation{LatencyMs: 10000, HasLatency: true}, false},
		{"Below", models.Observation{LatencyMs: 5, HasLatency: true}, false},
		{"Unknown", models.Observation{LatencyMs: 99999}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSlow(tt.obs, 10000); got != tt.want {
				t.Errorf("IsSlow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	obs := []models.Observation{
		{CreatedAt: 100, Type: models.LogTypeError, Model: "a"},
		{CreatedAt: 300, Type: models.LogTypeError, Model: "b"},
		{CreatedAt: 200, Status: "failed", Model: "c"},
		{CreatedAt: 400, Type: models.LogTypeError, Model: "d", LatencyMs: 20000, HasLatency: true},
		{CreatedAt: 150, LatencyMs: 15000, HasLatency: true, Model: "e"},
		{CreatedAt: 50, LatencyMs: 100, HasLatency: true, Model: "f"},
	}
	original := make([]models.Observation, len(obs))
	copy(original, obs)

	report := Detect(obs, Options{SlowThresholdMs: 10000, SampleLimit: 3})

	if report.ErrorCount != 4 {
		t.Errorf("ErrorCount = %d, want 4", report.ErrorCount)
	}
	if report.SlowCount != 2 {
		t.Errorf("SlowCount = %d, want 2", report.SlowCount)
	}
	if report.SlowThresholdMs != 10000 || report.Scanned != 6 {
		t.Errorf("threshold/scanned = %d/%d", report.SlowThresholdMs, report.Scanned)
	}

	gotErr := []string{}
	for _, s := range report.ErrorSamples {
		gotErr = append(gotErr, s.Model)
	}
	if want := []string{"d", "b", "c"}; !reflect.DeepEqual(gotErr, want) {
		t.Errorf("error samples = %v, want %v", gotErr, want)
	}

	gotSlow := []string{}
	for _, s := range report.SlowSamples {
		gotSlow = append(gotSlow, s.Model)
	}
	if want := []string{"d", "e"}; !reflect.DeepEqual(gotSlow, want) {
		t.Errorf("slow samples = %v, want %v", gotSlow, want)
	}

	if !reflect.DeepEqual(obs, original) {
		t.Error("Detect must not mutate its input")
	}
	if !report.HasAnomalies() {
		t.Error("HasAnomalies() should be true")
	}
}

func TestDetectZeroSampleLimit(t *testing.T) {
	obs := []models.Observation{{CreatedAt: 1, Type: models.LogTypeError}}

	report := Detect(obs, Options{SlowThresholdMs: 1, SampleLimit: 0})
	if report.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", report.ErrorCount)
	}
	if len(report.ErrorSamples) != 0 {
		t.Errorf("expected no samples, got %d", len(report.ErrorSamples))
	}
}

func TestDetectEmpty(t *testing.T) {
	report := Detect(nil, Options{SlowThresholdMs: 10000, SampleLimit: 3})
	if report.HasAnomalies() || report.Scanned != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestFromLogsAndRecords(t *testing.T) {
	logs := []models.LogEntry{
		{CreatedAt: 2, Type: models.LogTypeConsume, LatencyMs: 12000, HasLatency: true},
		{CreatedAt: 1, Type: models.LogTypeError},
	}
	report := FromLogs(logs, Options{SlowThresholdMs: 10000, SampleLimit: 5})
	if report.ErrorCount != 1 || report.SlowCount != 1 {
		t.Errorf("FromLogs counts = %d/%d", report.ErrorCount, report.SlowCount)
	}

	records := []models.UsageRecord{
		{CreatedAt: 1, Status: "error"},
		{CreatedAt: 2, LatencyMs: 20, HasLatency: true},
	}
	report = FromRecords(records, Options{SlowThresholdMs: 10, SampleLimit: 5})
	if report.ErrorCount != 1 || report.SlowCount != 1 {
		t.Errorf("FromRecords counts = %d/%d", report.ErrorCount, report.SlowCount)
	}
}
