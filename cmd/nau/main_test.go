package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/upstream"
)

func testConfig(t *testing.T, baseDomain string) *config.Config {
	t.Helper()
	return &config.Config{
		BaseDomain:      baseDomain,
		Authorization:   "Bearer test-token",
		NewAPIUser:      "1",
		RequestTimeout:  2 * time.Second,
		WindowMinutes:   60,
		TopN:            3,
		LogPageSize:     20,
		SlowThresholdMs: 10000,
		LatencyUnit:     time.Millisecond,
		AnomalySamples:  3,
		QuotaPerUnit:    500,
		DisplayLocation: time.UTC,
		PageChars:       900,
		LLMTimeout:      time.Second,
		FallbackBackend: config.BackendJSON,
		FallbackPath:    filepath.Join(t.TempDir(), "snapshots.json"),
	}
}

func TestOptionalInt(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{nil, 0, false},
		{[]string{"48"}, 48, false},
		{[]string{"0"}, 0, true},
		{[]string{"-1"}, 0, true},
		{[]string{"abc"}, 0, true},
		{[]string{"1", "2"}, 0, true},
	}

	for _, tt := range tests {
		got, err := optionalInt(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("optionalInt(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, errUsage) {
			t.Errorf("optionalInt(%v) error should wrap errUsage", tt.args)
		}
		if got != tt.want {
			t.Errorf("optionalInt(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}

func TestRunReport_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := runReport(context.Background(), &out, testConfig(t, "http://127.0.0.1:1"), "bogus", 0)
	if !errors.Is(err, errUsage) {
		t.Errorf("runReport(bogus) error = %v, want errUsage", err)
	}
}

func TestRunReport_User(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != upstream.EndpointUser {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"username":"alice","group":"vip","role":1,"status":1,"request_count":12,"used_quota":500,"quota":1000}}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := runReport(context.Background(), &out, testConfig(t, srv.URL), "user", 0); err != nil {
		t.Fatalf("runReport(user) error = %v", err)
	}
	if !strings.Contains(out.String(), "alice") {
		t.Errorf("output missing username:\n%s", out.String())
	}
}

func TestRunReport_DiagnosticDoesNotFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := runReport(context.Background(), &out, testConfig(t, srv.URL), "user", 0); err != nil {
		t.Fatalf("diagnostics should not fail the command: %v", err)
	}
	if !strings.Contains(out.String(), "no usable snapshot") {
		t.Errorf("output should carry the diagnostic:\n%s", out.String())
	}
}

func TestDiagnostic_PlainError(t *testing.T) {
	var out bytes.Buffer
	if err := diagnostic(&out, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Request failed: boom") {
		t.Errorf("got %q", out.String())
	}
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	printUsage(&out)
	for _, want := range []string{"stats [hours]", "logs [page_size]", "advise [hours]", "dashboard"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestRun_UnknownCommandBeforeConfig(t *testing.T) {
	if err := run([]string{"bogus"}); !errors.Is(err, errUsage) {
		t.Errorf("run(bogus) error = %v, want errUsage", err)
	}
	if err := run([]string{"stats", "x"}); !errors.Is(err, errUsage) {
		t.Errorf("run(stats x) error = %v, want errUsage", err)
	}
}
