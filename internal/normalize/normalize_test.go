package normalize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("invalid test payload: %v", err)
	}
	return v
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantPath Path
		wantLen  int
	}{
		{"Data", `{"success":true,"data":[{"a":1},{"a":2}]}`, "data", 2},
		{"DataData", `{"data":{"data":[{"a":1}]}}`, "data.data", 1},
		{"DataList", `{"data":{"list":[{"a":1},{"a":2},{"a":3}]}}`, "data.list", 3},
		{"List", `{"list":[{"a":1}]}`, "list", 1},
		{"Self", `[{"a":1},{"a":2}]`, SelfPath, 2},
		{"EmptyListMatches", `{"data":[]}`, "data", 0},
		{"DataDataBeatsList", `{"data":{"data":[{"a":1}]},"list":[{"b":1},{"b":2}]}`, "data.data", 1},
		{"DataBeatsEverything", `{"data":[{"a":1}],"list":[{"b":1},{"b":2}]}`, "data", 1},
	}

	n := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, path, err := n.Extract(decode(t, tt.payload))
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			if len(list) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(list), tt.wantLen)
			}
		})
	}
}

func TestExtractFailures(t *testing.T) {
	payloads := map[string]string{
		"ErrorEnvelope": `{"success":false,"message":"invalid token"}`,
		"DataIsObject":  `{"data":{"items":null}}`,
		"Scalar":        `42`,
		"Null":          `null`,
	}

	n := New(nil)
	for name, raw := range payloads {
		t.Run(name, func(t *testing.T) {
			_, _, err := n.Extract(decode(t, raw))
			if !errors.Is(err, apperr.ErrNormalization) {
				t.Errorf("Extract() error = %v, want normalization error", err)
			}
		})
	}
}

func TestLogPaths(t *testing.T) {
	n := New(DefaultLogPaths)
	list, path, err := n.Extract(decode(t, `{"data":{"items":[{"id":1}],"total":1},"list":[]}`))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if path != "data.items" || len(list) != 1 {
		t.Errorf("got path %q len %d", path, len(list))
	}
}

func TestFromStrings(t *testing.T) {
	n := FromStrings([]string{"result.rows", "."}, DefaultRecordPaths)
	list, path, err := n.Extract(decode(t, `{"result":{"rows":[1,2]},"data":[3]}`))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if path != "result.rows" || len(list) != 2 {
		t.Errorf("got path %q len %d", path, len(list))
	}

	def := FromStrings(nil, DefaultLogPaths)
	if len(def.Paths()) != len(DefaultLogPaths) {
		t.Errorf("expected default log paths, got %v", def.Paths())
	}
}

func TestPathSegments(t *testing.T) {
	tests := map[Path]int{
		SelfPath:    0,
		"":          0,
		"data":      1,
		"data.list": 2,
		".data.":    1,
	}
	for p, want := range tests {
		if got := len(p.Segments()); got != want {
			t.Errorf("Path(%q).Segments() len = %d, want %d", p, got, want)
		}
	}
}

func TestEnvelopeAndObject(t *testing.T) {
	payload := decode(t, `{"success":true,"message":"","data":{"username":"bob"}}`)

	success, present, _ := Envelope(payload)
	if !success || !present {
		t.Errorf("Envelope() = %v, %v", success, present)
	}

	obj, ok := Object(payload, "data")
	if !ok || obj["username"] != "bob" {
		t.Errorf("Object() = %v, %v", obj, ok)
	}

	if _, present, _ := Envelope(decode(t, `[1]`)); present {
		t.Error("list payload should have no envelope")
	}
}
