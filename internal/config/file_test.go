package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
)

const sampleYAML = `
current_provider: main
providers:
  - id: main
    kind: OpenAI
    base_url: https://llm.example.com/v1/
    api_key: ${TEST_LLM_KEY}
    model: gpt-4o-mini
  - id: chain
    kind: langchain
    base_url: https://other.example.com/v1
    api_key: key-2
    model: qwen
  - id: broken
    base_url: https://broken.example.com
probe_paths:
  records: [result.rows, data]
  logs: [data.items]
`

func TestParseFile(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")

	f, err := ParseFile([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if f.CurrentProvider != "main" || len(f.Providers) != 3 {
		t.Fatalf("unexpected file: %+v", f)
	}

	main, ok := f.Lookup("main")
	if !ok {
		t.Fatal("Lookup(main) failed")
	}
	if main.Kind != ProviderKindOpenAI {
		t.Errorf("Kind = %q, want lowercased openai", main.Kind)
	}
	if main.BaseURL != "https://llm.example.com/v1" {
		t.Errorf("BaseURL = %q", main.BaseURL)
	}
	if main.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want env expansion", main.APIKey)
	}

	broken, _ := f.Lookup("broken")
	if broken.Kind != ProviderKindOpenAI {
		t.Errorf("default kind = %q", broken.Kind)
	}

	if len(f.ProbePaths.Records) != 2 || f.ProbePaths.Logs[0] != "data.items" {
		t.Errorf("ProbePaths = %+v", f.ProbePaths)
	}
}

func TestParseFileInvalid(t *testing.T) {
	_, err := ParseFile([]byte("providers: [unterminated"))
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Errorf("ParseFile() error = %v, want invalid config", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(f.Providers) != 0 {
		t.Errorf("expected empty file, got %+v", f)
	}
}

func TestLLMProvider(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")
	file, err := ParseFile([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	tests := []struct {
		cfg    Config
		name   string
		wantID string
	}{
		{
			name: "Disabled",
			cfg:  Config{LLMEnabled: false, LLMBaseURL: "x", LLMAPIKey: "y", LLMModel: "z", LLMKind: "openai"},
		},
		{
			name:   "Env",
			cfg:    Config{LLMEnabled: true, LLMBaseURL: "https://a", LLMAPIKey: "k", LLMModel: "m", LLMKind: "openai"},
			wantID: "env",
		},
		{
			name: "EnvMissingKey",
			cfg:  Config{LLMEnabled: true, LLMBaseURL: "https://a", LLMModel: "m", LLMKind: "openai"},
		},
		{
			name:   "CurrentProvider",
			cfg:    Config{LLMEnabled: true, LLMUseCurrentProvider: true, File: file},
			wantID: "main",
		},
		{
			name:   "ProviderID",
			cfg:    Config{LLMEnabled: true, LLMProviderID: "chain", File: file},
			wantID: "chain",
		},
		{
			name: "UnknownProviderID",
			cfg:  Config{LLMEnabled: true, LLMProviderID: "ghost", File: file},
		},
		{
			name: "IncompleteProvider",
			cfg:  Config{LLMEnabled: true, LLMProviderID: "broken", File: file},
		},
		{
			name: "CurrentWithoutFile",
			cfg:  Config{LLMEnabled: true, LLMUseCurrentProvider: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.cfg.LLMProvider()
			if tt.wantID == "" {
				if !errors.Is(err, apperr.ErrLLMNotConfigured) {
					t.Errorf("LLMProvider() error = %v, want not configured", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LLMProvider() error = %v", err)
			}
			if p.ID != tt.wantID {
				t.Errorf("provider = %q, want %q", p.ID, tt.wantID)
			}
		})
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nau.yaml")

	changes := make(chan *File, 4)
	w, err := Watch(path, func(f *File) { changes <- f }, nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close()

	content := "current_provider: later\nproviders:\n  - id: later\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case f := <-changes:
		if f.CurrentProvider != "later" {
			t.Errorf("reloaded CurrentProvider = %q", f.CurrentProvider)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
