package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/models"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "test-model",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "  All good.  "}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func provider(baseURL, kind string) config.Provider {
	return config.Provider{ID: "test", Kind: kind, BaseURL: baseURL, APIKey: "sk-test-key-123", Model: "test-model"}
}

func TestHTTPCompleter(t *testing.T) {
	tests := []struct {
		handler http.HandlerFunc
		name    string
		want    string
		wantErr bool
	}{
		{
			name: "Success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(completionBody))
			},
			want: "All good.",
		},
		{
			name: "ServerError",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down"))
			},
			wantErr: true,
		},
		{
			name: "Malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			wantErr: true,
		},
		{
			name: "NoChoices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			wantErr: true,
		},
		{
			name: "ErrorObject",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, tt.handler)
			c := NewHTTPCompleter(provider(server.URL+"/", config.ProviderKindOpenAI), server.Client())

			got, err := c.CompleteChat(context.Background(), "hello", time.Second)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrLLMCall) {
					t.Errorf("CompleteChat() error = %v, want LLM call error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CompleteChat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CompleteChat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPCompleterRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody chatRequest
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(completionBody))
	})

	c := NewHTTPCompleter(provider(server.URL+"/v1", config.ProviderKindOpenAI), server.Client())
	if _, err := c.CompleteChat(context.Background(), "the prompt", time.Second); err != nil {
		t.Fatalf("CompleteChat() error = %v", err)
	}

	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test-key-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "test-model" || len(gotBody.Messages) != 2 || gotBody.Messages[1].Content != "the prompt" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestHTTPCompleterTimeout(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	c := NewHTTPCompleter(provider(server.URL, config.ProviderKindOpenAI), server.Client())
	_, err := c.CompleteChat(context.Background(), "hello", 50*time.Millisecond)
	if !errors.Is(err, apperr.ErrLLMCall) {
		t.Errorf("CompleteChat() error = %v, want LLM call error", err)
	}
}

func TestLangChainCompleter(t *testing.T) {
	var gotPath string
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	})

	c, err := NewCompleter(provider(server.URL, config.ProviderKindLangChain), server.Client())
	if err != nil {
		t.Fatalf("NewCompleter() error = %v", err)
	}
	if _, ok := c.(*LangChainCompleter); !ok {
		t.Fatalf("NewCompleter() = %T, want *LangChainCompleter", c)
	}

	got, err := c.CompleteChat(context.Background(), "hello", 5*time.Second)
	if err != nil {
		t.Fatalf("CompleteChat() error = %v", err)
	}
	if got != "All good." {
		t.Errorf("CompleteChat() = %q", got)
	}
	if !strings.HasSuffix(gotPath, "/chat/completions") {
		t.Errorf("path = %q", gotPath)
	}
}

func TestNewCompleterUnknownKind(t *testing.T) {
	_, err := NewCompleter(provider("https://x", "magic"), nil)
	if !errors.Is(err, apperr.ErrLLMNotConfigured) {
		t.Errorf("NewCompleter() error = %v", err)
	}
}

type fakeCompleter struct {
	err    error
	prompt string
	reply  string
}

func (f *fakeCompleter) CompleteChat(_ context.Context, prompt string, _ time.Duration) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestGeneratorNotConfigured(t *testing.T) {
	g := New(&config.Config{LLMEnabled: false, LLMTimeout: time.Second}, nil)
	if g.Configured() {
		t.Fatal("generator should not be configured")
	}

	if NotConfiguredText != "LLM advisory is not configured." {
		t.Errorf("NotConfiguredText = %q", NotConfiguredText)
	}

	text, err := g.Generate(context.Background(), Input{})
	if text != NotConfiguredText {
		t.Errorf("text = %q", text)
	}
	if !errors.Is(err, apperr.ErrLLMNotConfigured) {
		t.Errorf("error = %v", err)
	}
	if Render(text, err) != NotConfiguredText {
		t.Errorf("Render() = %q", Render(text, err))
	}

	var nilGen *Generator
	if text, _ := nilGen.Generate(context.Background(), Input{}); text != NotConfiguredText {
		t.Errorf("nil generator text = %q", text)
	}
}

func TestGeneratorFromConfig(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody))
	})
	cfg := &config.Config{
		LLMEnabled: true,
		LLMKind:    config.ProviderKindOpenAI,
		LLMBaseURL: server.URL,
		LLMAPIKey:  "k",
		LLMModel:   "m",
		LLMTimeout: time.Second,
	}

	g := New(cfg, server.Client())
	if !g.Configured() {
		t.Fatal("generator should be configured")
	}
	text, err := g.Generate(context.Background(), Input{})
	if err != nil || text != "All good." {
		t.Errorf("Generate() = %q, %v", text, err)
	}
}

func TestGeneratorCallError(t *testing.T) {
	g := NewWithCompleter(&fakeCompleter{err: errors.New("boom")}, time.Second)

	text, err := g.Generate(context.Background(), Input{})
	if text != "" || !errors.Is(err, apperr.ErrLLMCall) {
		t.Fatalf("Generate() = %q, %v", text, err)
	}

	rendered := Render(text, err)
	if !strings.HasPrefix(rendered, "Advisory unavailable") || !strings.Contains(rendered, "LLM_BASE_URL") {
		t.Errorf("Render() = %q", rendered)
	}
}

func TestBuildPrompt(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	g := NewWithCompleter(fake, time.Second)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{
		Stats: &models.StatsReport{
			WindowStart:   start,
			WindowEnd:     start.Add(time.Hour),
			TotalTokens:   1200,
			TotalRequests: 12,
			AvgRPM:        0.2,
			AvgTPM:        20,
			Ranking:       []models.ModelRank{{ModelName: "gpt-4o", Count: 12, Tokens: 1200}},
		},
		Anomalies: &models.AnomalyReport{
			ErrorCount:      1,
			Scanned:         12,
			SlowThresholdMs: 10000,
			ErrorSamples: []models.Observation{{
				CreatedAt: start.Unix(),
				Model:     "gpt-4o",
				Status:    "error",
				IP:        "203.0.113.7",
				Detail:    "Authorization: Bearer sk-abcdefghijklmnop failed",
			}},
		},
		Fallback: true,
	}

	if _, err := g.Generate(context.Background(), in); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, want := range []string{"Total tokens: 1200", "1. gpt-4o: 12 requests", "Failed calls: 1 of 12", "203.0.x.x", "last saved snapshot"} {
		if !strings.Contains(fake.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, fake.prompt)
		}
	}
	for _, leak := range []string{"203.0.113.7", "sk-abcdefghijklmnop"} {
		if strings.Contains(fake.prompt, leak) {
			t.Errorf("prompt leaks %q", leak)
		}
	}
}
