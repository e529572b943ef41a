package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/logger"
	"github.com/j-veylop/newapi-usage-tui/internal/mask"
)

const systemPrompt = "You are an operations assistant for an API gateway. " +
	"Summarize usage, call out anomalies and suggest concrete next steps. Be brief."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPCompleter calls an OpenAI-compatible /chat/completions endpoint.
type HTTPCompleter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewHTTPCompleter creates a completer for p.
func NewHTTPCompleter(p config.Provider, httpClient *http.Client) *HTTPCompleter {
	return &HTTPCompleter{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(p.BaseURL, "/"),
		apiKey:     p.APIKey,
		model:      p.Model,
	}
}

// CompleteChat sends a single request bounded by timeout.
func (c *HTTPCompleter) CompleteChat(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", callError(err, "failed to marshal request")
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", callError(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	logger.Debug("advisory request", "endpoint", endpoint, "model", c.model, "api_key", mask.Secret(c.apiKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", callError(err, "chat completion timed out")
		}
		return "", callError(err, "failed to send request")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", callError(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", callError(
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(mask.Line(string(body)), 200)),
			"chat completion failed",
		)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", callError(err, "malformed chat completion response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", callError(errors.New(mask.Line(parsed.Error.Message)), "chat completion failed")
	}
	if len(parsed.Choices) == 0 {
		return "", callError(errors.New("no choices"), "malformed chat completion response")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", callError(errors.New("empty content"), "malformed chat completion response")
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
