package advisory

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
)

// LangChainCompleter routes the prompt through a langchaingo model.
type LangChainCompleter struct {
	model llms.Model
}

// NewLangChainCompleter creates a langchaingo OpenAI-compatible client for p.
func NewLangChainCompleter(p config.Provider, httpClient *http.Client) (*LangChainCompleter, error) {
	llm, err := openai.New(
		openai.WithToken(p.APIKey),
		openai.WithBaseURL(strings.TrimRight(p.BaseURL, "/")),
		openai.WithModel(p.Model),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeLLMNotConfigured, "failed to create langchain client")
	}
	return &LangChainCompleter{model: llm}, nil
}

// NewLangChainCompleterWithModel wraps an existing model.
func NewLangChainCompleterWithModel(model llms.Model) *LangChainCompleter {
	return &LangChainCompleter{model: model}
}

// CompleteChat sends a single prompt bounded by timeout.
func (c *LangChainCompleter) CompleteChat(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, systemPrompt+"\n\n"+prompt,
		llms.WithTemperature(0.3),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", callError(err, "chat completion timed out")
		}
		return "", callError(err, "chat completion failed")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", callError(errors.New("empty content"), "malformed chat completion response")
	}
	return text, nil
}
