// Package advisory turns usage statistics into a short narrative using a
// chat-completion model.
package advisory

import (
	"context"
	"net/http"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
)

// ChatCompleter sends one prompt and returns the model's reply.
type ChatCompleter interface {
	CompleteChat(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// NewCompleter builds the completer for p.Kind.
func NewCompleter(p config.Provider, httpClient *http.Client) (ChatCompleter, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	switch p.Kind {
	case config.ProviderKindOpenAI, "":
		return NewHTTPCompleter(p, httpClient), nil
	case config.ProviderKindLangChain:
		return NewLangChainCompleter(p, httpClient)
	default:
		return nil, apperr.New(apperr.CodeLLMNotConfigured, "unknown provider kind "+p.Kind)
	}
}

func callError(err error, message string) error {
	return apperr.Wrap(err, apperr.CodeLLMCall, message)
}
