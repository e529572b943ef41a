package advisory

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
	"github.com/j-veylop/newapi-usage-tui/internal/config"
	"github.com/j-veylop/newapi-usage-tui/internal/logger"
)

// NotConfiguredText is returned when no model is available.
const NotConfiguredText = "LLM advisory is not configured."

// NotConfiguredHint tells the operator how to enable the advisory.
const NotConfiguredHint = "Set LLM_ENABLED=true with LLM_BASE_URL, LLM_API_KEY and LLM_MODEL, or select a provider in the config file."

// Generator produces advisory text. A Generator without a completer always
// answers with the not-configured sentinel.
type Generator struct {
	completer ChatCompleter
	reason    error
	provider  string
	timeout   time.Duration
}

// New resolves the provider from cfg. Resolution failures are kept as the
// not-configured reason instead of being returned.
func New(cfg *config.Config, httpClient *http.Client) *Generator {
	g := &Generator{timeout: cfg.LLMTimeout}

	p, err := cfg.LLMProvider()
	if err != nil {
		g.reason = err
		return g
	}

	completer, err := NewCompleter(p, httpClient)
	if err != nil {
		g.reason = err
		return g
	}

	g.completer = completer
	g.provider = p.ID
	return g
}

// NewWithCompleter creates a Generator around an existing completer.
func NewWithCompleter(c ChatCompleter, timeout time.Duration) *Generator {
	if c == nil {
		return &Generator{reason: apperr.ErrLLMNotConfigured, timeout: timeout}
	}
	return &Generator{completer: c, timeout: timeout, provider: "custom"}
}

// Configured reports whether a completer is available.
func (g *Generator) Configured() bool {
	return g != nil && g.completer != nil
}

// Provider returns the selected provider id.
func (g *Generator) Provider() string {
	if g == nil {
		return ""
	}
	return g.provider
}

// Generate returns the narrative for in. When not configured it returns
// NotConfiguredText with an error matching apperr.ErrLLMNotConfigured.
// Call failures match apperr.ErrLLMCall.
func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	if !g.Configured() {
		var reason error = apperr.ErrLLMNotConfigured
		if g != nil && g.reason != nil {
			reason = g.reason
		}
		return NotConfiguredText, reason
	}

	prompt := BuildPrompt(in)
	start := time.Now()
	text, err := g.completer.CompleteChat(ctx, prompt, g.timeout)
	if err != nil {
		logger.Warn("advisory generation failed", "provider", g.provider, "error", err)
		if !errors.Is(err, apperr.ErrLLMCall) {
			err = callError(err, "chat completion failed")
		}
		return "", err
	}

	logger.Debug("advisory generated", "provider", g.provider, "duration", time.Since(start), "chars", len(text))
	return text, nil
}

// Render converts a Generate result into user-facing text. It never fails.
func Render(text string, err error) string {
	switch {
	case err == nil:
		return text
	case errors.Is(err, apperr.ErrLLMNotConfigured):
		return NotConfiguredText
	default:
		return "Advisory unavailable: " + err.Error() + "\nHint: " + apperr.Hint(err)
	}
}
