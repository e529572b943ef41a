package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
)

// Provider kinds.
const (
	ProviderKindOpenAI    = "openai"
	ProviderKindLangChain = "langchain"
)

// File is the optional YAML configuration file.
//
//	current_provider: main
//	providers:
//	  - id: main
//	    kind: openai
//	    base_url: https://api.openai.com/v1
//	    api_key: ${OPENAI_API_KEY}
//	    model: gpt-4o-mini
//	probe_paths:
//	  records: [data, data.data, data.list, list, "."]
//	  logs: [data.items, items, "."]
type File struct {
	CurrentProvider string     `yaml:"current_provider"`
	Providers       []Provider `yaml:"providers"`
	ProbePaths      ProbePaths `yaml:"probe_paths"`
}

// Provider is one chat-completion endpoint.
type Provider struct {
	ID      string `yaml:"id"`
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// ProbePaths overrides the normalizer's probe order per endpoint.
type ProbePaths struct {
	Records []string `yaml:"records"`
	Logs    []string `yaml:"logs"`
}

// LoadFile reads the YAML file at path. A missing file yields an empty File.
// Values may reference environment variables as ${NAME}.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{}, nil
		}
		return nil, apperr.Wrap(err, apperr.CodeInvalidConfig, "failed to read config file")
	}

	return ParseFile(data)
}

// ParseFile decodes YAML config content.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInvalidConfig, "failed to parse config file")
	}

	for i := range f.Providers {
		p := &f.Providers[i]
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		if p.Kind == "" {
			p.Kind = ProviderKindOpenAI
		}
		p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	}

	return &f, nil
}

// Lookup returns the provider with the given id.
func (f *File) Lookup(id string) (Provider, bool) {
	if f == nil || id == "" {
		return Provider{}, false
	}
	for _, p := range f.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// LLMProvider resolves the provider the advisory should use. Resolution order:
// the file's current provider when LLM_USE_CURRENT_PROVIDER is set, then
// LLM_PROVIDER_ID, then the LLM_BASE_URL/LLM_API_KEY/LLM_MODEL values.
// The returned error wraps apperr.ErrLLMNotConfigured.
func (c *Config) LLMProvider() (Provider, error) {
	if !c.LLMEnabled {
		return Provider{}, notConfigured("LLM_ENABLED is false")
	}

	var p Provider
	switch {
	case c.LLMUseCurrentProvider:
		if c.File == nil || c.File.CurrentProvider == "" {
			return Provider{}, notConfigured("no current_provider in config file")
		}
		found, ok := c.File.Lookup(c.File.CurrentProvider)
		if !ok {
			return Provider{}, notConfigured(fmt.Sprintf("current provider %q not found", c.File.CurrentProvider))
		}
		p = found

	case c.LLMProviderID != "":
		found, ok := c.File.Lookup(c.LLMProviderID)
		if !ok {
			return Provider{}, notConfigured(fmt.Sprintf("provider %q not found", c.LLMProviderID))
		}
		p = found

	default:
		p = Provider{
			ID:      "env",
			Kind:    c.LLMKind,
			BaseURL: c.LLMBaseURL,
			APIKey:  c.LLMAPIKey,
			Model:   c.LLMModel,
		}
	}

	var missing []string
	if p.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if p.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if p.Model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return Provider{}, notConfigured(fmt.Sprintf("provider %q is missing %s", p.ID, strings.Join(missing, ", ")))
	}
	if p.Kind != ProviderKindOpenAI && p.Kind != ProviderKindLangChain {
		return Provider{}, notConfigured(fmt.Sprintf("provider %q has unknown kind %q", p.ID, p.Kind))
	}

	return p, nil
}

func notConfigured(reason string) error {
	return apperr.Wrap(errors.New(reason), apperr.CodeLLMNotConfigured, "LLM advisory is not configured")
}
