package llm

import (
	"context"
	"fmt"

	"github.com/apexcrm/apex/config"
)

// Provider is the single completion capability consumed by the planner,
// verifier, reasoning tool and summarizer. Implementations must honour the
// context deadline and return an error (never a sentinel string) on failure.
type Provider interface {
	// Generate produces a completion for prompt using the named model alias.
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GetAvailableModels returns the configured model aliases.
	GetAvailableModels() []string
}

// NewProvider creates an LLM provider from configuration. It returns
// ErrNotConfigured when no provider is configured, which callers treat as
// permanent fallback mode rather than a startup failure.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, ErrNotConfigured
	}
	for _, provider := range cfg.Providers {
		switch provider.Type {
		case "openai":
			if provider.APIKey == "" {
				return nil, ErrNotConfigured
			}
			return NewOpenAIProvider(provider), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", provider.Type)
		}
	}
	return nil, ErrNotConfigured
}
