// services/factory.go
package services

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/brandpulse/brandpulse/internal/config"
)

// NewProvider builds the AIProvider for one configured provider/model pair.
// The API key comes from the environment via config; a missing key is a
// configuration error surfaced before any network call.
func NewProvider(cfg *config.Config, provider, model string, costService CostService, log zerolog.Logger) (AIProvider, error) {
	provider = strings.ToLower(provider)
	apiKey := cfg.Keys.KeyFor(provider)
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", provider)
	}

	switch provider {
	case "openai":
		return NewOpenAIProvider(apiKey, model, costService, log), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, model, costService, log), nil
	case "mistral":
		return NewMistralProvider(apiKey, model, costService, log), nil
	case "grok":
		return NewGrokProvider(apiKey, model, costService, log), nil
	case "perplexity":
		return NewPerplexityProvider(apiKey, model, costService, log), nil
	case "google":
		return NewGeminiProvider(apiKey, model, costService, log), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// BuildProviders constructs every provider named in the config, failing fast
// on the first unusable entry.
func BuildProviders(cfg *config.Config, costService CostService, log zerolog.Logger) ([]AIProvider, error) {
	providers := make([]AIProvider, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		p, err := NewProvider(cfg, m.Provider, m.Name, costService, log)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %s/%s: %w", m.Provider, m.Name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
