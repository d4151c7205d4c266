package providers

import (
	"github.com/hirebot-dev/hirebot/pkg/chat/config"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// NewPerplexityProvider creates the Perplexity transport. Perplexity exposes
// an OpenAI-compatible chat completions API without tool calling.
func NewPerplexityProvider(cfg *config.ProviderConfig) (Provider, error) {
	if cfg != nil && cfg.BaseURL == "" {
		clone := *cfg
		clone.BaseURL = perplexityBaseURL
		cfg = &clone
	}
	return newOpenAICompat(config.ProviderPerplexity, cfg, false, []string{
		"sonar",
		"sonar-pro",
		"sonar-reasoning",
	})
}
