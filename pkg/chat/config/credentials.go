package config

import "strings"

// Known provider identifiers. Unknown ids are never considered configured.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderPerplexity = "perplexity"
)

// KnownProviders lists every provider id the process can route to.
var KnownProviders = []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderPerplexity}

// Credentials answers "does this provider have usable credentials". It is
// computed once from the loaded configuration and read-only afterwards; there
// is no hot-reload.
type Credentials struct {
	configured map[string]bool
}

// NewCredentials computes the credential table from the configuration.
func NewCredentials(cfg *Config) *Credentials {
	known := make(map[string]bool, len(KnownProviders))
	for _, name := range KnownProviders {
		known[name] = true
	}

	configured := make(map[string]bool)
	for _, p := range cfg.Providers {
		if known[p.Name] && usableKey(p.APIKey) {
			configured[p.Name] = true
		}
	}
	return &Credentials{configured: configured}
}

// IsConfigured reports whether the provider has non-empty, non-placeholder
// credentials. Unknown provider ids return false; this never fails.
func (c *Credentials) IsConfigured(providerID string) bool {
	return c.configured[providerID]
}

// Configured returns the ids of all configured providers.
func (c *Credentials) Configured() []string {
	names := make([]string, 0, len(c.configured))
	for name := range c.configured {
		names = append(names, name)
	}
	return names
}

// Placeholder values that ship in example configs and env templates. A key
// matching one of these is treated the same as no key at all.
var placeholderKeys = []string{
	"placeholder",
	"changeme",
	"change-me",
	"your-api-key",
	"todo",
}

// Prefixes that mark a key as a fill-me-in template value ("xxxxxxxx",
// "your-key-here").
var placeholderPrefixes = []string{
	"your-",
	"your_",
	"xxx",
}

func usableKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	lower := strings.ToLower(key)
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	for _, p := range placeholderKeys {
		if lower == p || strings.Contains(lower, "placeholder") {
			return false
		}
	}
	return true
}
