package providers

import (
	"fmt"
	"sync"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
)

// Registry maps provider ids to transports.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register registers a provider
func (r *Registry) Register(provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.providers[name] = provider
	return nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}

	return provider, nil
}

// List returns all registered provider names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// NewRegistryFromConfig builds a registry with one transport per configured
// provider. Unknown provider names are rejected so a typo in the config fails
// at startup instead of at first use.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	registry := NewRegistry()

	for i := range cfg.Providers {
		pc := &cfg.Providers[i]

		var (
			provider Provider
			err      error
		)
		switch pc.Name {
		case config.ProviderOpenAI:
			provider, err = NewOpenAIProvider(pc)
		case config.ProviderAnthropic:
			provider, err = NewAnthropicProvider(pc)
		case config.ProviderGemini:
			provider, err = NewGeminiProvider(pc)
		case config.ProviderPerplexity:
			provider, err = NewPerplexityProvider(pc)
		default:
			return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
				fmt.Sprintf("unsupported provider: %s", pc.Name), nil)
		}
		if err != nil {
			return nil, err
		}

		if err := registry.Register(provider); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to register provider", err)
		}
	}

	return registry, nil
}
