package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Chat(ctx context.Context, request Request) (*Response, error) {
	return &Response{Content: "ok"}, nil
}

func (f *fakeProvider) ChatStream(ctx context.Context, request Request) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk)
	errs := make(chan error, 1)
	close(chunks)
	close(errs)
	return chunks, errs
}

func (f *fakeProvider) Name() string             { return f.name }
func (f *fakeProvider) SupportedModels() []string { return []string{"fake-model"} }
func (f *fakeProvider) SupportsTools() bool       { return false }

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeProvider{name: "fake"}))

	provider, err := registry.Get("fake")
	require.NoError(t, err)
	assert.Equal(t, "fake", provider.Name())
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeProvider{name: "fake"}))

	err := registry.Register(&fakeProvider{name: "fake"})
	assert.Error(t, err)
}

func TestRegistry_GetUnknown(t *testing.T) {
	registry := NewRegistry()

	provider, err := registry.Get("nope")
	assert.Error(t, err)
	assert.Nil(t, provider)
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeProvider{name: "a"}))
	require.NoError(t, registry.Register(&fakeProvider{name: "b"}))

	assert.ElementsMatch(t, []string{"a", "b"}, registry.List())
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := &config.Config{Providers: []config.ProviderConfig{
		{Name: config.ProviderOpenAI, Model: "gpt-4o", APIKey: "sk-test", MaxTokens: 1024},
		{Name: config.ProviderAnthropic, Model: "claude-3-5-sonnet-20241022", APIKey: "sk-ant", MaxTokens: 1024},
		{Name: config.ProviderPerplexity, Model: "sonar", APIKey: "pplx-test", MaxTokens: 1024},
	}}

	registry, err := NewRegistryFromConfig(cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderPerplexity},
		registry.List())
}

func TestNewRegistryFromConfig_UnknownProvider(t *testing.T) {
	cfg := &config.Config{Providers: []config.ProviderConfig{
		{Name: "cohere", Model: "command-r"},
	}}

	registry, err := NewRegistryFromConfig(cfg)
	assert.Error(t, err)
	assert.Nil(t, registry)
}

func TestPerplexityProvider_NoToolSupport(t *testing.T) {
	provider, err := NewPerplexityProvider(&config.ProviderConfig{
		Name: config.ProviderPerplexity, Model: "sonar", APIKey: "pplx-test", MaxTokens: 1024,
	})
	require.NoError(t, err)

	assert.Equal(t, config.ProviderPerplexity, provider.Name())
	assert.False(t, provider.SupportsTools())
}
