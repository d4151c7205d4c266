package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hirebot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: memory
providers:
  - name: openai
    model: gpt-4o
    api_key: sk-test-123
  - name: anthropic
    model: claude-3-5-sonnet-20241022
    api_key: sk-ant-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "memory", cfg.Database.Driver)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, 4096, cfg.Providers[0].MaxTokens)
}

func TestLoad_ResolvesAPIKeyEnv(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
	path := writeConfig(t, `
database:
  driver: memory
providers:
  - name: openai
    model: gpt-4o
    api_key_env: TEST_OPENAI_KEY
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers[0].APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "hirebot.db", cfg.Database.DSN)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "oracle"},
		Providers: []ProviderConfig{
			{Name: "openai"},
			{Name: "openai", Model: "gpt-4o"},
		},
		Tools: []ToolConfig{{Name: "lookup"}},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
	assert.Contains(t, err.Error(), "model is required")
	assert.Contains(t, err.Error(), "configured twice")
	assert.Contains(t, err.Error(), "endpoint is required")
}

func TestValidate_PostgresRequiresDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "postgres"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn")
}

func TestProvider_Lookup(t *testing.T) {
	cfg := &Config{Providers: []ProviderConfig{{Name: "gemini", Model: "gemini-2.0-flash"}}}

	assert.NotNil(t, cfg.Provider("gemini"))
	assert.Nil(t, cfg.Provider("openai"))
}
