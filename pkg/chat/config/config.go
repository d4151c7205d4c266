// Package config loads and validates the hirebot configuration: server
// address, database backend, provider transports and registered tools.
// Configuration is read once at startup and treated as read-only afterwards.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	apperrors "github.com/hirebot-dev/hirebot/pkg/chat/errors"
)

// Config represents the full process configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Providers []ProviderConfig `mapstructure:"providers"`
	Tools     []ToolConfig     `mapstructure:"tools"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig caps API requests per user. PerSecond is the refill rate,
// Burst the bucket size; PerSecond <= 0 disables limiting.
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// DatabaseConfig selects the persistent store backend.
// Driver is one of "sqlite", "postgres" or "memory".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ProviderConfig holds one provider transport configuration.
// APIKeyEnv, when set, is resolved from the environment at load time.
type ProviderConfig struct {
	Name        string   `mapstructure:"name"`
	Model       string   `mapstructure:"model"`
	APIKey      string   `mapstructure:"api_key"`
	APIKeyEnv   string   `mapstructure:"api_key_env"`
	BaseURL     string   `mapstructure:"base_url"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature *float64 `mapstructure:"temperature"`
	TopP        *float64 `mapstructure:"top_p"`
}

// ToolConfig describes an HTTP tool handler to register at startup.
// Builtin handlers are registered unconditionally and need no config entry.
type ToolConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Endpoint    string `mapstructure:"endpoint"`
	AuthToken   string `mapstructure:"auth_token"`
}

// Load reads configuration from the given YAML file, applies HIREBOT_-prefixed
// environment overrides, resolves provider API keys and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HIREBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to read config file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "failed to parse config", err)
	}

	// Resolve API keys from environment variables
	for i := range cfg.Providers {
		if cfg.Providers[i].APIKeyEnv != "" {
			cfg.Providers[i].APIKey = os.Getenv(cfg.Providers[i].APIKeyEnv)
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.RateLimit.PerSecond == 0 {
		c.Server.RateLimit.PerSecond = 5
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "hirebot.db"
	}
	for i := range c.Providers {
		if c.Providers[i].MaxTokens == 0 {
			c.Providers[i].MaxTokens = 4096
		}
	}
}

// Validate validates the configuration, collecting every problem rather than
// stopping at the first.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.RateLimit.PerSecond > 0 && c.Server.RateLimit.Burst < 1 {
		result = multierror.Append(result, fmt.Errorf("server.rate_limit.burst must be at least 1"))
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "memory":
	default:
		result = multierror.Append(result, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		result = multierror.Append(result, fmt.Errorf("database.dsn is required for postgres"))
	}

	seen := make(map[string]bool)
	for _, p := range c.Providers {
		if p.Name == "" {
			result = multierror.Append(result, fmt.Errorf("provider name is required"))
			continue
		}
		if seen[p.Name] {
			result = multierror.Append(result, fmt.Errorf("provider %q configured twice", p.Name))
		}
		seen[p.Name] = true
		if p.Model == "" {
			result = multierror.Append(result, fmt.Errorf("provider %q: model is required", p.Name))
		}
	}

	for _, tool := range c.Tools {
		if tool.Name == "" {
			result = multierror.Append(result, fmt.Errorf("tool name is required"))
		}
		if tool.Endpoint == "" {
			result = multierror.Append(result, fmt.Errorf("tool %q: endpoint is required", tool.Name))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, "invalid configuration", err)
	}
	return nil
}

// Provider returns the configuration for the named provider, or nil.
func (c *Config) Provider(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}
