package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded from YAML with
// environment variable expansion.
type Config struct {
	Port int `yaml:"port"`

	Auth struct {
		// AccessSecret signs and verifies bearer tokens (HS256).
		AccessSecret string `yaml:"accessSecret"`
		// Issuer, when set, must match the token's iss claim.
		Issuer string `yaml:"issuer"`
	} `yaml:"auth"`

	Database struct {
		SQLitePath string `yaml:"sqlitePath"`
	} `yaml:"database"`

	Model struct {
		// Provider selects the completion backend: "openai" or "anthropic".
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"apiKey"`
		// Name is the model identifier, e.g. "gpt-4o-mini".
		Name string `yaml:"name"`
		// BaseURL overrides the API endpoint. Used for OpenAI-compatible
		// backends such as Gemini's compatibility endpoint.
		BaseURL string `yaml:"baseUrl"`
		// MaxIterations bounds the orchestrator's tool-call loop.
		MaxIterations int `yaml:"maxIterations"`
		// MaxRetries bounds retries of a single completion call.
		MaxRetries int `yaml:"maxRetries"`
	} `yaml:"model"`

	Recurring struct {
		Enabled bool `yaml:"enabled"`
		// Spec is a cron expression for the recurring-task sweep.
		Spec string `yaml:"spec"`
	} `yaml:"recurring"`

	// RequestTimeoutSeconds bounds one chat request end to end.
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds"`
}

// Load reads a YAML config file, expanding ${VAR} references from the
// environment before parsing.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes with environment
// variable expansion.
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	return c, c.validate()
}

// Default returns a config with defaults applied, for tests and for
// running without a config file.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "./data/taskchat.db"
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.MaxIterations <= 0 {
		c.Model.MaxIterations = 5
	}
	if c.Model.MaxRetries < 0 {
		c.Model.MaxRetries = 0
	} else if c.Model.MaxRetries == 0 {
		c.Model.MaxRetries = 2
	}
	if c.Recurring.Spec == "" {
		c.Recurring.Spec = "@every 5m"
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 60
	}
}

// RequestTimeout returns the per-request deadline.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	return nil
}
