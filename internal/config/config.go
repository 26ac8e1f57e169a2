package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig selects the external model provider used by the chat bridge.
type ProviderConfig struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Config contains runtime configuration for taskbridge.
type Config struct {
	ServerName   string         `yaml:"server_name"`
	LogLevel     string         `yaml:"log_level"`
	MongoURI     string         `yaml:"mongo_uri"`
	DatabaseName string         `yaml:"database_name"`
	DefaultLimit int            `yaml:"default_limit"`
	HTTPAddr     string         `yaml:"http_addr"`
	Provider     ProviderConfig `yaml:"provider"`
}

// Default returns a Config populated with safe defaults.
func Default() Config {
	return Config{
		ServerName:   "taskbridge",
		LogLevel:     "info",
		MongoURI:     "mongodb://localhost:27017",
		DatabaseName: "task_management",
		DefaultLimit: 100,
		HTTPAddr:     ":8080",
		Provider: ProviderConfig{
			Backend: "openai",
			Model:   "gpt-4o-mini",
		},
	}
}

// Load loads config from disk; if path does not exist, default config is
// returned. A .env file next to the working directory is applied first so
// API keys and the Mongo URI can live outside the yaml file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv lets environment variables override file values for secrets and
// connection strings.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("MONGODB_URI")); v != "" {
		c.MongoURI = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKBRIDGE_DB_NAME")); v != "" {
		c.DatabaseName = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKBRIDGE_HTTP_ADDR")); v != "" {
		c.HTTPAddr = v
	}
}

// ProviderAPIKey returns the API key for the configured backend.
func (c *Config) ProviderAPIKey() string {
	switch c.Provider.Backend {
	case "groq":
		return strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	default:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
}

// Validate checks configuration sanity.
func (c *Config) Validate() error {
	if c.ServerName == "" {
		return errors.New("server_name must not be empty")
	}
	if c.MongoURI == "" {
		return errors.New("mongo_uri must not be empty")
	}
	if c.DatabaseName == "" {
		return errors.New("database_name must not be empty")
	}
	if c.DefaultLimit <= 0 || c.DefaultLimit > 100 {
		return errors.New("default_limit must be in (0, 100]")
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr must not be empty")
	}
	switch c.Provider.Backend {
	case "openai", "groq":
	default:
		return fmt.Errorf("unsupported provider backend %q", c.Provider.Backend)
	}
	return nil
}
