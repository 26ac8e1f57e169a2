package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() config fails validation: %v", err)
	}
	if cfg.ServerName != "taskbridge" {
		t.Errorf("ServerName = %q", cfg.ServerName)
	}
	if cfg.DatabaseName != "task_management" {
		t.Errorf("DatabaseName = %q", cfg.DatabaseName)
	}
	if cfg.DefaultLimit != 100 {
		t.Errorf("DefaultLimit = %d", cfg.DefaultLimit)
	}
	if cfg.Provider.Backend != "openai" {
		t.Errorf("Provider.Backend = %q", cfg.Provider.Backend)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MongoURI != Default().MongoURI {
		t.Errorf("MongoURI = %q, want default", cfg.MongoURI)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskbridge.yaml")
	body := []byte("server_name: staging-bridge\n" +
		"log_level: debug\n" +
		"default_limit: 25\n" +
		"provider:\n" +
		"  backend: groq\n" +
		"  model: llama-3.3-70b-versatile\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerName != "staging-bridge" {
		t.Errorf("ServerName = %q", cfg.ServerName)
	}
	if cfg.DefaultLimit != 25 {
		t.Errorf("DefaultLimit = %d", cfg.DefaultLimit)
	}
	if cfg.Provider.Backend != "groq" || cfg.Provider.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Provider = %+v", cfg.Provider)
	}
	// Fields the file omits keep their defaults.
	if cfg.MongoURI != Default().MongoURI {
		t.Errorf("MongoURI = %q, want default", cfg.MongoURI)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskbridge.yaml")
	if err := os.WriteFile(path, []byte("mongo_uri: mongodb://file-host:27017\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MONGODB_URI", "mongodb://env-host:27017")
	t.Setenv("TASKBRIDGE_DB_NAME", "task_management_test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MongoURI != "mongodb://env-host:27017" {
		t.Errorf("MongoURI = %q, want env value", cfg.MongoURI)
	}
	if cfg.DatabaseName != "task_management_test" {
		t.Errorf("DatabaseName = %q, want env value", cfg.DatabaseName)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskbridge.yaml")
	if err := os.WriteFile(path, []byte("server_name: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"empty server name", func(c *Config) { c.ServerName = "" }, true},
		{"empty mongo uri", func(c *Config) { c.MongoURI = "" }, true},
		{"empty database name", func(c *Config) { c.DatabaseName = "" }, true},
		{"zero limit", func(c *Config) { c.DefaultLimit = 0 }, true},
		{"limit above cap", func(c *Config) { c.DefaultLimit = 500 }, true},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, true},
		{"unknown backend", func(c *Config) { c.Provider.Backend = "ollama" }, true},
		{"groq backend", func(c *Config) { c.Provider.Backend = "groq" }, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GROQ_API_KEY", "gsk-groq")

	cfg := Default()
	if got := cfg.ProviderAPIKey(); got != "sk-openai" {
		t.Errorf("ProviderAPIKey() = %q, want openai key", got)
	}
	cfg.Provider.Backend = "groq"
	if got := cfg.ProviderAPIKey(); got != "gsk-groq" {
		t.Errorf("ProviderAPIKey() = %q, want groq key", got)
	}
}
