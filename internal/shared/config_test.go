package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./musegen.db" {
			t.Errorf("expected database path ./musegen.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8000 {
			t.Errorf("expected server port 8000, got %d", config.Server.Port)
		}

		if !config.Backend.Mocked() {
			t.Errorf("expected default backend to be mocked, got url %q", config.Backend.URL)
		}

		if config.Backend.MockDelay() != 500*time.Millisecond {
			t.Errorf("expected mock delay 500ms, got %v", config.Backend.MockDelay())
		}

		if config.Samples.Workers != 3 {
			t.Errorf("expected 3 sample workers, got %d", config.Samples.Workers)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[backend]
url = "http://localhost:9000"
timeout_seconds = 5

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected server addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Backend.Mocked() {
			t.Error("expected a configured backend not to be mocked")
		}

		if config.Backend.Timeout() != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.Backend.Timeout())
		}

		if config.Samples.OutputDir != "./samples" {
			t.Errorf("expected omitted sections to keep defaults, got output_dir %q", config.Samples.OutputDir)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "negative timeout", mutate: func(c *Config) { c.Backend.TimeoutSeconds = -1 }},
			{name: "negative mock delay", mutate: func(c *Config) { c.Backend.MockDelayMS = -5 }},
			{name: "negative workers", mutate: func(c *Config) { c.Samples.Workers = -1 }},
			{name: "negative rate", mutate: func(c *Config) { c.Samples.RateLimit = -0.5 }},
			{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
			{name: "negative server rate", mutate: func(c *Config) { c.Server.RateLimit = -1 }},
			{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
