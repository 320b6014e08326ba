package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Database DatabaseConfig `toml:"database"`
	Samples  SamplesConfig  `toml:"samples"`
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
}

// BackendConfig points the client at the training backend.
//
// An empty URL selects mocked mode.
type BackendConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MockDelayMS    int    `toml:"mock_delay_ms"`
}

// Timeout returns the HTTP client timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// MockDelay returns the artificial latency used in mocked mode.
func (b BackendConfig) MockDelay() time.Duration {
	return time.Duration(b.MockDelayMS) * time.Millisecond
}

// Mocked reports whether no backend location is configured.
func (b BackendConfig) Mocked() bool {
	return b.URL == ""
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SamplesConfig controls where generated MIDI samples land and how fast they are requested.
type SamplesConfig struct {
	OutputDir string  `toml:"output_dir"`
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// LogConfig contains file logging and rotation settings.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// ServerConfig contains settings for the local mock backend server.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"` // Requests per second per client; 0 disables limiting
	Burst     int     `toml:"burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports values that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Backend.TimeoutSeconds < 0:
		return fmt.Errorf("%w: backend.timeout_seconds must not be negative", ErrInvalidConfig)
	case c.Backend.MockDelayMS < 0:
		return fmt.Errorf("%w: backend.mock_delay_ms must not be negative", ErrInvalidConfig)
	case c.Samples.Workers < 0:
		return fmt.Errorf("%w: samples.workers must not be negative", ErrInvalidConfig)
	case c.Samples.RateLimit < 0:
		return fmt.Errorf("%w: samples.rate_limit must not be negative", ErrInvalidConfig)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	case c.Server.RateLimit < 0 || c.Server.Burst < 0:
		return fmt.Errorf("%w: server.rate_limit and server.burst must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
