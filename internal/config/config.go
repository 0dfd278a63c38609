package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tada configuration.
type Config struct {
	// Local storage used when no server URL is set
	Storage StorageConfig `yaml:"storage"`

	// HTTP API served by `todo serve`
	Server ServerConfig `yaml:"server"`

	// Remote server used by the CLI and TUI
	Client ClientConfig `yaml:"client"`

	Logging LoggingConfig `yaml:"logging"`

	UI UIConfig `yaml:"ui"`
}

// StorageConfig selects the storage collaborator.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite3, sqlite, json
	Path   string `yaml:"path"`   // empty: todos.db or todos.json in the working directory
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Token          string   `yaml:"token"` // optional shared bearer token
	CORSOrigins    []string `yaml:"cors_origins"`
	RequestTimeout string   `yaml:"request_timeout"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
}

// ClientConfig points the CLI at a remote server.
type ClientConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// UIConfig tunes terminal output.
type UIConfig struct {
	Theme string `yaml:"theme"` // classic, neon, mono
	Color string `yaml:"color"` // auto, always, never
}

// Storage drivers.
const (
	DriverSQLite     = "sqlite3"
	DriverSQLitePure = "sqlite"
	DriverJSON       = "json"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
		},
		Server: ServerConfig{
			Addr:           "localhost:2022",
			CORSOrigins:    []string{"*"},
			RequestTimeout: "10s",
			MaxBodyBytes:   1 << 20,
		},
		Client: ClientConfig{
			Timeout: "15s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		UI: UIConfig{
			Theme: "classic",
			Color: "auto",
		},
	}
}

// DefaultPath returns ~/.tada/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada", "config.yaml"), nil
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets TADA_* variables win over the file.
func (c *Config) applyEnvOverrides() {
	if v := env("TADA_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := env("TADA_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := env("TADA_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := env("TADA_SERVER_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := env("TADA_SERVER_URL"); v != "" {
		c.Client.URL = v
	}
	if v := env("TADA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("TADA_THEME"); v != "" {
		c.UI.Theme = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverSQLitePure, DriverJSON:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if _, err := c.Server.Timeout(); err != nil {
		return err
	}
	if _, err := c.Client.TimeoutDuration(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format: must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Timeout parses RequestTimeout; empty means no per-request limit.
func (s ServerConfig) Timeout() (time.Duration, error) {
	return parseDuration("server.request_timeout", s.RequestTimeout)
}

// TimeoutDuration parses the client timeout; empty means no limit.
func (c ClientConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("client.timeout", c.Timeout)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
