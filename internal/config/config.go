// Package config reads and writes the workspace configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDir is the workspace directory created by "dbdiff init"
const DefaultDir = ".dbdiff"

// FileName is the configuration file inside the workspace directory
const FileName = "config.yaml"

// EnvDatabaseURL overrides the configured database URL when set
const EnvDatabaseURL = "DBDIFF_DATABASE_URL"

// ErrNotInitialized is returned when the workspace has no configuration file
var ErrNotInitialized = errors.New("dbdiff not initialized")

// Config holds the persisted workspace configuration
type Config struct {
	DatabaseURL   string   `yaml:"database_url"`
	Namespaces    []string `yaml:"namespaces,omitempty"`
	ExcludeTables []string `yaml:"exclude_tables,omitempty"`
	Workers       int      `yaml:"workers"`
	Timeout       Duration `yaml:"timeout"`
	HistoryLimit  int      `yaml:"history_limit"`
}

// Duration is a time.Duration written as "30s" in YAML
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns a Config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		Workers:      4,
		Timeout:      Duration(30 * time.Second),
		HistoryLimit: 10,
	}
}

// Path returns the configuration file path inside dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// IsInitialized reports whether dir holds a configuration file
func IsInitialized(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Init creates dir and writes a default configuration for databaseURL
func Init(dir, databaseURL string) (*Config, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	cfg := DefaultConfig()
	cfg.DatabaseURL = databaseURL
	if err := cfg.Save(dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration from dir. The EnvDatabaseURL environment
// variable, when set, overrides the stored database URL.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s: run 'dbdiff init <database-url>' first", ErrNotInitialized, dir)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if url := os.Getenv(EnvDatabaseURL); url != "" {
		cfg.DatabaseURL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("invalid config: database_url is empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid config: workers must be at least 1, got %d", c.Workers)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid config: timeout must not be negative")
	}
	return nil
}

// Save writes the configuration into dir, creating it if needed
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
