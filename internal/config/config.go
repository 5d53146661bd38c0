// Package config loads the mokuwatch YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingBaseURL is returned when no backend base URL is configured.
var ErrMissingBaseURL = errors.New("backend.base_url is required")

type BackendConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	CookieJar bool          `yaml:"cookie_jar"`
}

type MonitorConfig struct {
	Interval             time.Duration `yaml:"interval"`
	MaxUnrecognizedPolls int           `yaml:"max_unrecognized_polls"` // 0 = poll forever
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables the journal
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables /metrics
}

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Monitor MonitorConfig `yaml:"monitor"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Default returns a Config with every default applied and no backend set.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads and parses the YAML file at path. Defaults are applied but the
// result is not validated, so that flags can still fill in missing values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes and applies defaults.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = 5 * time.Second
	}
	if c.Monitor.MaxUnrecognizedPolls < 0 {
		c.Monitor.MaxUnrecognizedPolls = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the fields mokuwatch cannot run without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url: unsupported scheme %q", u.Scheme)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}
