package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/moku-watch/internal/config"
)

func TestLoad_FullFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "mokuwatch.yaml")
	data := `
backend:
  base_url: https://scanner.internal/api
  token: s3cret
  timeout: 10s
  cookie_jar: true
monitor:
  interval: 2s
  max_unrecognized_polls: 12
log:
  level: debug
  format: console
history:
  path: /tmp/history.db
metrics:
  listen_addr: ":9102"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "https://scanner.internal/api" || cfg.Backend.Token != "s3cret" {
		t.Errorf("unexpected backend: %+v", cfg.Backend)
	}
	if cfg.Backend.Timeout != 10*time.Second || !cfg.Backend.CookieJar {
		t.Errorf("unexpected backend transport settings: %+v", cfg.Backend)
	}
	if cfg.Monitor.Interval != 2*time.Second || cfg.Monitor.MaxUnrecognizedPolls != 12 {
		t.Errorf("unexpected monitor: %+v", cfg.Monitor)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("unexpected log: %+v", cfg.Log)
	}
	if cfg.History.Path != "/tmp/history.db" || cfg.Metrics.ListenAddr != ":9102" {
		t.Errorf("unexpected history/metrics: %+v %+v", cfg.History, cfg.Metrics)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.Parse([]byte("backend:\n  base_url: http://localhost:9999\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Monitor.Interval != 5*time.Second {
		t.Errorf("default interval = %v", cfg.Monitor.Interval)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("default log = %+v", cfg.Log)
	}
	if cfg.Monitor.MaxUnrecognizedPolls != 0 {
		t.Errorf("default unrecognized limit = %d", cfg.Monitor.MaxUnrecognizedPolls)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	t.Parallel()
	if _, err := config.Parse([]byte("backend: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	if err := cfg.Validate(); !errors.Is(err, config.ErrMissingBaseURL) {
		t.Errorf("expected ErrMissingBaseURL, got %v", err)
	}

	cfg.Backend.BaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected scheme error")
	}

	cfg.Backend.BaseURL = "http://example.com"
	cfg.Log.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected log format error")
	}

	cfg.Log.Format = "json"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
