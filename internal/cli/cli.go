package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/raysh454/moku-watch/internal/config"
)

// ErrMissingJob is returned when neither -job nor a positional id is given.
var ErrMissingJob = errors.New("missing required -job argument")

// Args are the mokuwatch command-line arguments. Zero values mean "not set";
// they leave the config file (or its defaults) in charge.
type Args struct {
	// JobID is the job to watch.
	JobID string

	// ConfigPath is an optional YAML config file.
	ConfigPath string

	BaseURL     string
	Token       string
	Interval    time.Duration
	HistoryPath string
	MetricsAddr string
	LogLevel    string

	// Changes prints a line diff between consecutive snapshots.
	Changes bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns Args. The function is
// deterministic and does not read os.Args.
func ParseArgs(args []string) (*Args, error) {
	fs := flag.NewFlagSet("mokuwatch", flag.ContinueOnError)
	var (
		jobID       = fs.String("job", "", "Job id to watch (required; may also be given as the first positional argument)")
		configPath  = fs.String("config", "", "Path to a YAML config file")
		baseURL     = fs.String("base-url", "", "Job backend base URL, overrides backend.base_url")
		token       = fs.String("token", "", "Bearer token for the job backend")
		interval    = fs.Duration("interval", 0, "Poll interval, overrides monitor.interval")
		historyPath = fs.String("history", "", "SQLite journal path, overrides history.path")
		metricsAddr = fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
		logLevel    = fs.String("log-level", "", "Log level: debug|info|warn|error")
		changes     = fs.Bool("changes", false, "Print snapshot changes between polls")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(*jobID)
	if id == "" && fs.NArg() > 0 {
		id = strings.TrimSpace(fs.Arg(0))
	}
	if id == "" {
		return nil, ErrMissingJob
	}
	if *interval < 0 {
		return nil, fmt.Errorf("invalid -interval %s: must be positive", *interval)
	}

	return &Args{
		JobID:       id,
		ConfigPath:  *configPath,
		BaseURL:     *baseURL,
		Token:       *token,
		Interval:    *interval,
		HistoryPath: *historyPath,
		MetricsAddr: *metricsAddr,
		LogLevel:    *logLevel,
		Changes:     *changes,
		RawArgs:     args,
	}, nil
}

// Apply overlays every flag that was set onto cfg.
func (a *Args) Apply(cfg *config.Config) {
	if a.BaseURL != "" {
		cfg.Backend.BaseURL = a.BaseURL
	}
	if a.Token != "" {
		cfg.Backend.Token = a.Token
	}
	if a.Interval > 0 {
		cfg.Monitor.Interval = a.Interval
	}
	if a.HistoryPath != "" {
		cfg.History.Path = a.HistoryPath
	}
	if a.MetricsAddr != "" {
		cfg.Metrics.ListenAddr = a.MetricsAddr
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
}
