package demoserver

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/raysh454/moku-watch/internal/logging"
)

// Config holds configuration for the demo job backend.
type Config struct {
	// Port is the port on which the demo server listens.
	Port int

	// StepInterval is how often every unfinished job advances one stage.
	StepInterval time.Duration

	// DefaultTools is used when a created job names no tools.
	DefaultTools []string

	// Clock drives job advancement; tests inject a fake clock.
	Clock clockwork.Clock

	Logger logging.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:         9999,
		StepInterval: 2 * time.Second,
		DefaultTools: []string{"subfinder", "httpx", "nuclei", "nmap"},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.StepInterval <= 0 {
		c.StepInterval = d.StepInterval
	}
	if len(c.DefaultTools) == 0 {
		c.DefaultTools = d.DefaultTools
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = logging.NewStdoutLogger("demoserver")
	}
	return c
}
