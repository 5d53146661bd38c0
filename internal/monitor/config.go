package monitor

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/raysh454/moku-watch/internal/jobstatus"
)

// DefaultInterval is the polling period used when Config.Interval is unset.
const DefaultInterval = 5 * time.Second

// Config configures a Monitor. The zero value is usable.
type Config struct {
	// Interval between polls. Values <= 0 mean DefaultInterval.
	Interval time.Duration

	// OnComplete fires once per session when the job reports completed.
	OnComplete func(jobstatus.Snapshot)

	// OnFailed fires once per session when the job reports failed or
	// cancelled, or when MaxUnrecognizedPolls is exceeded.
	OnFailed func(jobstatus.Snapshot)

	// OnUpdate is called after every applied poll result, successful or not.
	OnUpdate func(State)

	// Clock drives the poll ticker. Defaults to the real clock.
	Clock clockwork.Clock

	// MaxUnrecognizedPolls stops the session after this many consecutive
	// responses with an unrecognized status. Zero keeps polling forever.
	MaxUnrecognizedPolls int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}
