// Package monitor polls the job backend for the status of one job until the
// job reaches a terminal state.
//
// A Monitor watches at most one job id at a time. Each Watch call starts a
// session: the first status request goes out immediately, then one per
// interval tick. Requests within a session are issued sequentially by a single
// loop goroutine, so at most one is outstanding. Results are applied only if
// their session is still current; anything else is discarded as stale.
package monitor

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/logging"
	"github.com/raysh454/moku-watch/internal/statusclient"
)

// Monitor owns the poll/observe/stop lifecycle for a single watched job id.
// It is safe for concurrent use, and its methods may be called from inside
// its own callbacks.
type Monitor struct {
	src    statusclient.Source
	cfg    Config
	logger logging.Logger

	mu      sync.Mutex
	sess    *session
	state   State
	nextGen uint64
	closed  bool
}

type session struct {
	gen     uint64
	jobID   string
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  clockwork.Ticker
	refresh chan struct{}

	// guarded by Monitor.mu
	stopped bool

	// owned by the loop goroutine
	unrecognized int
}

// New returns an idle Monitor that queries src.
func New(src statusclient.Source, cfg Config, logger logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Monitor{
		src:    src,
		cfg:    cfg.withDefaults(),
		logger: logger.With(logging.Field{Key: "component", Value: "monitor"}),
		state:  State{Phase: PhaseIdle},
	}
}

// Watch starts a fresh session for jobID, ending any current one. An empty
// jobID is the same as Unwatch. Watching the id that is already watched
// restarts the session.
func (m *Monitor) Watch(jobID string) {
	if jobID == "" {
		m.Unwatch()
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Warn("watch on closed monitor ignored", logging.Field{Key: "job_id", Value: jobID})
		return
	}
	m.endSessionLocked()

	m.nextGen++
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		gen:     m.nextGen,
		jobID:   jobID,
		ctx:     ctx,
		cancel:  cancel,
		ticker:  m.cfg.Clock.NewTicker(m.cfg.Interval),
		refresh: make(chan struct{}, 1),
	}
	m.sess = s
	m.state = State{JobID: jobID, Phase: PhasePolling}
	m.mu.Unlock()

	m.logger.Info("watch started",
		logging.Field{Key: "job_id", Value: jobID},
		logging.Field{Key: "interval", Value: m.cfg.Interval})

	go m.run(s)
}

// Unwatch stops the current session, if any, and returns to Idle. The ticker
// is stopped before Unwatch returns and the result of any in-flight request is
// discarded.
func (m *Monitor) Unwatch() {
	m.mu.Lock()
	jobID := m.state.JobID
	had := m.endSessionLocked()
	m.state = State{Phase: PhaseIdle}
	m.mu.Unlock()

	if had {
		m.logger.Info("watch ended", logging.Field{Key: "job_id", Value: jobID})
	}
}

// RefreshNow asks for an out-of-band poll without resetting the ticker. It is
// a no-op unless the monitor is polling, and coalesces with a refresh that is
// already pending.
func (m *Monitor) RefreshNow() {
	m.mu.Lock()
	s := m.sess
	ok := s != nil && !s.stopped
	m.mu.Unlock()
	if !ok {
		return
	}
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// State returns a copy of what the monitor currently knows.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close ends the current session and makes later Watch calls no-ops.
func (m *Monitor) Close() {
	m.Unwatch()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// endSessionLocked cancels the current session. Reports whether there was one.
func (m *Monitor) endSessionLocked() bool {
	s := m.sess
	if s == nil {
		return false
	}
	s.ticker.Stop()
	s.cancel()
	m.sess = nil
	return true
}

func (m *Monitor) run(s *session) {
	defer s.cancel()

	if !m.poll(s) {
		return
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.ticker.Chan():
		case <-s.refresh:
		}
		if !m.poll(s) {
			return
		}
	}
}

// poll issues one request for s and applies its result. It returns false once
// the session is over, either because it was replaced or because the job
// reached a terminal state.
func (m *Monitor) poll(s *session) bool {
	m.mu.Lock()
	current := m.sess == s && !s.stopped
	m.mu.Unlock()
	if !current {
		return false
	}

	snap, err := m.src.Fetch(s.ctx, s.jobID)

	m.mu.Lock()
	if m.sess != s {
		m.mu.Unlock()
		m.logger.Debug("discarded stale response",
			logging.Field{Key: "job_id", Value: s.jobID},
			logging.Field{Key: "session", Value: int(s.gen)})
		return false
	}

	m.state.Polls++
	if err != nil {
		// Keep the last good snapshot and status; only the error changes.
		m.state.Err = err.Error()
		st := m.state
		m.mu.Unlock()

		m.logger.Warn("poll failed",
			logging.Field{Key: "job_id", Value: s.jobID},
			logging.Field{Key: "polls", Value: st.Polls},
			logging.Err(err))
		if !m.current(s) {
			return false
		}
		m.notify(st)
		return true
	}

	if snap.Status.Known() {
		s.unrecognized = 0
	} else {
		s.unrecognized++
	}
	terminal := snap.Status.Terminal()
	gaveUp := !terminal && m.cfg.MaxUnrecognizedPolls > 0 && s.unrecognized >= m.cfg.MaxUnrecognizedPolls

	m.state.Snapshot = snap
	m.state.Status = snap.Status
	m.state.Progress = snap.Normalized()
	m.state.Err = ""
	if terminal || gaveUp {
		s.stopped = true
		s.ticker.Stop()
		m.state.Phase = PhaseStopped
	}
	st := m.state
	m.mu.Unlock()

	m.logger.Debug("poll ok",
		logging.Field{Key: "job_id", Value: s.jobID},
		logging.Field{Key: "status", Value: string(snap.Status)},
		logging.Field{Key: "progress", Value: st.Progress.Label()})
	if !m.current(s) {
		return false
	}
	m.notify(st)

	if (terminal || gaveUp) && !m.current(s) {
		m.logger.Debug("session ended before terminal callback",
			logging.Field{Key: "job_id", Value: s.jobID},
			logging.Field{Key: "session", Value: int(s.gen)})
		return false
	}
	switch {
	case terminal:
		m.logger.Info("job reached terminal status",
			logging.Field{Key: "job_id", Value: s.jobID},
			logging.Field{Key: "status", Value: string(snap.Status)})
		m.finish(*snap)
		return false
	case gaveUp:
		m.logger.Warn("giving up on unrecognized status",
			logging.Field{Key: "job_id", Value: s.jobID},
			logging.Field{Key: "status", Value: string(snap.Status)},
			logging.Field{Key: "polls", Value: s.unrecognized})
		if m.cfg.OnFailed != nil {
			m.cfg.OnFailed(*snap)
		}
		return false
	}
	if !snap.Status.Known() {
		m.logger.Debug("unrecognized status, still polling",
			logging.Field{Key: "job_id", Value: s.jobID},
			logging.Field{Key: "status", Value: string(snap.Status)})
	}
	return true
}

// current reports whether s is still the active session. Callbacks run
// without the lock, so a concurrent Unwatch or Close can end s in between.
func (m *Monitor) current(s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess == s
}

func (m *Monitor) finish(snap jobstatus.Snapshot) {
	if snap.Status == jobstatus.StatusCompleted {
		if m.cfg.OnComplete != nil {
			m.cfg.OnComplete(snap)
		}
		return
	}
	if m.cfg.OnFailed != nil {
		m.cfg.OnFailed(snap)
	}
}

func (m *Monitor) notify(st State) {
	if m.cfg.OnUpdate != nil {
		m.cfg.OnUpdate(st)
	}
}
