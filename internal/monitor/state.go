package monitor

import (
	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/progress"
)

// Phase is where a Monitor is in its lifecycle.
type Phase int

const (
	// PhaseIdle: no job id is being watched.
	PhaseIdle Phase = iota
	// PhasePolling: a job id is watched and the ticker is armed.
	PhasePolling
	// PhaseStopped: a terminal status was observed; no more requests.
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePolling:
		return "polling"
	case PhaseStopped:
		return "stopped"
	}
	return "unknown"
}

// State is the monitor's read surface. Snapshot is nil until the first
// successful poll of the session.
type State struct {
	JobID    string
	Phase    Phase
	Status   jobstatus.Status
	Snapshot *jobstatus.Snapshot
	Progress progress.Normalized
	// Err is the last poll error, cleared by the next successful poll.
	Err string
	// Polls counts the responses applied in this session.
	Polls int
}

// IsActive is true while the session is polling and the job is queued or
// running. Unrecognized statuses display as queued and count as active.
func (s State) IsActive() bool {
	return s.Phase == PhasePolling && s.Status != "" && s.Status.Active()
}

// Badge is the display badge for the current status.
func (s State) Badge() jobstatus.Badge {
	return jobstatus.BadgeFor(s.Status)
}
