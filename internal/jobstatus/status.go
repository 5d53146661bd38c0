package jobstatus

// Status is the lifecycle state reported by the job backend. Values outside
// the five known members are kept verbatim.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Known reports whether s is one of the five enumerated statuses.
func (s Status) Known() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further state changes are expected. Unknown
// statuses are never terminal.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Display maps unknown statuses to queued. The raw value is left untouched
// for callers that want it.
func (s Status) Display() Status {
	if s.Known() {
		return s
	}
	return StatusQueued
}

// Active reports whether the job is still queued or running, as displayed.
func (s Status) Active() bool {
	switch s.Display() {
	case StatusQueued, StatusRunning:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Tone is the visual severity of a badge.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneWarning Tone = "warning"
)

// Badge is the label and tone a status is shown with.
type Badge struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Tone   Tone   `json:"tone"`
	// Raw is the status as received when it was not one of the known values.
	Raw string `json:"raw,omitempty"`
}

var badges = map[Status]Badge{
	StatusQueued:    {Status: StatusQueued, Label: "Queued", Tone: ToneNeutral},
	StatusRunning:   {Status: StatusRunning, Label: "Running", Tone: ToneInfo},
	StatusCompleted: {Status: StatusCompleted, Label: "Completed", Tone: ToneSuccess},
	StatusFailed:    {Status: StatusFailed, Label: "Failed", Tone: ToneDanger},
	StatusCancelled: {Status: StatusCancelled, Label: "Cancelled", Tone: ToneWarning},
}

// BadgeFor returns the badge for s. Unknown statuses get the queued badge with
// Raw set.
func BadgeFor(s Status) Badge {
	b := badges[s.Display()]
	if !s.Known() {
		b.Raw = string(s)
	}
	return b
}
