// Package jobstatus models what the job backend reports about one job: its
// status, the snapshot returned by a single poll, and how a status is shown.
package jobstatus

import (
	"time"

	"github.com/raysh454/moku-watch/internal/progress"
)

// Snapshot is the full status payload for one poll. It is never mutated after
// decoding; a newer poll replaces it. Status is matched exactly: "Completed" or
// "canceled" are unknown statuses and keep the job active.
type Snapshot struct {
	JobID         string         `json:"job_id"`
	Status        Status         `json:"status"`
	Target        string         `json:"target,omitempty"`
	Tools         []string       `json:"tools,omitempty"`
	StartedAt     time.Time      `json:"started_at,omitzero"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Duration      *float64       `json:"duration,omitempty"` // seconds
	FindingsCount *int           `json:"findings_count,omitempty"`
	Progress      progress.Value `json:"progress"`
}

// Normalized is progress.Normalize(s.Progress), except that a completed job
// with no derivable percentage reports 100.
func (s Snapshot) Normalized() progress.Normalized {
	n := progress.Normalize(s.Progress)
	if n.Percent == nil && s.Status == StatusCompleted {
		full := 100
		n.Percent = &full
	}
	return n
}

// Elapsed returns the reported duration if present, otherwise the time between
// StartedAt and CompletedAt (or now for unfinished jobs). Zero when StartedAt
// is unknown.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.Duration != nil {
		return time.Duration(*s.Duration * float64(time.Second))
	}
	if s.StartedAt.IsZero() {
		return 0
	}
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}
