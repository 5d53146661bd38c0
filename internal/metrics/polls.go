package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/statusclient"
)

func init() { register(pollsTotal, pollLatency, statusesTotal) }

var (
	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mokuwatch_polls_total",
			Help: "Status requests by outcome (ok/error/canceled).",
		},
		[]string{"result"},
	)

	pollLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mokuwatch_poll_latency_seconds",
			Help:    "Status request latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	statusesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mokuwatch_statuses_total",
			Help: "Job statuses observed in successful polls.",
		},
		[]string{"status"},
	)
)

// statusLabel keeps label cardinality bounded: backend-specific statuses
// collapse into one bucket.
func statusLabel(s jobstatus.Status) string {
	if s.Known() {
		return string(s)
	}
	return "unrecognized"
}

// errorLabel separates requests abandoned by the caller, on Unwatch or a job
// switch, from real transport failures.
func errorLabel(ctx context.Context, err error) string {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return "canceled"
	}
	return "error"
}

type instrumented struct {
	next statusclient.Source
	now  func() time.Time
}

// Instrument wraps src so every Fetch is counted and timed.
func Instrument(src statusclient.Source) statusclient.Source {
	return &instrumented{next: src, now: time.Now}
}

func (i *instrumented) Fetch(ctx context.Context, jobID string) (*jobstatus.Snapshot, error) {
	start := i.now()
	snap, err := i.next.Fetch(ctx, jobID)
	pollLatency.Observe(i.now().Sub(start).Seconds())
	if err != nil {
		pollsTotal.WithLabelValues(errorLabel(ctx, err)).Inc()
		return nil, err
	}
	pollsTotal.WithLabelValues("ok").Inc()
	statusesTotal.WithLabelValues(statusLabel(snap.Status)).Inc()
	return snap, nil
}
