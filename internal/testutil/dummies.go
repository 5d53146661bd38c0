// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// Count returns how many messages equal to msg were logged at any level.
func (l *DummyLogger) Count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, list := range [][]string{l.Debugs, l.Infos, l.Warns, l.Errors} {
		for _, m := range list {
			if m == msg {
				n++
			}
		}
	}
	return n
}

// ─── Status source ─────────────────────────────────────────────────────

// PendingRequest is one Fetch call waiting for the test to answer it.
type PendingRequest struct {
	JobID string
	reply chan fetchResult
}

type fetchResult struct {
	snap *jobstatus.Snapshot
	err  error
}

// Respond completes the request with snap.
func (p *PendingRequest) Respond(snap *jobstatus.Snapshot) {
	p.reply <- fetchResult{snap: snap}
}

// Fail completes the request with err.
func (p *PendingRequest) Fail(err error) {
	p.reply <- fetchResult{err: err}
}

// ScriptedSource implements statusclient.Source. Every Fetch is published on
// Requests and blocks until the test calls Respond or Fail on it.
type ScriptedSource struct {
	Requests chan *PendingRequest

	// IgnoreCancel makes Fetch wait for the reply even after its context is
	// cancelled, to simulate a response arriving late.
	IgnoreCancel bool

	mu    sync.Mutex
	calls map[string]int
}

// NewScriptedSource returns a ScriptedSource with a buffered request queue.
func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{
		Requests: make(chan *PendingRequest, 64),
		calls:    make(map[string]int),
	}
}

func (s *ScriptedSource) Fetch(ctx context.Context, jobID string) (*jobstatus.Snapshot, error) {
	req := &PendingRequest{JobID: jobID, reply: make(chan fetchResult, 1)}
	s.mu.Lock()
	s.calls[jobID]++
	s.mu.Unlock()

	s.Requests <- req

	if s.IgnoreCancel {
		r := <-req.reply
		return r.snap, r.err
	}
	select {
	case r := <-req.reply:
		return r.snap, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Calls returns how many times Fetch was called for jobID.
func (s *ScriptedSource) Calls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[jobID]
}

// Snapshot builds a snapshot for tests.
func Snapshot(jobID string, status jobstatus.Status) *jobstatus.Snapshot {
	return &jobstatus.Snapshot{
		JobID:     jobID,
		Status:    status,
		Target:    "https://example.com",
		StartedAt: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC),
	}
}
