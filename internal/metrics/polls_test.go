package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/statusclient"
)

// Collectors are package globals, so these tests run sequentially and compare
// deltas.

func TestInstrument_CountsOutcomes(t *testing.T) {
	okBefore := promtest.ToFloat64(pollsTotal.WithLabelValues("ok"))
	errBefore := promtest.ToFloat64(pollsTotal.WithLabelValues("error"))
	runBefore := promtest.ToFloat64(statusesTotal.WithLabelValues("running"))
	oddBefore := promtest.ToFloat64(statusesTotal.WithLabelValues("unrecognized"))

	var next func() (*jobstatus.Snapshot, error)
	src := Instrument(statusclient.SourceFunc(func(ctx context.Context, id string) (*jobstatus.Snapshot, error) {
		return next()
	}))

	next = func() (*jobstatus.Snapshot, error) {
		return &jobstatus.Snapshot{JobID: "a", Status: jobstatus.StatusRunning}, nil
	}
	if _, err := src.Fetch(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	next = func() (*jobstatus.Snapshot, error) {
		return &jobstatus.Snapshot{JobID: "a", Status: "paused"}, nil
	}
	if _, err := src.Fetch(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	next = func() (*jobstatus.Snapshot, error) { return nil, boom }
	if _, err := src.Fetch(context.Background(), "a"); !errors.Is(err, boom) {
		t.Fatalf("error not passed through: %v", err)
	}

	if d := promtest.ToFloat64(pollsTotal.WithLabelValues("ok")) - okBefore; d != 2 {
		t.Errorf("ok delta = %v", d)
	}
	if d := promtest.ToFloat64(pollsTotal.WithLabelValues("error")) - errBefore; d != 1 {
		t.Errorf("error delta = %v", d)
	}
	if d := promtest.ToFloat64(statusesTotal.WithLabelValues("running")) - runBefore; d != 1 {
		t.Errorf("running delta = %v", d)
	}
	if d := promtest.ToFloat64(statusesTotal.WithLabelValues("unrecognized")) - oddBefore; d != 1 {
		t.Errorf("unrecognized delta = %v", d)
	}
}

func TestInstrument_CanceledRequestsAreNotErrors(t *testing.T) {
	errBefore := promtest.ToFloat64(pollsTotal.WithLabelValues("error"))
	canBefore := promtest.ToFloat64(pollsTotal.WithLabelValues("canceled"))

	src := Instrument(statusclient.SourceFunc(func(ctx context.Context, id string) (*jobstatus.Snapshot, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("fetch %s: %w", id, ctx.Err())
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// A transport error surfacing after the caller gave up is still a cancel.
	late := Instrument(statusclient.SourceFunc(func(context.Context, string) (*jobstatus.Snapshot, error) {
		return nil, errors.New("connection reset")
	}))
	if _, err := late.Fetch(ctx, "a"); err == nil {
		t.Fatal("expected error")
	}

	if d := promtest.ToFloat64(pollsTotal.WithLabelValues("canceled")) - canBefore; d != 2 {
		t.Errorf("canceled delta = %v", d)
	}
	if d := promtest.ToFloat64(pollsTotal.WithLabelValues("error")) - errBefore; d != 0 {
		t.Errorf("error delta = %v", d)
	}
}

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	MustRegister()
	MustRegister() // idempotent

	pollsTotal.WithLabelValues("ok").Add(0)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mokuwatch_polls_total") {
		t.Error("expected mokuwatch_polls_total in exposition")
	}
}
