package render_test

import (
	"strings"
	"testing"
	"time"

	"github.com/raysh454/moku-watch/internal/jobstatus"
	"github.com/raysh454/moku-watch/internal/monitor"
	"github.com/raysh454/moku-watch/internal/progress"
	"github.com/raysh454/moku-watch/internal/render"
	"github.com/raysh454/moku-watch/internal/testutil"
)

var now = time.Date(2026, 10, 17, 10, 2, 0, 0, time.UTC)

func stateFor(snap *jobstatus.Snapshot, phase monitor.Phase) monitor.State {
	return monitor.State{
		JobID:    snap.JobID,
		Phase:    phase,
		Status:   snap.Status,
		Snapshot: snap,
		Progress: snap.Normalized(),
	}
}

// ─── Line ──────────────────────────────────────────────────────────────

func TestLine_Running(t *testing.T) {
	t.Parallel()
	snap := testutil.Snapshot("scan-1", jobstatus.StatusRunning)
	step := "nuclei"
	done, total := 1.0, 2.0
	snap.Progress = progress.FromStructured(progress.Structured{CurrentStep: &step, Completed: &done, Total: &total})
	findings := 1234
	snap.FindingsCount = &findings

	got := render.Line(stateFor(snap, monitor.PhasePolling), now)
	for _, want := range []string{
		"[Running] scan-1",
		"[##########..........]",
		"50% · nuclei",
		"1,234 findings",
		"started 2 minutes ago",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("line %q missing %q", got, want)
		}
	}
}

func TestLine_Completed(t *testing.T) {
	t.Parallel()
	snap := testutil.Snapshot("scan-1", jobstatus.StatusCompleted)
	end := snap.StartedAt.Add(185 * time.Second)
	snap.CompletedAt = &end
	one := 1
	snap.FindingsCount = &one

	got := render.Line(stateFor(snap, monitor.PhaseStopped), now)
	for _, want := range []string{"[Completed]", "100%", "1 finding ", "took 3m05s"} {
		if !strings.Contains(got+" ", want) {
			t.Errorf("line %q missing %q", got, want)
		}
	}
}

func TestLine_PendingAndIdle(t *testing.T) {
	t.Parallel()
	if got := render.Line(monitor.State{}, now); got != "idle" {
		t.Errorf("idle line = %q", got)
	}
	st := monitor.State{JobID: "a", Phase: monitor.PhasePolling, Err: "connection refused"}
	got := render.Line(st, now)
	if !strings.HasPrefix(got, "[Pending] a") || !strings.Contains(got, "last poll failed: connection refused") {
		t.Errorf("pending line = %q", got)
	}
}

func TestLine_UnrecognizedStatusShowsRaw(t *testing.T) {
	t.Parallel()
	snap := testutil.Snapshot("a", "paused")
	got := render.Line(stateFor(snap, monitor.PhasePolling), now)
	if !strings.HasPrefix(got, "[Queued] a (paused)") {
		t.Errorf("line = %q", got)
	}
}

func TestBar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		percent, width int
		want           string
	}{
		{0, 4, "[....]"},
		{50, 4, "[##..]"},
		{100, 4, "[####]"},
		{150, 4, "[####]"},
		{-5, 4, "[....]"},
		{50, 0, ""},
	}
	for _, tt := range tests {
		if got := render.Bar(tt.percent, tt.width); got != tt.want {
			t.Errorf("Bar(%d, %d) = %q, want %q", tt.percent, tt.width, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	tests := map[time.Duration]string{
		42 * time.Second:              "42s",
		1500 * time.Millisecond:       "2s",
		3*time.Minute + 5*time.Second: "3m05s",
		62 * time.Minute:              "1h02m",
	}
	for in, want := range tests {
		if got := render.Duration(in); got != want {
			t.Errorf("Duration(%v) = %q, want %q", in, got, want)
		}
	}
}

// ─── Changes ───────────────────────────────────────────────────────────

func TestChanges(t *testing.T) {
	t.Parallel()
	prev := testutil.Snapshot("scan-1", jobstatus.StatusRunning)
	prev.Progress = progress.Numeric(30)
	next := testutil.Snapshot("scan-1", jobstatus.StatusRunning)
	next.Progress = progress.Numeric(60)

	changes, err := render.Changes(prev, next)
	if err != nil {
		t.Fatalf("Changes: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected one removed and one added line, got %+v", changes)
	}
	if changes[0].Type != "removed" || changes[0].Content != `"progress": 30` {
		t.Errorf("unexpected removal %+v", changes[0])
	}
	if changes[1].Type != "added" || changes[1].Content != `"progress": 60` {
		t.Errorf("unexpected addition %+v", changes[1])
	}
	if got := render.FormatChanges(changes); got != "  - \"progress\": 30\n  + \"progress\": 60\n" {
		t.Errorf("FormatChanges = %q", got)
	}
}

func TestChanges_IdenticalAndFirst(t *testing.T) {
	t.Parallel()
	snap := testutil.Snapshot("a", jobstatus.StatusQueued)
	if changes, err := render.Changes(snap, snap); err != nil || changes != nil {
		t.Errorf("identical snapshots: %v %v", changes, err)
	}
	changes, err := render.Changes(nil, snap)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range changes {
		if c.Type != "added" {
			t.Errorf("first snapshot should only add lines, got %+v", c)
		}
	}
	if len(changes) == 0 {
		t.Error("expected added lines for first snapshot")
	}
}
