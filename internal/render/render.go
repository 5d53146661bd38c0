// Package render formats monitor state for a terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/raysh454/moku-watch/internal/monitor"
)

// BarWidth is the number of cells in a progress bar.
const BarWidth = 20

// Line renders st as a single status line, e.g.
//
//	[Running] scan-1 [##########..........] 50% · nuclei | 4 findings | started 2 minutes ago
func Line(st monitor.State, now time.Time) string {
	if st.Phase == monitor.PhaseIdle {
		return "idle"
	}

	var b strings.Builder
	badge := st.Badge()
	if st.Snapshot == nil {
		badge.Label = "Pending"
	}
	fmt.Fprintf(&b, "[%s] %s", badge.Label, st.JobID)
	if badge.Raw != "" {
		fmt.Fprintf(&b, " (%s)", badge.Raw)
	}

	if st.Progress.Percent != nil {
		b.WriteString(" ")
		b.WriteString(Bar(*st.Progress.Percent, BarWidth))
	}
	if label := st.Progress.Label(); label != "" {
		b.WriteString(" ")
		b.WriteString(label)
	}

	if snap := st.Snapshot; snap != nil {
		if snap.FindingsCount != nil {
			n := *snap.FindingsCount
			noun := "findings"
			if n == 1 {
				noun = "finding"
			}
			fmt.Fprintf(&b, " | %s %s", humanize.Comma(int64(n)), noun)
		}
		if !snap.StartedAt.IsZero() {
			if st.Status.Terminal() {
				fmt.Fprintf(&b, " | took %s", Duration(snap.Elapsed(now)))
			} else {
				fmt.Fprintf(&b, " | started %s", humanize.RelTime(snap.StartedAt, now, "ago", "from now"))
			}
		}
	}

	if st.Err != "" {
		fmt.Fprintf(&b, " | last poll failed: %s", st.Err)
	}
	return b.String()
}

// Bar draws percent (clamped to [0,100]) as a fixed-width ASCII bar.
func Bar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// Duration formats d compactly, rounded to the second: "42s", "3m05s", "1h02m".
func Duration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
