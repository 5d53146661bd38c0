package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/moku-watch/internal/jobstatus"
)

// Change is one added or removed line between two snapshots.
type Change struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// Changes returns the line-level differences between the indented JSON forms
// of prev and next. A nil prev means everything in next is added.
func Changes(prev, next *jobstatus.Snapshot) ([]Change, error) {
	base, err := snapshotText(prev)
	if err != nil {
		return nil, err
	}
	head, err := snapshotText(next)
	if err != nil {
		return nil, err
	}
	if base == head {
		return nil, nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(base, head)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Change
	for _, d := range diffs {
		var typ string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = "added"
		case diffmatchpatch.DiffDelete:
			typ = "removed"
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, Change{Type: typ, Content: strings.TrimSpace(line)})
		}
	}
	return out, nil
}

// FormatChanges renders changes as a unified-diff style block.
func FormatChanges(changes []Change) string {
	var b strings.Builder
	for _, c := range changes {
		sign := "+"
		if c.Type == "removed" {
			sign = "-"
		}
		fmt.Fprintf(&b, "  %s %s\n", sign, c.Content)
	}
	return b.String()
}

func snapshotText(s *jobstatus.Snapshot) (string, error) {
	if s == nil {
		return "", nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data) + "\n", nil
}
