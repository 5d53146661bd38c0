// Package progress turns the progress values reported by the job backend into
// a single 0-100 percentage and an optional step label.
//
// The backend sends progress in one of three shapes: nothing at all, a bare
// number, or an object with any of percent, current_tool, completed_tools and
// total_tools. Value captures that as a closed tagged union at the JSON
// boundary so Normalize can switch over it exhaustively.
package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Kind tags which shape a Value holds.
type Kind int

const (
	KindAbsent Kind = iota
	KindNumeric
	KindStructured
	// KindUnrecognized is any other JSON shape (string, bool, array).
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNumeric:
		return "numeric"
	case KindStructured:
		return "structured"
	default:
		return "unrecognized"
	}
}

// Structured is the object form of a progress value. Every field is optional.
type Structured struct {
	Percent     *float64
	CurrentStep *string
	Completed   *float64
	Total       *float64
}

// Value is a progress value as received from the backend. The zero Value is
// Absent.
type Value struct {
	kind       Kind
	number     float64
	structured Structured
	raw        json.RawMessage
}

// Absent returns a Value carrying no progress.
func Absent() Value { return Value{kind: KindAbsent} }

// Numeric returns a bare-number Value.
func Numeric(v float64) Value { return Value{kind: KindNumeric, number: v} }

// FromStructured returns an object Value.
func FromStructured(s Structured) Value { return Value{kind: KindStructured, structured: s} }

func (v Value) Kind() Kind { return v.kind }

// Number returns the bare number; ok is false unless the Value is Numeric.
func (v Value) Number() (float64, bool) {
	return v.number, v.kind == KindNumeric
}

// Structured returns the object form; ok is false unless the Value is Structured.
func (v Value) Structured() (Structured, bool) {
	return v.structured, v.kind == KindStructured
}

// UnmarshalJSON never fails on a syntactically valid document: shapes it does
// not understand become KindUnrecognized and structured fields of the wrong
// JSON type are ignored.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*v = Value{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return fmt.Errorf("decode progress object: %w", err)
		}
		v.kind = KindStructured
		v.structured = Structured{
			Percent:     numberField(fields, "percent"),
			CurrentStep: stringField(fields, "current_tool"),
			Completed:   numberField(fields, "completed_tools"),
			Total:       numberField(fields, "total_tools"),
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("decode progress number: %w", err)
		}
		v.kind = KindNumeric
		v.number = n
	default:
		if !json.Valid(trimmed) {
			return fmt.Errorf("decode progress: invalid JSON")
		}
		v.kind = KindUnrecognized
		v.raw = append(json.RawMessage(nil), trimmed...)
	}
	return nil
}

// MarshalJSON writes the value back in the backend's wire shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumeric:
		return json.Marshal(v.number)
	case KindStructured:
		out := map[string]any{}
		if v.structured.Percent != nil {
			out["percent"] = *v.structured.Percent
		}
		if v.structured.CurrentStep != nil {
			out["current_tool"] = *v.structured.CurrentStep
		}
		if v.structured.Completed != nil {
			out["completed_tools"] = *v.structured.Completed
		}
		if v.structured.Total != nil {
			out["total_tools"] = *v.structured.Total
		}
		return json.Marshal(out)
	case KindUnrecognized:
		if len(v.raw) > 0 {
			return v.raw, nil
		}
	}
	return []byte("null"), nil
}

func numberField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return &n
}

func stringField(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// Normalized is the canonical progress derived from a Value.
type Normalized struct {
	// Percent is in [0,100], nil when not derivable.
	Percent *int
	// Step is the current step label, nil when the backend sent none.
	Step *string
}

// Normalize derives a percentage and step label from v. It is pure and total.
//
// A structured percent takes precedence over completed/total counts. Counts
// are only used when total > 0.
func Normalize(v Value) Normalized {
	switch v.kind {
	case KindNumeric:
		return Normalized{Percent: clampPercent(v.number)}
	case KindStructured:
		s := v.structured
		var out Normalized
		switch {
		case s.Percent != nil:
			out.Percent = clampPercent(*s.Percent)
		case s.Completed != nil && s.Total != nil && *s.Total > 0:
			out.Percent = clampPercent(*s.Completed / *s.Total * 100)
		}
		if s.CurrentStep != nil {
			step := *s.CurrentStep
			out.Step = &step
		}
		return out
	default:
		return Normalized{}
	}
}

func clampPercent(f float64) *int {
	if math.IsNaN(f) {
		return nil
	}
	r := math.Round(f)
	switch {
	case r < 0:
		r = 0
	case r > 100:
		r = 100
	}
	p := int(r)
	return &p
}

// Label renders the normalized progress for display: "45%", "45% · nmap",
// "nmap" or "".
func (n Normalized) Label() string {
	switch {
	case n.Percent != nil && n.Step != nil && *n.Step != "":
		return fmt.Sprintf("%d%% · %s", *n.Percent, *n.Step)
	case n.Percent != nil:
		return fmt.Sprintf("%d%%", *n.Percent)
	case n.Step != nil:
		return *n.Step
	}
	return ""
}

// PercentOr returns the percentage or def when it is not derivable.
func (n Normalized) PercentOr(def int) int {
	if n.Percent == nil {
		return def
	}
	return *n.Percent
}
