// Package simtime parses configuration time values into nanosecond counts.
//
// The simulator represents every instant and duration as a non-negative
// int64 number of nanoseconds. Configuration documents may express a time
// either as a bare number (already in the caller-supplied default scale)
// or as a string carrying its own unit suffix.
package simtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Duration is a non-negative simulated duration or instant, in nanoseconds.
type Duration int64

// unit table, keyed by the exact lower-cased suffix that follows the number.
var units = map[string]Duration{
	"ns": 1,

	"us":           1_000,
	"µs":           1_000,
	"microsecond":  1_000,
	"microseconds": 1_000,

	"ms":           1_000_000,
	"millisecond":  1_000_000,
	"milliseconds": 1_000_000,

	"s":       1_000_000_000,
	"sec":     1_000_000_000,
	"secs":    1_000_000_000,
	"second":  1_000_000_000,
	"seconds": 1_000_000_000,

	"m":       60 * 1_000_000_000,
	"min":     60 * 1_000_000_000,
	"mins":    60 * 1_000_000_000,
	"minute":  60 * 1_000_000_000,
	"minutes": 60 * 1_000_000_000,

	"h":     3600 * 1_000_000_000,
	"hr":    3600 * 1_000_000_000,
	"hrs":   3600 * 1_000_000_000,
	"hour":  3600 * 1_000_000_000,
	"hours": 3600 * 1_000_000_000,
}

// Parse converts a scalar JSON value (float64, json.Number, int, or string)
// into a Duration. When the value is a bare number (no unit suffix, or a
// numeric type), defaultUnit scales it; defaultUnit itself defaults to
// nanoseconds when zero.
func Parse(v any, defaultUnit Duration) (Duration, error) {
	if defaultUnit == 0 {
		defaultUnit = units["ns"]
	}
	switch t := v.(type) {
	case float64:
		return scale(t, defaultUnit)
	case int:
		return scale(float64(t), defaultUnit)
	case int64:
		return scale(float64(t), defaultUnit)
	case string:
		return parseString(t, defaultUnit)
	case json.Number:
		return parseString(string(t), defaultUnit)
	default:
		return 0, fmt.Errorf("simtime: unsupported time value type %T", v)
	}
}

func parseString(s string, defaultUnit Duration) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("simtime: empty time string")
	}

	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= '0' && c <= '9') || c == '.' || c == ',' {
			break
		}
		i--
	}
	numPart := strings.TrimSpace(s[:i])
	unitPart := strings.ToLower(strings.TrimSpace(s[i:]))

	numPart = strings.Replace(numPart, ",", ".", 1)
	if numPart == "" {
		return 0, fmt.Errorf("simtime: no numeric component in %q", s)
	}
	f, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("simtime: invalid numeric component %q: %w", numPart, err)
	}

	scaleUnit := defaultUnit
	if unitPart != "" {
		u, ok := units[unitPart]
		if !ok {
			return 0, fmt.Errorf("simtime: unknown time unit %q", unitPart)
		}
		scaleUnit = u
	}
	return scale(f, scaleUnit)
}

func scale(f float64, unit Duration) (Duration, error) {
	if f < 0 {
		return 0, fmt.Errorf("simtime: negative time value %v", f)
	}
	return Duration(f * float64(unit)), nil
}

// Interval is an inclusive [Lo, Hi] range of Duration, sampled uniformly at
// the moment it's consumed.
type Interval struct {
	Lo, Hi Duration
}

// ParseInterval reads a two-element [lo, hi] sequence, such as decoded from
// JSON into []any.
func ParseInterval(v []any, defaultUnit Duration) (Interval, error) {
	if len(v) != 2 {
		return Interval{}, fmt.Errorf("simtime: interval must have exactly 2 elements, got %d", len(v))
	}
	lo, err := Parse(v[0], defaultUnit)
	if err != nil {
		return Interval{}, fmt.Errorf("simtime: interval lo: %w", err)
	}
	hi, err := Parse(v[1], defaultUnit)
	if err != nil {
		return Interval{}, fmt.Errorf("simtime: interval hi: %w", err)
	}
	if lo > hi {
		return Interval{}, fmt.Errorf("simtime: interval lo (%d) > hi (%d)", lo, hi)
	}
	return Interval{Lo: lo, Hi: hi}, nil
}

// Sample draws a + uniform_int(0, b-a) from src. A degenerate [a,a]
// interval always returns a.
func (iv Interval) Sample(src func(n int64) int64) Duration {
	if iv.Hi == iv.Lo {
		return iv.Lo
	}
	return iv.Lo + Duration(src(int64(iv.Hi-iv.Lo)+1))
}

// Fixed reports whether the interval collapses to a single instant.
func (iv Interval) Fixed() bool { return iv.Lo == iv.Hi }
