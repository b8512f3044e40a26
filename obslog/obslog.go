// Package obslog wires structured logging for the kernel's event loop
// using zerolog (spec.md, ambient stack). The zero value is a disabled
// logger: simulations are silent by default, matching the library's
// existing convention of an explicit opt-in before anything is emitted.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger with the event names the kernel emits.
// The zero value discards everything.
type Logger struct {
	zl      zerolog.Logger
	enabled bool
}

// New returns a Logger writing to w at the given level. Passing a nil w
// defaults to os.Stderr.
func New(w io.Writer, level zerolog.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	return Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger(), enabled: true}
}

// Disabled returns the zero-value, no-op Logger.
func Disabled() Logger { return Logger{} }

// Pick logs a scheduling decision: which class and task were chosen to
// run at a given simulated instant.
func (l Logger) Pick(now int64, class string, pid int64) {
	if !l.enabled {
		return
	}
	l.zl.Debug().
		Int64("now", now).
		Str("class", class).
		Int64("pid", pid).
		Msg("pick")
}

// Preempt logs a task being descheduled before its scheduled event fired.
func (l Logger) Preempt(now int64, class string, pid int64) {
	if !l.enabled {
		return
	}
	l.zl.Debug().
		Int64("now", now).
		Str("class", class).
		Int64("pid", pid).
		Msg("preempt")
}

// ProtocolViolation logs a detected scheduling-class protocol violation
// (spec.md §7); the kernel still returns the typed error, this is purely
// observational.
func (l Logger) ProtocolViolation(now int64, class, detail string) {
	if !l.enabled {
		return
	}
	l.zl.Warn().
		Int64("now", now).
		Str("class", class).
		Str("detail", detail).
		Msg("protocol_violation")
}

// Exit logs a task's departure from the simulation.
func (l Logger) Exit(now int64, pid int64, nice bool) {
	if !l.enabled {
		return
	}
	l.zl.Debug().
		Int64("now", now).
		Int64("pid", pid).
		Bool("nice", nice).
		Msg("exit")
}
