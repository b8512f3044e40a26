// Package schederr defines the simulator's typed error categories
// (spec.md §7), each carrying an Unwrap so callers can match against the
// underlying cause with errors.Is/errors.As (grounded on the teacher's
// eventloop.TypeError/RangeError family, eventloop/errors.go).
package schederr

import "fmt"

// ConfigError reports a malformed or invalid configuration document:
// schema violations, out-of-range values, unknown policy names, reserved
// field collisions.
type ConfigError struct {
	Path    string // dotted path into the config document, if known
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// ProtocolError reports a scheduling-class protocol violation detected by
// the kernel (spec.md §4.5, §7); the kernel raises it for an event of
// unknown kind. What policies return from PickNext and how often PutPrev
// runs are not checked, and a cycle with nothing runnable is not a
// violation: the kernel dispatches the idle task instead.
type ProtocolError struct {
	Class   string
	Message string
	Cause   error
}

func (e *ProtocolError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("protocol: class %q: %s", e.Class, e.Message)
	}
	return fmt.Sprintf("protocol: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// InvariantError reports a task-state invariant violation (spec.md §3,
// invariants 1-4): e.g. a runnable task that is not alive, or a current
// task that is also on a runqueue.
type InvariantError struct {
	PID     int64
	Message string
	Cause   error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant: task %d: %s", e.PID, e.Message)
}

func (e *InvariantError) Unwrap() error { return e.Cause }
