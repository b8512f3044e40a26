package task

import "github.com/joeycumines/go-schedsim/internal/simtime"

// SwitchKind names which of the three switch conditions a behaviour entry
// carries (spec.md §3, "Behaviour spec").
type SwitchKind int

const (
	// SwitchNone marks the first behaviour entry, which has no switch
	// condition of its own.
	SwitchNone SwitchKind = iota
	// SwitchSimExec fires once the simulation clock reaches Value.
	SwitchSimExec
	// SwitchProcExec fires once the task's cumulative exec_time reaches
	// Value.
	SwitchProcExec
	// SwitchExecCount fires once the task's exec_count reaches Value.
	SwitchExecCount
)

// Switch is the single condition attached to every non-first behaviour
// entry.
type Switch struct {
	Kind  SwitchKind
	Value int64
}

// Satisfied reports whether the condition holds given the task's current
// counters at the moment of a pick.
func (s Switch) Satisfied(now, execTime int64, execCount int) bool {
	switch s.Kind {
	case SwitchSimExec:
		return now >= s.Value
	case SwitchProcExec:
		return execTime >= s.Value
	case SwitchExecCount:
		return int64(execCount) >= s.Value
	default:
		return false
	}
}

// Entry is one element of a behaviour spec. The first entry of every spec
// must have Priority, Run and Block all present (Has* all true) and no
// switch condition. Every subsequent entry is either an update (one or
// more of Priority/Run/Block present) or Final, and always carries exactly
// one Switch.
type Entry struct {
	HasPriority bool
	Priority    int64

	HasRun bool
	Run    simtime.Interval

	HasBlock bool
	Block    simtime.Interval

	Final     bool
	EndNicely bool

	Switch Switch
}

// Spec is an ordered behaviour list, as attached to a task.
type Spec []Entry

// Behavior is the overlay of the currently-active run/block/priority
// values, built by applying Spec entries in order as their switches fire.
type Behavior struct {
	Priority int64
	Run      simtime.Interval
	Block    simtime.Interval
}

// Seed returns the Behavior derived from entry 0, which must be fully
// populated.
func (s Spec) Seed() Behavior {
	if len(s) == 0 {
		return Behavior{}
	}
	e := s[0]
	return Behavior{Priority: e.Priority, Run: e.Run, Block: e.Block}
}

// ExitKind distinguishes which switch condition produced an exit, which
// controls how its exit instant is computed (spec.md §4.4).
type ExitKind int

const (
	ExitNone ExitKind = iota
	ExitSimExec
	ExitProcExec
	ExitExecCount
)

// PendingExit describes an exit a Final behaviour entry has requested.
// Threshold carries the firing entry's switch value, since the kernel
// needs it to compute the exit's scheduled instant (spec.md §4.4).
type PendingExit struct {
	Kind      ExitKind
	Nice      bool
	Threshold int64
}

func switchToExitKind(k SwitchKind) ExitKind {
	switch k {
	case SwitchSimExec:
		return ExitSimExec
	case SwitchProcExec:
		return ExitProcExec
	case SwitchExecCount:
		return ExitExecCount
	default:
		return ExitNone
	}
}

// Advance applies at most one non-final switch and then, immediately
// after, at most one final switch (spec.md §4.4: "At most one non-final
// switch per pick; the final switch may follow it"). *index is the position
// in spec of the most recently applied entry (0 for the seed entry), so the
// next candidate is spec[*index+1]. It mutates behavior and index in place
// and returns a PendingExit if a final entry fired.
func Advance(spec Spec, behavior *Behavior, index *int, now, execTime int64, execCount int) (exit PendingExit, fired bool) {
	if next := *index + 1; next < len(spec) {
		e := spec[next]
		if !e.Final && e.Switch.Satisfied(now, execTime, execCount) {
			if e.HasPriority {
				behavior.Priority = e.Priority
			}
			if e.HasRun {
				behavior.Run = e.Run
			}
			if e.HasBlock {
				behavior.Block = e.Block
			}
			*index++
		}
	}
	if next := *index + 1; next < len(spec) {
		e := spec[next]
		if e.Final && e.Switch.Satisfied(now, execTime, execCount) {
			*index++
			return PendingExit{Kind: switchToExitKind(e.Switch.Kind), Nice: e.EndNicely, Threshold: e.Switch.Value}, true
		}
	}
	return PendingExit{}, false
}
