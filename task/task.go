// Package task models the simulated process: its identity, the four state
// booleans that must be kept consistent at every event-loop boundary
// (spec.md §3 invariants 1-4), and the behaviour FSM that drives its
// run/block/exit pattern.
package task

import (
	"math"

	"github.com/joeycumines/go-schedsim/internal/equeue"
)

// ID uniquely identifies a task for the lifetime of a single run.
type ID int64

// Task is mutated exclusively by the kernel (identity/lifecycle fields,
// picked_at, exec_time, run_log, latency_log, next_event) and by its own
// owning policy (the PolicyState field, the OnRQ flag as the task joins or
// leaves that policy's runqueue, and, for SJF, the RemainingRuntime estimate
// set at Enqueue); no other actor modifies a task (spec.md §3, "Lifecycle").
type Task struct {
	PID   ID
	PName string

	// ClassName is the scheduling-class (policy) name this task belongs
	// to; the kernel resolves it to a policy index, the task never holds
	// a pointer back to the policy (see DESIGN.md, "cyclic ownership").
	ClassName string

	Alive    bool
	Runnable bool
	OnRQ     bool
	Waiting  bool
	Current  bool

	// HasForked and HasExited disambiguate Spawned/Exited == 0 (forked or
	// exited at instant zero) from "never happened yet".
	HasForked bool
	HasExited bool

	Spawned    int64
	Exited     int64
	EnqueuedAt int64
	PickedAt   int64
	UpdatedAt  int64

	ExecCount        int
	ExecTime         int64
	WaitTime         int64
	RemainingRuntime int64

	RunLog     []int64
	LatencyLog []int64
	ExecLog    []int64

	Behavior Behavior
	Spec     Spec
	// NextBehaviorIndex is the position in Spec of the most recently
	// applied entry (0 = the seed); see Advance.
	NextBehaviorIndex int

	NextEvent       equeue.Handle
	StrictEndEvent  equeue.Handle
	NextEventIsExit bool // true when NextEvent is an Exit rather than a Block/Enqueue
	NextEventNice   bool // valid only when NextEventIsExit

	// PendingNiceCountExit/PendingStrictCountExit mark an exec_count exit
	// that's riding along on the task's ordinary Block cycle (spec.md
	// §4.4): nice behaves like a block that becomes an exit when it
	// fires; non-nice becomes an exit the moment the task is next
	// preempted instead of blocking normally.
	PendingNiceCountExit   bool
	PendingStrictCountExit bool

	Custom map[string]any

	// PolicyState is private storage for the owning policy (weight,
	// vruntime, prev_sum_exec, time_slice, Q-values, ...). The kernel
	// never reads or writes it.
	PolicyState any
}

// New constructs a task in its pre-fork state from a behaviour spec.
func New(pid ID, pname, class string, spec Spec) *Task {
	return &Task{
		PID:       pid,
		PName:     pname,
		ClassName: class,
		Spec:      spec,
		Behavior:  spec.Seed(),
		Custom:    map[string]any{},
	}
}

// Fork marks the task alive at the given instant. It does not make it
// runnable; the kernel does that via Enqueue semantics once the policy has
// accepted it.
func (t *Task) Fork(now int64) {
	t.Alive = true
	t.HasForked = true
	t.Spawned = now
	t.UpdatedAt = now
}

// Exit marks the task dead and enforces invariant 1: !alive => !runnable
// && !on_rq && !waiting.
func (t *Task) Exit(now int64) {
	t.Alive = false
	t.Runnable = false
	t.OnRQ = false
	t.Waiting = false
	t.Current = false
	t.Exited = now
	t.HasExited = true
}

// AdvanceBehavior runs the behaviour FSM for this task at pick time,
// mutating Behavior and NextBehaviorIndex, and reports any exit the
// final-entry switch requested.
func (t *Task) AdvanceBehavior(now int64) (exit PendingExit, fired bool) {
	return Advance(t.Spec, &t.Behavior, &t.NextBehaviorIndex, now, t.ExecTime, t.ExecCount)
}

// mean and population standard deviation of a log, used throughout §4.8.
func MeanStdDev(log []int64) (mean, stddev float64) {
	if len(log) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range log {
		sum += float64(v)
	}
	mean = sum / float64(len(log))
	var sqDiff float64
	for _, v := range log {
		d := float64(v) - mean
		sqDiff += d * d
	}
	stddev = math.Sqrt(sqDiff / float64(len(log)))
	return mean, stddev
}
