// Package policy defines the scheduling-class protocol (spec.md §4.5) and
// its implementations (§4.6). Every policy owns its runqueue and private
// per-task counters exclusively; the kernel mediates every call and never
// reaches into a policy's internal state (see DESIGN.md, "cyclic
// ownership").
package policy

import "github.com/joeycumines/go-schedsim/task"

// Policy is the six-method dispatch protocol every scheduling class
// satisfies.
//
// Interpretation of the "pick_next must call put_prev" rule (spec.md
// §4.5): rather than have one policy reach into another policy's method
// table directly (which would require a back-reference the design notes
// explicitly rule out), the kernel itself calls PutPrev on prev's owning
// policy exactly once per completed dispatch cycle, whichever policy (or
// the idle fallback) supplies the next task. This preserves the protocol's
// observable contract while keeping ownership strictly scheduler-mediated.
type Policy interface {
	// Name returns the scheduling-class name, matching task.ClassName.
	Name() string

	// Init resets internal state and validates params. It's called once
	// per run, in the kernel's active priority order (class_prio
	// promotions first), only for classes with at least one task.
	Init(params map[string]any) error

	// Enqueue makes t runnable and joins this runqueue.
	Enqueue(t *task.Task)

	// Dequeue removes t from this runqueue for any reason.
	Dequeue(t *task.Task)

	// PickNext selects the next task to run, or nil if this policy has
	// nothing runnable. prev is the task that was running before this
	// dispatch cycle (possibly nil, possibly not of this policy).
	PickNext(prev *task.Task) *task.Task

	// PutPrev finalises bookkeeping for a just-descheduled task that
	// belongs to this policy. Called by the kernel, never by another
	// policy.
	PutPrev(prev *task.Task)

	// CheckPreempt is invoked when newTask becomes runnable while a task
	// of this same policy is current. It returns true to request a
	// reschedule.
	CheckPreempt(current, newTask *task.Task) bool

	// TaskTick is invoked on every scheduler tick for the current task,
	// iff it belongs to this policy. It returns true to request a
	// reschedule.
	TaskTick(current *task.Task) bool

	// ClassStats reports whatever this policy wants rolled into
	// stats.ClassStats (spec.md §4.8); at minimum average latency and
	// its std.dev, which the kernel already tracks generically and
	// merges in regardless.
	ClassStats() map[string]any
}

// NrCounts is the generic per-class running/waiting counters every policy
// exposes to the kernel for the statistics module (spec.md §4.8, §8
// invariant 2). Embed it and keep it updated from Enqueue/Dequeue/PutPrev,
// or (simpler) let the kernel compute it generically — see kernel.Kernel,
// which does the latter so individual policies don't have to.
type NrCounts struct {
	NrRunning int
	NrWaiting int
}
