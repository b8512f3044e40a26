package kernel

import "github.com/joeycumines/go-schedsim/task"

// Kind names one of the event-queue's tagged-sum variants (spec.md §3,
// "Event"). Pick is log-only and never queued.
type Kind int

const (
	SimStart Kind = iota
	SimStop
	Fork
	Enqueue
	Block
	Exit
	Timer
	Pick
)

func (k Kind) String() string {
	switch k {
	case SimStart:
		return "sim_start"
	case SimStop:
		return "sim_stop"
	case Fork:
		return "fork"
	case Enqueue:
		return "enqueue"
	case Block:
		return "block"
	case Exit:
		return "exit"
	case Timer:
		return "timer"
	case Pick:
		return "pick"
	default:
		return "unknown"
	}
}

// Event is the single concrete type carried through the event queue, in
// place of the class hierarchy a non-Go original would use (spec.md §9,
// "Variant events vs. inheritance").
type Event struct {
	Kind Kind
	Task *task.Task

	// SetOn records the instant at which this event was placed into the
	// queue, for diagnostics. Only the events placed by New (all at
	// instant 0) set it; events the dispatch loop inserts later leave it
	// at zero.
	SetOn int64

	// ExitKind/ExitNice mirror the PendingExit that produced an Exit
	// event, so Exit dispatch doesn't need to re-run the behaviour FSM.
	ExitKind task.ExitKind
	ExitNice bool
}
