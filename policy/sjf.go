package policy

import (
	"github.com/joeycumines/go-schedsim/internal/rqtree"
	"github.com/joeycumines/go-schedsim/task"
)

// SJF implements both the non-preemptive Shortest-Job-First and, with
// EarlyPreemption enabled, Shortest-Remaining-Time-First.
type SJF struct {
	name            string
	rq              *rqtree.Tree[*task.Task]
	earlyPreemption bool
}

// NewSJF constructs an SJF policy instance.
func NewSJF(name string) *SJF { return &SJF{name: name} }

func (p *SJF) Name() string { return p.name }

func (p *SJF) Init(params map[string]any) error {
	p.rq = rqtree.New[*task.Task]()
	p.earlyPreemption = false
	if v, ok := params["early_preemption"]; ok {
		b, err := asBool(v)
		if err != nil {
			return err
		}
		p.earlyPreemption = b
	}
	return nil
}

// Enqueue synthesises remaining_runtime from the current behaviour's Run
// value when it's still zero — the policy's documented "cheat" (spec.md
// §4.6). See DESIGN.md for the open question on reconciling this with the
// FSM's own remaining_runtime computation at pick time.
func (p *SJF) Enqueue(t *task.Task) {
	if t.RemainingRuntime == 0 {
		t.RemainingRuntime = int64(t.Behavior.Run.Lo)
	}
	t.OnRQ = true
	p.rq.Insert(t.RemainingRuntime, t)
}

func (p *SJF) Dequeue(t *task.Task) {
	p.rq.Remove(t.RemainingRuntime, t)
	t.OnRQ = false
}

func (p *SJF) PickNext(prev *task.Task) *task.Task {
	_, next, ok := p.rq.PopMin()
	if !ok {
		return nil
	}
	next.OnRQ = false
	return next
}

func (p *SJF) PutPrev(prev *task.Task) {
	if prev.Runnable {
		p.Enqueue(prev)
	}
}

// CheckPreempt turns SJF into SRTF: when EarlyPreemption is enabled, a
// newly-runnable task with a strictly shorter remaining runtime than the
// current task requests a reschedule.
func (p *SJF) CheckPreempt(current, newTask *task.Task) bool {
	if !p.earlyPreemption {
		return false
	}
	return newTask.RemainingRuntime < current.RemainingRuntime
}

func (p *SJF) TaskTick(current *task.Task) bool { return false }

func (p *SJF) ClassStats() map[string]any { return nil }
