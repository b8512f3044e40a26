package policy

import "github.com/joeycumines/go-schedsim/task"

// roundRobinState is the per-task private field the Round-Robin policy
// keeps (spec.md §3, "policy-private fields: ... time_slice ...").
type roundRobinState struct {
	timeSlice int64
}

// RoundRobin is a FIFO runqueue plus a single time_slice parameter shared
// by every task of this class.
type RoundRobin struct {
	name            string
	rq              []*task.Task
	timeSlice       int64
	tickGranularity int64
}

// NewRoundRobin constructs a Round-Robin policy instance.
func NewRoundRobin(name string) *RoundRobin { return &RoundRobin{name: name, tickGranularity: 1} }

// SetTickGranularity tells this policy how many nanoseconds elapse between
// Timer events, so TaskTick can decrement slices by the real tick period
// rather than assuming a fixed constant. The kernel calls this once after
// Init, from the timer_tick_len configuration value.
func (p *RoundRobin) SetTickGranularity(ns int64) {
	if ns > 0 {
		p.tickGranularity = ns
	}
}

func (p *RoundRobin) Name() string { return p.name }

func (p *RoundRobin) Init(params map[string]any) error {
	p.rq = p.rq[:0]
	p.timeSlice = 1000
	if v, ok := params["time_slice"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.timeSlice = n
	}
	return nil
}

func (p *RoundRobin) state(t *task.Task) *roundRobinState {
	s, ok := t.PolicyState.(*roundRobinState)
	if !ok {
		s = &roundRobinState{}
		t.PolicyState = s
	}
	return s
}

func (p *RoundRobin) Enqueue(t *task.Task) {
	p.state(t).timeSlice = p.timeSlice
	t.OnRQ = true
	p.rq = append(p.rq, t)
}

func (p *RoundRobin) Dequeue(t *task.Task) {
	for i, x := range p.rq {
		if x == t {
			p.rq = append(p.rq[:i], p.rq[i+1:]...)
			break
		}
	}
	t.OnRQ = false
}

func (p *RoundRobin) PickNext(prev *task.Task) *task.Task {
	if len(p.rq) == 0 {
		return nil
	}
	next := p.rq[0]
	p.rq = p.rq[1:]
	next.OnRQ = false
	return next
}

// PutPrev re-enqueues a still-runnable preempted task at the tail. A task
// preempted by slice exhaustion has its time_slice reset here, exactly as
// Enqueue would for a freshly woken task — otherwise a CPU-bound task
// that never blocks never passes through Enqueue again and would be
// rescheduled after a single tick on every subsequent turn.
func (p *RoundRobin) PutPrev(prev *task.Task) {
	if prev.Runnable {
		p.state(prev).timeSlice = p.timeSlice
		prev.OnRQ = true
		p.rq = append(p.rq, prev)
	}
}

func (p *RoundRobin) CheckPreempt(current, newTask *task.Task) bool { return false }

// TaskTick decrements the current task's slice and requests a reschedule
// on exhaustion.
func (p *RoundRobin) TaskTick(current *task.Task) bool {
	s := p.state(current)
	s.timeSlice -= p.tickGranularity
	return s.timeSlice <= 0
}

func (p *RoundRobin) ClassStats() map[string]any { return nil }
