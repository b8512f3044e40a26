package policy

import "github.com/joeycumines/go-schedsim/task"

type linuxOriginalState struct {
	slice      int64
	execAtPick int64 // task.ExecTime snapshot taken when this task was last dispatched
}

// LinuxOriginal is a FIFO runqueue where priority is converted to an
// integer time slice, and pick_next scans for the maximum remaining slice
// (the pre-O(1) Linux scheduler, spec.md §4.6).
type LinuxOriginal struct {
	name string
	rq   []*task.Task
}

// NewLinuxOriginal constructs a Linux-Original policy instance.
func NewLinuxOriginal(name string) *LinuxOriginal { return &LinuxOriginal{name: name} }

func (p *LinuxOriginal) Name() string { return p.name }

func (p *LinuxOriginal) Init(params map[string]any) error {
	p.rq = p.rq[:0]
	return nil
}

func (p *LinuxOriginal) state(t *task.Task) *linuxOriginalState {
	s, ok := t.PolicyState.(*linuxOriginalState)
	if !ok {
		s = &linuxOriginalState{}
		t.PolicyState = s
	}
	return s
}

func zeroClamp(p int64) int64 {
	if p < 0 {
		return 0
	}
	return p
}

func (p *LinuxOriginal) Enqueue(t *task.Task) {
	s := p.state(t)
	if s.slice == 0 {
		s.slice = zeroClamp(t.Behavior.Priority)
	}
	t.OnRQ = true
	p.rq = append(p.rq, t)
}

func (p *LinuxOriginal) Dequeue(t *task.Task) {
	for i, x := range p.rq {
		if x == t {
			p.rq = append(p.rq[:i], p.rq[i+1:]...)
			break
		}
	}
	t.OnRQ = false
}

// recomputeAll applies slice = round(slice/2) + priority to every task
// currently owned by this policy (spec.md §4.6: "recompute every task's
// slice as round(slice/2) + priority, across all tasks owned by this
// policy").
func (p *LinuxOriginal) recomputeAll() {
	for _, t := range p.rq {
		s := p.state(t)
		s.slice = roundDiv2(s.slice) + t.Behavior.Priority
	}
}

func roundDiv2(v int64) int64 {
	if v >= 0 {
		return (v + 1) / 2
	}
	return -((-v + 1) / 2)
}

func (p *LinuxOriginal) PickNext(prev *task.Task) *task.Task {
	if len(p.rq) == 0 {
		return nil
	}
	if p.maxSlice() <= 0 {
		p.recomputeAll()
	}
	idx := p.argmaxSlice()
	next := p.rq[idx]
	p.rq = append(p.rq[:idx], p.rq[idx+1:]...)
	next.OnRQ = false
	p.state(next).execAtPick = next.ExecTime
	return next
}

func (p *LinuxOriginal) maxSlice() int64 {
	var m int64 = -1 << 62
	for _, t := range p.rq {
		if s := p.state(t).slice; s > m {
			m = s
		}
	}
	return m
}

func (p *LinuxOriginal) argmaxSlice() int {
	best := 0
	var bestSlice int64 = -1 << 62
	for i, t := range p.rq {
		if s := p.state(t).slice; s > bestSlice {
			bestSlice = s
			best = i
		}
	}
	return best
}

// PutPrev decrements the task's slice by the time it spent running.
func (p *LinuxOriginal) PutPrev(prev *task.Task) {
	s := p.state(prev)
	s.slice -= prev.ExecTime - s.execAtPick
	if prev.Runnable {
		p.Enqueue(prev)
	}
}

func (p *LinuxOriginal) CheckPreempt(current, newTask *task.Task) bool { return false }

func (p *LinuxOriginal) TaskTick(current *task.Task) bool {
	s := p.state(current)
	return s.slice <= 0
}

func (p *LinuxOriginal) ClassStats() map[string]any { return nil }
