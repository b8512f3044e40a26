package policy

import "github.com/joeycumines/go-schedsim/task"

type linuxONState struct {
	slice      int64
	execAtPick int64
}

// LinuxON is the "O(n)" Linux scheduler: Unix-nice priorities, a goodness
// function for selection, and time-scaled slices (spec.md §4.6).
type LinuxON struct {
	name      string
	rq        []*task.Task
	timeScale int64
}

// NewLinuxON constructs a Linux O(n) policy instance.
func NewLinuxON(name string) *LinuxON { return &LinuxON{name: name} }

func (p *LinuxON) Name() string { return p.name }

func (p *LinuxON) Init(params map[string]any) error {
	p.rq = p.rq[:0]
	p.timeScale = 1
	if v, ok := params["time_scale"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.timeScale = n
	}
	return nil
}

func (p *LinuxON) state(t *task.Task) *linuxONState {
	s, ok := t.PolicyState.(*linuxONState)
	if !ok {
		s = &linuxONState{}
		t.PolicyState = s
	}
	return s
}

func (p *LinuxON) sliceFor(priority int64) int64 {
	return (20 - priority) * 2 * p.timeScale
}

func (p *LinuxON) Enqueue(t *task.Task) {
	s := p.state(t)
	if s.slice == 0 {
		s.slice = p.sliceFor(t.Behavior.Priority)
	}
	t.OnRQ = true
	p.rq = append(p.rq, t)
}

func (p *LinuxON) Dequeue(t *task.Task) {
	for i, x := range p.rq {
		if x == t {
			p.rq = append(p.rq[:i], p.rq[i+1:]...)
			break
		}
	}
	t.OnRQ = false
}

// goodness is the O(n) scheduler's selection score.
func (p *LinuxON) goodness(t *task.Task) int64 {
	return p.state(t).slice + 20 - t.Behavior.Priority
}

func (p *LinuxON) recomputeAll() {
	for _, t := range p.rq {
		s := p.state(t)
		s.slice = roundDiv2(s.slice) + (20-t.Behavior.Priority)*2*p.timeScale
	}
}

func (p *LinuxON) maxGoodness() int64 {
	var m int64 = -1 << 62
	for _, t := range p.rq {
		if g := p.goodness(t); g > m {
			m = g
		}
	}
	return m
}

func (p *LinuxON) PickNext(prev *task.Task) *task.Task {
	if len(p.rq) == 0 {
		return nil
	}
	allExhausted := true
	for _, t := range p.rq {
		if p.state(t).slice > 0 {
			allExhausted = false
			break
		}
	}
	if allExhausted {
		p.recomputeAll()
	}
	best := 0
	var bestGoodness int64 = -1 << 62
	for i, t := range p.rq {
		if g := p.goodness(t); g > bestGoodness {
			bestGoodness = g
			best = i
		}
	}
	next := p.rq[best]
	p.rq = append(p.rq[:best], p.rq[best+1:]...)
	next.OnRQ = false
	p.state(next).execAtPick = next.ExecTime
	return next
}

func (p *LinuxON) PutPrev(prev *task.Task) {
	s := p.state(prev)
	s.slice -= prev.ExecTime - s.execAtPick
	if prev.Runnable {
		p.Enqueue(prev)
	}
}

func (p *LinuxON) CheckPreempt(current, newTask *task.Task) bool { return false }

func (p *LinuxON) TaskTick(current *task.Task) bool {
	return p.state(current).slice <= 0
}

func (p *LinuxON) ClassStats() map[string]any { return nil }
