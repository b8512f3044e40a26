package policy

import "github.com/joeycumines/go-schedsim/task"

// FCFS is a plain FIFO runqueue: no preemption by itself, no priority.
type FCFS struct {
	name string
	rq   []*task.Task
}

// NewFCFS constructs an FCFS policy instance with the given class name.
func NewFCFS(name string) *FCFS { return &FCFS{name: name} }

func (p *FCFS) Name() string { return p.name }

func (p *FCFS) Init(params map[string]any) error {
	p.rq = p.rq[:0]
	return nil
}

func (p *FCFS) Enqueue(t *task.Task) {
	t.OnRQ = true
	p.rq = append(p.rq, t)
}

func (p *FCFS) Dequeue(t *task.Task) {
	for i, x := range p.rq {
		if x == t {
			p.rq = append(p.rq[:i], p.rq[i+1:]...)
			break
		}
	}
	t.OnRQ = false
}

func (p *FCFS) PickNext(prev *task.Task) *task.Task {
	if len(p.rq) == 0 {
		return nil
	}
	next := p.rq[0]
	p.rq = p.rq[1:]
	next.OnRQ = false
	return next
}

func (p *FCFS) PutPrev(prev *task.Task) {
	if prev.Runnable {
		p.Enqueue(prev)
	}
}

func (p *FCFS) CheckPreempt(current, newTask *task.Task) bool { return false }

func (p *FCFS) TaskTick(current *task.Task) bool { return false }

func (p *FCFS) ClassStats() map[string]any { return nil }
