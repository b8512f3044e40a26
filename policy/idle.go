package policy

import "github.com/joeycumines/go-schedsim/task"

// Idle is the scheduler's bottom rung: a single sentinel task that is
// always runnable and never preempts or ticks (spec.md §4.7, "Idle
// policy"). The kernel registers exactly one idle task against it and
// never routes real tasks through it.
type Idle struct {
	name string
	task *task.Task
}

// NewIdle constructs the idle policy, bound to the given idle task.
func NewIdle(name string, idleTask *task.Task) *Idle {
	return &Idle{name: name, task: idleTask}
}

func (p *Idle) Name() string { return p.name }

func (p *Idle) Init(params map[string]any) error { return nil }

func (p *Idle) Enqueue(t *task.Task) { t.OnRQ = true }

func (p *Idle) Dequeue(t *task.Task) { t.OnRQ = false }

// PickNext always hands back the idle task: it has nothing else to run
// and never declines to run.
func (p *Idle) PickNext(prev *task.Task) *task.Task {
	p.task.OnRQ = false
	return p.task
}

func (p *Idle) PutPrev(prev *task.Task) { prev.OnRQ = false }

func (p *Idle) CheckPreempt(current, newTask *task.Task) bool { return false }

func (p *Idle) TaskTick(current *task.Task) bool { return false }

func (p *Idle) ClassStats() map[string]any { return nil }
