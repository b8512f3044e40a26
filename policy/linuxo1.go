package policy

import "github.com/joeycumines/go-schedsim/task"

const (
	o1NumPriorities = 140
	o1PriorityBase  = 120 // index = priority + 120; priority ranges -120..19
	o1RealtimeMax   = -21 // priorities <= this are realtime
)

type linuxO1State struct {
	slice      int64
	execAtPick int64
}

// o1Array is one of the "active"/"expired" sets: 140 FIFO lists indexed by
// priority+120, plus a presence bitmap for O(1) lowest-set-index lookup.
type o1Array struct {
	lists   [o1NumPriorities][]*task.Task
	present [o1NumPriorities]bool
}

func (a *o1Array) push(idx int, t *task.Task) {
	a.lists[idx] = append(a.lists[idx], t)
	a.present[idx] = true
}

func (a *o1Array) popFront(idx int) *task.Task {
	l := a.lists[idx]
	t := l[0]
	a.lists[idx] = l[1:]
	if len(a.lists[idx]) == 0 {
		a.present[idx] = false
	}
	return t
}

func (a *o1Array) remove(idx int, t *task.Task) bool {
	l := a.lists[idx]
	for i, x := range l {
		if x == t {
			a.lists[idx] = append(l[:i], l[i+1:]...)
			if len(a.lists[idx]) == 0 {
				a.present[idx] = false
			}
			return true
		}
	}
	return false
}

func (a *o1Array) lowestSetIndex() (int, bool) {
	for i := 0; i < o1NumPriorities; i++ {
		if a.present[i] {
			return i, true
		}
	}
	return 0, false
}

func (a *o1Array) empty() bool {
	_, ok := a.lowestSetIndex()
	return !ok
}

// LinuxO1 is the "O(1)" Linux scheduler: active/expired priority arrays
// that swap wholesale on exhaustion (spec.md §4.6).
type LinuxO1 struct {
	name            string
	active, expired *o1Array
	timeScale       int64
	index           map[*task.Task]int // priority index a task is currently stored at, for Dequeue
}

// NewLinuxO1 constructs a Linux O(1) policy instance.
func NewLinuxO1(name string) *LinuxO1 { return &LinuxO1{name: name} }

func (p *LinuxO1) Name() string { return p.name }

func (p *LinuxO1) Init(params map[string]any) error {
	p.active = &o1Array{}
	p.expired = &o1Array{}
	p.index = map[*task.Task]int{}
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

func (p *LinuxO1) state(t *task.Task) *linuxO1State {
	s, ok := t.PolicyState.(*linuxO1State)
	if !ok {
		s = &linuxO1State{}
		t.PolicyState = s
	}
	return s
}

func priorityIndex(priority int64) int {
	return int(priority) + o1PriorityBase
}

func (p *LinuxO1) sliceFor(priority int64) int64 {
	if priority <= o1RealtimeMax {
		return 900 * p.timeScale
	}
	return round((19.0-float64(priority))*20.4+5) * p.timeScale
}

func round(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}
	return int64(f - 0.5)
}

func (p *LinuxO1) Enqueue(t *task.Task) {
	s := p.state(t)
	if s.slice == 0 {
		s.slice = p.sliceFor(t.Behavior.Priority)
	}
	idx := priorityIndex(t.Behavior.Priority)
	t.OnRQ = true
	p.active.push(idx, t)
	p.index[t] = idx
}

func (p *LinuxO1) Dequeue(t *task.Task) {
	if idx, ok := p.index[t]; ok {
		if !p.active.remove(idx, t) {
			p.expired.remove(idx, t)
		}
		delete(p.index, t)
	}
	t.OnRQ = false
}

func (p *LinuxO1) PickNext(prev *task.Task) *task.Task {
	if p.active.empty() {
		if p.expired.empty() {
			return nil
		}
		p.active, p.expired = p.expired, p.active
	}
	idx, ok := p.active.lowestSetIndex()
	if !ok {
		return nil
	}
	next := p.active.popFront(idx)
	delete(p.index, next)
	next.OnRQ = false
	p.state(next).execAtPick = next.ExecTime
	return next
}

// PutPrev decrements by elapsed; on exhaustion it resets the slice and
// moves the task to the expired set, otherwise it rejoins active.
func (p *LinuxO1) PutPrev(prev *task.Task) {
	s := p.state(prev)
	s.slice -= prev.ExecTime - s.execAtPick
	if !prev.Runnable {
		return
	}
	idx := priorityIndex(prev.Behavior.Priority)
	prev.OnRQ = true
	if s.slice <= 0 {
		s.slice = p.sliceFor(prev.Behavior.Priority)
		p.expired.push(idx, prev)
		p.index[prev] = idx
	} else {
		p.active.push(idx, prev)
		p.index[prev] = idx
	}
}

// CheckPreempt reschedules when the new task's priority number is
// strictly less than the current's (lower number = higher priority).
func (p *LinuxO1) CheckPreempt(current, newTask *task.Task) bool {
	return newTask.Behavior.Priority < current.Behavior.Priority
}

func (p *LinuxO1) TaskTick(current *task.Task) bool {
	return p.state(current).slice <= 0
}

func (p *LinuxO1) ClassStats() map[string]any { return nil }
