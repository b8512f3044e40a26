package policy

import (
	"github.com/joeycumines/go-schedsim/internal/rqtree"
	"github.com/joeycumines/go-schedsim/task"
)

// niceWeight is the standard Linux nice(-20..19) -> scheduling weight
// table (nice 0 -> 1024), indexed by nice+20.
var niceWeight = [40]int64{
	88761, 71755, 56483, 46273, 36291, 29154, 23254, 18705, 14949, 11916,
	9548, 7620, 6100, 4904, 3906, 3121, 2501, 1991, 1586, 1277,
	1024, 820, 655, 526, 423, 335, 272, 215, 172, 137,
	110, 87, 70, 56, 45, 36, 29, 23, 18, 15,
}

func weightOf(nice int64) int64 {
	idx := nice + 20
	if idx < 0 {
		idx = 0
	}
	if idx > 39 {
		idx = 39
	}
	return niceWeight[idx]
}

type fairState struct {
	vruntime    int64
	prevSumExec int64 // exec time (since this dispatch) as of the last tick/pick measurement
	execAtPick  int64 // task.ExecTime snapshot taken at the moment of dispatch
	seenBefore  bool  // false only until this task's first placement
}

// Fair is the CFS-like policy: an ordered map keyed by vruntime, with
// nice-weighted scaling of every time quantity (spec.md §4.6).
type Fair struct {
	name string
	rq   *rqtree.Tree[*task.Task]

	timeScale              int64
	minGranularity         int64
	schedLatency           int64
	schedWakeupGranularity int64
	schedMinGranularity    int64
	startDebit             bool
	schedNrLatency         int64

	minVruntime int64
	weightSum   int64 // sum of weight(nice) over every runnable fair task
	nrRunning   int
	current     *task.Task
	repicked    bool // the last PickNext handed back the running task itself
}

// NewFair constructs a Fair (CFS-like) policy instance.
func NewFair(name string) *Fair { return &Fair{name: name} }

func (p *Fair) Name() string { return p.name }

func (p *Fair) Init(params map[string]any) error {
	p.rq = rqtree.New[*task.Task]()
	p.timeScale = 1_000_000
	p.minVruntime = 0
	p.weightSum = 0
	p.nrRunning = 0
	p.current = nil

	if v, ok := params["time_scale"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.timeScale = n
	}
	p.minGranularity = p.timeScale
	p.schedLatency = 8 * p.timeScale
	p.schedWakeupGranularity = p.timeScale
	p.schedMinGranularity = p.timeScale
	p.startDebit = false

	if v, ok := params["min_granularity"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.minGranularity = n
	}
	if v, ok := params["sched_latency"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.schedLatency = n
	}
	if v, ok := params["sched_wakeup_granularity"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.schedWakeupGranularity = n
	}
	if v, ok := params["sched_min_granularity"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.schedMinGranularity = n
	}
	if v, ok := params["start_debit"]; ok {
		b, err := asBool(v)
		if err != nil {
			return err
		}
		p.startDebit = b
	}
	if p.schedWakeupGranularity > 0 {
		p.schedNrLatency = p.schedLatency / p.schedWakeupGranularity
	}
	return nil
}

func (p *Fair) state(t *task.Task) *fairState {
	s, ok := t.PolicyState.(*fairState)
	if !ok {
		s = &fairState{}
		t.PolicyState = s
	}
	return s
}

func (p *Fair) getLoad(t *task.Task) int64 { return weightOf(t.Behavior.Priority) }

// calcDeltaFair rescales delta from the nice-0 reference weight into
// task's own weight.
func (p *Fair) calcDeltaFair(delta int64, t *task.Task) int64 {
	if t.Behavior.Priority == 0 {
		return delta
	}
	return delta * weightOf(0) / p.getLoad(t)
}

func (p *Fair) schedPeriod(n int) int64 {
	if int64(n) > p.schedNrLatency {
		return int64(n) * p.minGranularity
	}
	return p.schedLatency
}

// schedSlice returns t's scaled share of the scheduling period, given the
// weight sum of every currently-runnable fair task (including t itself).
func (p *Fair) schedSlice(t *task.Task) int64 {
	nr := p.nrRunning
	if nr == 0 {
		nr = 1
	}
	period := p.schedPeriod(nr)
	totalWeight := p.weightSum
	if totalWeight == 0 {
		totalWeight = p.getLoad(t)
	}
	return period * p.getLoad(t) / totalWeight
}

func (p *Fair) schedVslice(t *task.Task) int64 {
	return p.calcDeltaFair(p.schedSlice(t), t)
}

// refreshMinVruntime recomputes min_vruntime from the currently-running
// task (if any and still runnable) and the tree's minimum key, and never
// lets it move backwards (spec.md §4.6, "monotonically non-decreasing").
func (p *Fair) refreshMinVruntime() {
	candidate := p.minVruntime
	have := false
	if p.current != nil && p.current.Runnable {
		candidate = p.state(p.current).vruntime
		have = true
	}
	if k, _, ok := p.rq.Min(); ok {
		if !have || k < candidate {
			candidate = k
		}
		have = true
	}
	if have && candidate > p.minVruntime {
		p.minVruntime = candidate
	}
}

// Enqueue places a new or waking task per spec.md §4.6's placement rule,
// without the original scheduler's transient on_rq-toggle trick: weightSum/nrRunning
// bookkeeping is updated directly around the placement computation
// instead of being inferred from a toggled on_rq flag (see DESIGN.md,
// Open Questions).
func (p *Fair) Enqueue(t *task.Task) {
	s := p.state(t)
	p.weightSum += p.getLoad(t)
	p.nrRunning++

	if !s.seenBefore {
		s.seenBefore = true
		base := p.minVruntime
		if p.startDebit {
			base += p.schedVslice(t)
		}
		if s.vruntime < base {
			s.vruntime = base
		}
	} else {
		// waking: gentle-sleepers bonus, clamped so it never regresses.
		bonus := p.minVruntime - p.schedLatency/2
		if s.vruntime < bonus {
			s.vruntime = bonus
		}
	}

	t.OnRQ = true
	p.rq.Insert(s.vruntime, t)
}

func (p *Fair) Dequeue(t *task.Task) {
	s := p.state(t)
	if p.rq.Remove(s.vruntime, t) {
		p.weightSum -= p.getLoad(t)
		p.nrRunning--
	}
	t.OnRQ = false
}

// reinsert puts a preempted-but-still-runnable task back into the tree at
// its current vruntime, unmodified: spec.md §4.6's new/waking placement
// rule (the gentle-sleepers bonus) governs entities becoming runnable via
// Enqueue, not a task that was merely descheduled mid-burst by PutPrev.
// Conflating the two would hand every preempted task a vruntime rebase
// toward min_vruntime, turning sustained preemption into an unbounded
// fairness bonus instead of the no-op a plain reinsert is meant to be.
// The task's weight has stayed in weightSum/nrRunning since its Enqueue,
// so it is not added again here.
func (p *Fair) reinsert(t *task.Task) {
	s := p.state(t)
	t.OnRQ = true
	p.rq.Insert(s.vruntime, t)
}

// PickNext returns the leftmost (minimum vruntime) node, or the currently
// running fair task if the tree is empty and it's still runnable.
func (p *Fair) PickNext(prev *task.Task) *task.Task {
	_, next, ok := p.rq.PopMin()
	p.repicked = false
	if !ok {
		if p.current != nil && p.current.Runnable {
			next = p.current
			p.repicked = true
		} else {
			p.current = nil
			return nil
		}
	} else {
		next.OnRQ = false
	}
	p.state(next).execAtPick = next.ExecTime
	p.state(next).prevSumExec = 0
	p.current = next
	p.refreshMinVruntime()
	return next
}

// PutPrev re-inserts a still-runnable task back into the tree, at its
// current vruntime (spec.md §4.6), without running the new/waking
// placement rule that only applies to a real Enqueue (see reinsert). A task
// that PickNext just handed back to run again stays out of the tree, and a
// task that is no longer runnable has its weight removed from the sums.
func (p *Fair) PutPrev(prev *task.Task) {
	if p.repicked && prev == p.current {
		p.repicked = false
		return
	}
	if prev == p.current {
		p.current = nil
	}
	if prev.Runnable {
		p.reinsert(prev)
	} else {
		p.weightSum -= p.getLoad(prev)
		p.nrRunning--
	}
	p.refreshMinVruntime()
}

// CheckPreempt computes the standard CFS wakeup-preemption test.
func (p *Fair) CheckPreempt(current, newTask *task.Task) bool {
	vdiff := p.state(current).vruntime - p.state(newTask).vruntime
	gran := p.calcDeltaFair(p.schedWakeupGranularity, newTask)
	return vdiff > gran
}

// TaskTick accrues vruntime for the current task and requests a
// reschedule per spec.md §4.6's ideal_runtime comparison.
func (p *Fair) TaskTick(current *task.Task) bool {
	s := p.state(current)
	sinceDispatch := current.ExecTime - s.execAtPick
	deltaExec := sinceDispatch - s.prevSumExec
	s.prevSumExec = sinceDispatch
	s.vruntime += p.calcDeltaFair(deltaExec, current)
	if current == p.current {
		p.refreshMinVruntime()
	}

	ideal := p.schedSlice(current)
	if deltaExec > ideal {
		return true
	}
	if deltaExec >= p.schedMinGranularity {
		if minKey, _, ok := p.rq.Min(); ok {
			if s.vruntime-minKey > ideal {
				return true
			}
		}
	}
	return false
}

func (p *Fair) ClassStats() map[string]any {
	return map[string]any{
		"min_vruntime": p.minVruntime,
		"nr_running":   p.nrRunning,
	}
}
