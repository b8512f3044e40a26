package kernel

import (
	"context"

	"github.com/joeycumines/go-schedsim/internal/equeue"
	"github.com/joeycumines/go-schedsim/schederr"
	"github.com/joeycumines/go-schedsim/task"
)

// RunMode selects one of the three partial-run shapes the engine supports
// (spec.md §4.7, "Partial runs").
type RunMode int

const (
	RunToCompletion RunMode = iota
	RunUntilTime
	RunSteps
)

// Run drives the event loop under the given mode. For RunUntilTime, limit
// is the simulated instant to stop at (inclusive of events scheduled
// exactly at it); for RunSteps, limit is the number of timestamps to
// consume. Run returns finished=true only once a SimStop has actually
// been dispatched. ctx cancellation implements Engine.break() (spec.md
// §6): it returns a partial, unfinished result rather than an error.
func (k *Kernel) Run(ctx context.Context, mode RunMode, limit int64) (finished bool, err error) {
	var steps int64
	var lastStepAt int64
	haveLastStep := false

	for {
		if err := ctx.Err(); err != nil {
			return false, nil
		}
		at, val, ok := k.queue.PeekNext()
		if !ok {
			return false, nil
		}
		if mode == RunUntilTime && at > limit {
			return false, nil
		}
		if mode == RunSteps {
			if haveLastStep && at != lastStepAt {
				steps++
				if steps >= limit {
					return false, nil
				}
			}
			lastStepAt, haveLastStep = at, true
		}

		_, val, _ = k.queue.PopNext()
		k.now = at
		k.simEvents++
		ev := val.(*Event)

		stop, err := k.dispatch(ev)
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}
}

func (k *Kernel) dispatch(ev *Event) (stop bool, err error) {
	switch ev.Kind {
	case SimStart:
		return false, k.pickNext()

	case Fork:
		t := ev.Task
		t.Fork(k.now)
		k.live++
		k.classCounters[t.ClassName].Flush(k.now)
		k.markRunnable(t)
		p, ok := k.resolvePolicy(t.ClassName)
		if !ok {
			k.log.ProtocolViolation(k.now, t.ClassName, "fork: unknown policy")
			return false, &schederr.ConfigError{Message: "unknown policy " + t.ClassName}
		}
		p.Enqueue(t)
		t.EnqueuedAt = k.now
		k.markWaiting(t)
		return false, k.checkPreempt(t)

	case Enqueue:
		t := ev.Task
		k.classCounters[t.ClassName].Flush(k.now)
		k.markRunnable(t)
		p, ok := k.resolvePolicy(t.ClassName)
		if !ok {
			k.log.ProtocolViolation(k.now, t.ClassName, "enqueue: unknown policy")
			return false, &schederr.ConfigError{Message: "unknown policy " + t.ClassName}
		}
		p.Enqueue(t)
		t.EnqueuedAt = k.now
		k.markWaiting(t)
		return false, k.checkPreempt(t)

	case Block:
		t := ev.Task
		k.accrueExec(t)
		k.doBlock(t)
		return false, k.pickNext()

	case Exit:
		t := ev.Task
		if t.Current {
			k.accrueExec(t)
		}
		wasCurrent := t.Current
		k.doExit(t, ev.ExitNice)
		if wasCurrent {
			return false, k.pickNext()
		}
		return false, nil

	case Timer:
		if k.current != nil && k.current != k.idleTask {
			p, ok := k.resolvePolicy(k.current.ClassName)
			if ok && p.TaskTick(k.current) {
				if err := k.pickNext(); err != nil {
					return false, err
				}
			}
		}
		if _, err := k.queue.Insert(k.now+k.cfg.TimerTickLen, &Event{Kind: Timer}); err != nil {
			return false, err
		}
		return false, nil

	case SimStop:
		return true, nil

	default:
		k.log.ProtocolViolation(k.now, "", "dispatch: unknown event kind")
		return false, &schederr.ProtocolError{Message: "unknown event kind"}
	}
}

// accrueExec folds the time since t's last dispatch into its exec
// counters. It must run exactly once per continuous dispatch, either here
// (the task's own event reached the front of the queue undisturbed) or
// inside handlePreempt (some other event triggered a reschedule first).
func (k *Kernel) accrueExec(t *task.Task) {
	elapsed := k.now - t.PickedAt
	t.ExecTime += elapsed
	if t != k.idleTask {
		k.nonIdleRunTime += elapsed
		t.RunLog = append(t.RunLog, elapsed)
		t.ExecLog = append(t.ExecLog, t.PickedAt)
	}
	t.RemainingRuntime -= elapsed
	t.UpdatedAt = k.now
}

func (k *Kernel) markRunnable(t *task.Task) {
	if !t.Runnable {
		t.Runnable = true
		k.classCounters[t.ClassName].NrRunning++
	}
}

func (k *Kernel) clearRunnable(t *task.Task) {
	if t.Runnable {
		t.Runnable = false
		k.classCounters[t.ClassName].NrRunning--
	}
	k.clearWaiting(t)
}

func (k *Kernel) markWaiting(t *task.Task) {
	if !t.Waiting {
		t.Waiting = true
		k.classCounters[t.ClassName].NrWaiting++
	}
}

func (k *Kernel) clearWaiting(t *task.Task) {
	if t.Waiting {
		t.Waiting = false
		k.classCounters[t.ClassName].NrWaiting--
		t.WaitTime += k.now - t.EnqueuedAt
	}
}

// doBlock transitions t into the blocked state and schedules its wakeup,
// unless a pending nice exec_count exit converts this block into an exit
// (spec.md §4.4: "behaves like a block; actual exit happens on normal
// block if condition held").
func (k *Kernel) doBlock(t *task.Task) {
	t.RemainingRuntime = 0
	k.clearRunnable(t)
	if t.OnRQ {
		if p, ok := k.resolvePolicy(t.ClassName); ok {
			p.Dequeue(t)
		}
		t.OnRQ = false
	}
	if t.PendingNiceCountExit {
		t.PendingNiceCountExit = false
		k.doExit(t, true)
		return
	}
	at := k.now + int64(t.Behavior.Block.Sample(k.sample))
	h, _ := k.queue.Insert(at, &Event{Kind: Enqueue, Task: t})
	t.NextEvent = h
	t.NextEventIsExit = false
}

// doExit tears down a task: dequeues it if still on a runqueue, marks it
// dead, decrements the live count, and cancels whichever of
// next_event/strict_end_event didn't just fire. nice records whether the
// task ended via its "nice" (cooperative) exit shape, for the exit log.
func (k *Kernel) doExit(t *task.Task, nice bool) {
	if t.OnRQ {
		if p, ok := k.resolvePolicy(t.ClassName); ok {
			p.Dequeue(t)
		}
	}
	k.clearRunnable(t)
	t.Exit(k.now)
	k.live--
	if !t.NextEvent.IsZero() {
		k.queue.Delete(t.NextEvent)
		t.NextEvent = equeue.Handle{}
	}
	if !t.StrictEndEvent.IsZero() {
		k.queue.Delete(t.StrictEndEvent)
		t.StrictEndEvent = equeue.Handle{}
	}
	k.log.Exit(k.now, int64(t.PID), nice)
}

// handlePreempt folds in elapsed exec time for the running task and
// either processes its due transition inline (remaining_runtime exhausted
// or a pending strict exec_count exit fires) or cancels its scheduled
// event and marks it waiting again for a genuine preemption.
func (k *Kernel) handlePreempt(prev *task.Task) (handled bool, err error) {
	k.accrueExec(prev)

	// The idle task never carries a real remaining_runtime or a scheduled
	// next_event (spec.md §4.7, "Idle policy"): its RemainingRuntime sits
	// at its zero value indefinitely, which would otherwise look
	// indistinguishable from a genuine burst exhausting exactly as idle is
	// displaced. Treat stepping off idle as a plain preemption with
	// nothing to cancel or re-enqueue, never as a block/exit transition.
	if prev == k.idleTask {
		return false, nil
	}

	if prev.PendingStrictCountExit {
		prev.PendingStrictCountExit = false
		if !prev.NextEvent.IsZero() {
			k.queue.Delete(prev.NextEvent)
			prev.NextEvent = equeue.Handle{}
		}
		k.doExit(prev, false)
		return true, nil
	}

	if prev.RemainingRuntime <= 0 {
		wasExit := prev.NextEventIsExit
		wasNice := prev.NextEventNice
		if !prev.NextEvent.IsZero() {
			k.queue.Delete(prev.NextEvent)
			prev.NextEvent = equeue.Handle{}
		}
		if wasExit {
			k.doExit(prev, wasNice)
		} else {
			k.doBlock(prev)
		}
		return true, nil
	}

	if !prev.NextEvent.IsZero() {
		k.queue.Delete(prev.NextEvent)
		prev.NextEvent = equeue.Handle{}
	}
	k.log.Preempt(k.now, prev.ClassName, int64(prev.PID))
	k.classCounters[prev.ClassName].Flush(k.now)
	k.markWaiting(prev)
	return false, nil
}

// checkPreempt implements spec.md §4.7's check_preempt(new): same-policy
// tasks delegate to that policy; across policies, a strictly
// higher-priority (earlier in k.order) class always preempts.
func (k *Kernel) checkPreempt(newTask *task.Task) error {
	if k.current == nil {
		return k.pickNext()
	}
	if k.current == k.idleTask {
		return k.pickNext()
	}
	if k.current.ClassName == newTask.ClassName {
		p, ok := k.resolvePolicy(k.current.ClassName)
		if ok && p.CheckPreempt(k.current, newTask) {
			return k.pickNext()
		}
		return nil
	}
	if indexOf(k.order, newTask.ClassName) < indexOf(k.order, k.current.ClassName) {
		return k.pickNext()
	}
	return nil
}

// pickNext is the kernel-side dispatch cycle (spec.md §4.7, "pick_next").
func (k *Kernel) pickNext() error {
	prev := k.current
	if prev != nil && prev.Runnable {
		handled, err := k.handlePreempt(prev)
		if err != nil {
			return err
		}
		if handled {
			// prev blocked or exited inline; it is no longer runnable, so
			// this second cycle goes straight to picking a successor.
			return k.pickNext()
		}
	}

	var picked *task.Task
	pickedClass := "idle"
	for _, name := range k.order {
		p := k.policies[name]
		// A class with no runnable task has nothing to offer, and a class
		// with no tasks at all was never Init-ed by New.
		if picked == nil && k.classCounters[name].NrRunning > 0 {
			if cand := p.PickNext(prev); cand != nil {
				picked = cand
				pickedClass = name
			}
		}
		k.classCounters[name].Flush(k.now)
	}
	if picked == nil {
		picked = k.idleTask
	}

	if prev != nil {
		if prevPolicy, ok := k.resolvePolicy(prev.ClassName); ok {
			prevPolicy.PutPrev(prev)
		}
	}

	if picked != prev {
		k.contextSwitches++
	}

	if prev != nil {
		prev.Current = false
	}
	k.current = picked
	picked.Current = true
	picked.OnRQ = false
	k.clearWaiting(picked)
	k.log.Pick(k.now, pickedClass, int64(picked.PID))

	if picked == k.idleTask {
		return nil
	}

	picked.PickedAt = k.now
	picked.ExecCount++

	exit, fired := picked.AdvanceBehavior(k.now)
	if fired && exit.Kind != task.ExitNone {
		return k.applyExit(picked, exit)
	}
	k.scheduleOrdinaryDispatch(picked)
	return nil
}

// scheduleOrdinaryDispatch computes remaining_runtime (carried across a
// preemption, or freshly sampled) and schedules the task's Block.
func (k *Kernel) scheduleOrdinaryDispatch(t *task.Task) {
	if t.RemainingRuntime <= 0 {
		t.RemainingRuntime = int64(t.Behavior.Run.Sample(k.sample))
	}
	h, _ := k.queue.Insert(k.now+t.RemainingRuntime, &Event{Kind: Block, Task: t})
	t.NextEvent = h
	t.NextEventIsExit = false
}

// applyExit schedules whatever the fired PendingExit requires (spec.md
// §4.4, "Exit event semantics").
func (k *Kernel) applyExit(t *task.Task, exit task.PendingExit) error {
	switch exit.Kind {
	case task.ExitProcExec:
		var at int64
		if exit.Nice {
			at = k.now + int64(t.Behavior.Run.Sample(k.sample))
		} else {
			if exit.Threshold > t.ExecTime {
				at = k.now + (exit.Threshold - t.ExecTime)
			} else {
				at = k.now + 1
			}
		}
		h, err := k.queue.Insert(at, &Event{Kind: Exit, Task: t, ExitKind: exit.Kind, ExitNice: exit.Nice})
		if err != nil {
			return err
		}
		t.NextEvent = h
		t.NextEventIsExit = true
		t.NextEventNice = exit.Nice
		return nil

	case task.ExitSimExec:
		if exit.Nice {
			at := k.now + int64(t.Behavior.Run.Sample(k.sample))
			if at >= exit.Threshold {
				h, err := k.queue.Insert(at, &Event{Kind: Exit, Task: t, ExitKind: exit.Kind, ExitNice: true})
				if err != nil {
					return err
				}
				t.NextEvent = h
				t.NextEventIsExit = true
				t.NextEventNice = true
				return nil
			}
			k.scheduleOrdinaryDispatch(t)
			return nil
		}
		if t.StrictEndEvent.IsZero() {
			at := exit.Threshold
			if k.now > at {
				at = k.now
			}
			h, err := k.queue.Insert(at, &Event{Kind: Exit, Task: t, ExitKind: exit.Kind, ExitNice: false})
			if err != nil {
				return err
			}
			t.StrictEndEvent = h
		}
		k.scheduleOrdinaryDispatch(t)
		return nil

	case task.ExitExecCount:
		if exit.Nice {
			t.PendingNiceCountExit = true
		} else {
			t.PendingStrictCountExit = true
		}
		k.scheduleOrdinaryDispatch(t)
		return nil

	default:
		return nil
	}
}
