// Package kernel implements the scheduler kernel (spec.md §4.7): the
// event loop, the kernel-mediated pick_next/put_prev dance, preemption
// handling, and the statistics flush tied to every dispatch decision.
package kernel

import (
	"math/rand"
	"strconv"

	"github.com/joeycumines/go-schedsim/config"
	"github.com/joeycumines/go-schedsim/internal/equeue"
	"github.com/joeycumines/go-schedsim/obslog"
	"github.com/joeycumines/go-schedsim/policy"
	"github.com/joeycumines/go-schedsim/schederr"
	"github.com/joeycumines/go-schedsim/stats"
	"github.com/joeycumines/go-schedsim/task"
)

// Kernel owns the simulated clock, the event queue, the live policy set
// and every task registered for one run. A Kernel is single-use: call New
// for each run (spec.md §5, "no shared state survives between runs except
// the policy priority ordering and the registered policy set" — those
// live in sim.Engine, not here).
type Kernel struct {
	cfg *config.Config

	now    int64
	queue  *equeue.Queue
	rng    *rand.Rand
	log    obslog.Logger

	current *task.Task
	live    int

	order    []string
	policies map[string]policy.Policy

	idleTask   *task.Task
	idlePolicy *policy.Idle

	tasks []*task.Task

	classCounters map[string]*stats.ClassCounters

	contextSwitches int
	simEvents       int
	nonIdleRunTime  int64
}

// New constructs a Kernel for exactly one run: it validates cfg, snapshots
// the registered policy set in the given priority order (merged with
// cfg.ClassPrio per spec.md §6), schedules every task's Fork, SimStart(0),
// SimStop(sim_len) and the first Timer, and calls Init on every policy
// with at least one task. rng is the kernel's single seedable RNG surface
// (spec.md §9, "Randomness"); callers that want a fresh seed per run pass
// rand.New(rand.NewSource(seed)), callers that want a continuing stream
// across a multi-run sweep pass the same *rand.Rand into every call.
func New(cfg *config.Config, registered map[string]policy.Policy, activeOrder []string, rng *rand.Rand, log obslog.Logger) (*Kernel, error) {
	order := config.PolicyOrder(activeOrder, cfg.ClassPrio)

	k := &Kernel{
		cfg:           cfg,
		queue:         equeue.New(),
		rng:           rng,
		log:           log,
		order:         order,
		policies:      map[string]policy.Policy{},
		classCounters: map[string]*stats.ClassCounters{},
	}
	for name, p := range registered {
		k.policies[name] = p
		k.classCounters[name] = &stats.ClassCounters{}
	}

	if _, err := k.queue.Insert(0, &Event{Kind: SimStart}); err != nil {
		return nil, err
	}

	usedClasses := map[string]bool{}
	for i, ps := range cfg.Processes {
		if _, ok := k.policies[ps.Policy]; !ok {
			k.log.ProtocolViolation(0, ps.Policy, "init: unknown policy for process "+ps.PName)
			return nil, &schederr.ConfigError{Message: "unknown policy " + ps.Policy + " for process " + ps.PName}
		}
		pname := ps.PName
		if pname == "" {
			pname = autoName(i)
		}
		t := task.New(task.ID(i+1), pname, ps.Policy, ps.Behavior)
		for key, val := range ps.Custom {
			t.Custom[key] = val
		}
		k.tasks = append(k.tasks, t)
		usedClasses[ps.Policy] = true

		spawnAt := int64(ps.Spawn.Sample(k.sample))
		if spawnAt <= cfg.SimLen {
			if _, err := k.queue.Insert(spawnAt, &Event{Kind: Fork, Task: t, SetOn: 0}); err != nil {
				return nil, err
			}
		}
	}

	idleSpec := task.Spec{{HasPriority: true, Priority: 0, HasRun: true, HasBlock: true}}
	k.idleTask = task.New(0, "idle", "idle", idleSpec)
	k.idleTask.Alive = true
	k.idleTask.Runnable = true
	k.idleTask.HasForked = true
	k.idlePolicy = policy.NewIdle("idle", k.idleTask)
	k.current = k.idleTask

	for _, name := range order {
		if usedClasses[name] {
			if err := k.policies[name].Init(cfg.ClassParams[name]); err != nil {
				return nil, err
			}
			if rr, ok := k.policies[name].(*policy.RoundRobin); ok {
				rr.SetTickGranularity(cfg.TimerTickLen)
			}
		}
	}

	if _, err := k.queue.Insert(cfg.SimLen, &Event{Kind: SimStop}); err != nil {
		return nil, err
	}
	if cfg.TimerTickLen > 0 {
		if _, err := k.queue.Insert(cfg.TimerTickLen, &Event{Kind: Timer}); err != nil {
			return nil, err
		}
	}

	return k, nil
}

func autoName(i int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if i < len(letters) {
		return string(letters[i])
	}
	return "P" + strconv.Itoa(i)
}

// sample is the Kernel's single seedable RNG surface (spec.md §9,
// "Randomness"): every interval sample in the simulation draws from it.
func (k *Kernel) sample(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return k.rng.Int63n(n)
}

func (k *Kernel) resolvePolicy(className string) (policy.Policy, bool) {
	if className == "idle" {
		return k.idlePolicy, true
	}
	p, ok := k.policies[className]
	return p, ok
}

func (k *Kernel) flushAll() {
	for _, name := range k.order {
		k.classCounters[name].Flush(k.now)
	}
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return len(order)
}
