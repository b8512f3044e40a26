package kernel

import (
	"github.com/joeycumines/go-schedsim/policy"
	"github.com/joeycumines/go-schedsim/stats"
	"github.com/joeycumines/go-schedsim/task"
)

// Now returns the simulated clock's current instant.
func (k *Kernel) Now() int64 { return k.now }

// ContextSwitches returns the number of times the dispatched task changed
// across the run so far.
func (k *Kernel) ContextSwitches() int { return k.contextSwitches }

// SimEvents returns the number of events processed so far.
func (k *Kernel) SimEvents() int { return k.simEvents }

// NonIdleRunTime returns total simulated time spent running a non-idle
// task, for average_load (spec.md §4.8).
func (k *Kernel) NonIdleRunTime() int64 { return k.nonIdleRunTime }

// Tasks returns every registered task (including those that never
// forked), in registration order.
func (k *Kernel) Tasks() []*task.Task { return k.tasks }

// Order returns the active policy priority order.
func (k *Kernel) Order() []string { return k.order }

// ClassCounters returns the running per-class counters for name.
func (k *Kernel) ClassCounters(name string) *stats.ClassCounters { return k.classCounters[name] }

// ClassStats reports name's policy-contributed stats, or nil if name has
// no registered policy (a name that was never registered).
func (k *Kernel) ClassStats(name string) map[string]any {
	p, ok := k.policies[name]
	if !ok {
		return nil
	}
	return p.ClassStats()
}

// ActiveClasses returns the subset of k.Order() that owns at least one
// registered task.
func (k *Kernel) ActiveClasses() []string {
	used := map[string]bool{}
	for _, t := range k.tasks {
		used[t.ClassName] = true
	}
	var out []string
	for _, name := range k.order {
		if used[name] {
			out = append(out, name)
		}
	}
	return out
}

// RegisteredPolicy exposes a resolved policy by name for callers outside
// the kernel package.
func (k *Kernel) RegisteredPolicy(name string) (policy.Policy, bool) {
	p, ok := k.policies[name]
	return p, ok
}
