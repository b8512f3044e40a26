package sim

import (
	"github.com/joeycumines/go-schedsim/config"
	"github.com/joeycumines/go-schedsim/kernel"
	"github.com/joeycumines/go-schedsim/stats"
	"github.com/joeycumines/go-schedsim/task"
)

// ClassLatency is one entry of Result.AverageLatency.ByClass.
type ClassLatency struct {
	Class string
	stats.LatencyStats
}

// AverageLatency is the general (all-classes) latency rollup plus a
// per-class breakdown (spec.md §4.8, §6 Result object).
type AverageLatency struct {
	General stats.LatencyStats
	ByClass []ClassLatency
}

// Result is the engine's per-run output (spec.md §6, "Result object").
// A partial run (finished=false) still reports ProcessList and SimEvents
// but carries zero-value aggregates, per SPEC_FULL's "partial-run result
// shape" supplement.
type Result struct {
	Name     string
	Finished bool

	RunTime         int64
	Length          int64
	ContextSwitches int
	SimEvents       int

	AverageLoad       float64
	AverageLatency    AverageLatency
	AverageTurnaround stats.TurnaroundStats

	ActiveClasses []string
	ClassStats    map[string]map[string]any
	ProcessStats  []stats.ProcessStat

	ProcessList []task.ID
}

func buildResult(cfg *config.Config, k *kernel.Kernel, finished bool) *Result {
	r := &Result{
		Name:            cfg.Name,
		Finished:        finished,
		Length:          cfg.SimLen,
		RunTime:         k.Now(),
		ContextSwitches: k.ContextSwitches(),
		SimEvents:       k.SimEvents(),
		ActiveClasses:   k.ActiveClasses(),
	}

	for _, t := range k.Tasks() {
		r.ProcessList = append(r.ProcessList, t.PID)
		if t.HasForked {
			r.ProcessStats = append(r.ProcessStats, stats.Process(t))
		}
	}

	if !finished {
		return r
	}

	r.AverageLoad = stats.AverageLoad(k.NonIdleRunTime(), k.Now())
	r.AverageTurnaround = stats.Turnaround(k.Tasks())

	var generalLog []int64
	r.ClassStats = map[string]map[string]any{}
	for _, name := range r.ActiveClasses {
		cc := k.ClassCounters(name)
		if cc == nil {
			continue
		}
		cl := stats.ClassLatency(cc)
		r.AverageLatency.ByClass = append(r.AverageLatency.ByClass, ClassLatency{Class: name, LatencyStats: cl})
		generalLog = append(generalLog, cc.LatencyLog...)

		merged := map[string]any{"average_latency_mean": cl.Mean, "average_latency_stddev": cl.StdDev}
		for k2, v := range k.ClassStats(name) {
			merged[k2] = v
		}
		r.ClassStats[name] = merged
	}
	mean, stddev := task.MeanStdDev(generalLog)
	r.AverageLatency.General = stats.LatencyStats{Mean: mean, StdDev: stddev}

	return r
}
