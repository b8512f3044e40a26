// Package stats accumulates and finalises the per-class and per-process
// rollups the kernel produces during a run (spec.md §4.8), plus the
// multi-run reducer (spec.md §4.8, "Multi-run reducer").
package stats

import (
	"math"

	"github.com/joeycumines/go-schedsim/task"
)

// ClassCounters are the running, per-class statistics the kernel flushes
// on every dispatch decision (spec.md §4.8).
type ClassCounters struct {
	NrRunning     int
	NrWaiting     int
	LatencySum    int64
	LatencyUpdate int64
	LatencyLog    []int64
}

// Flush accrues latency_sum for the elapsed interval since the last
// flush, weighted by the number of tasks currently waiting, and records a
// sample (spec.md §4.8: "flush latency_sum += (now - latency_update) *
// nr_waiting and append to latency_log").
func (c *ClassCounters) Flush(now int64) {
	c.LatencySum += (now - c.LatencyUpdate) * int64(c.NrWaiting)
	c.LatencyUpdate = now
	c.LatencyLog = append(c.LatencyLog, c.LatencySum)
}

// LatencyStats is a mean/std.dev pair, reported both generally and
// per-class.
type LatencyStats struct {
	Mean   float64
	StdDev float64
}

// ClassLatency computes LatencyStats from one class's latency_log.
func ClassLatency(c *ClassCounters) LatencyStats {
	mean, stddev := task.MeanStdDev(c.LatencyLog)
	return LatencyStats{Mean: mean, StdDev: stddev}
}

// TurnaroundStats reports the exited/running split and the turnaround
// (exited - spawned) distribution over exited tasks (spec.md §4.8).
type TurnaroundStats struct {
	Avg     float64
	Dev     float64
	Exited  int
	Running int
}

// Turnaround computes TurnaroundStats over the full task set. Tasks that
// never forked (spawn past sim_len, spec.md §8) are excluded from both
// counts.
func Turnaround(tasks []*task.Task) TurnaroundStats {
	var log []int64
	running := 0
	for _, t := range tasks {
		if !t.HasForked {
			continue
		}
		if t.HasExited {
			log = append(log, t.Exited-t.Spawned)
		} else {
			running++
		}
	}
	avg, dev := task.MeanStdDev(log)
	return TurnaroundStats{Avg: avg, Dev: dev, Exited: len(log), Running: running}
}

// ProcessStat is one task's final per-process rollup (spec.md §4.8,
// "Per-task").
type ProcessStat struct {
	PID              task.ID
	PName            string
	ClassName        string
	ExecTime         int64
	WaitTime         int64
	ExecCount        int
	RunMean, RunDev  float64
	LatMean, LatDev  float64
	ExecLog          []int64
	Exited           bool
	Turnaround       int64
}

// Process builds a ProcessStat from a finished or still-live task.
func Process(t *task.Task) ProcessStat {
	runMean, runDev := task.MeanStdDev(t.RunLog)
	latMean, latDev := task.MeanStdDev(t.LatencyLog)
	ps := ProcessStat{
		PID: t.PID, PName: t.PName, ClassName: t.ClassName,
		ExecTime: t.ExecTime, WaitTime: t.WaitTime, ExecCount: t.ExecCount,
		RunMean: runMean, RunDev: runDev,
		LatMean: latMean, LatDev: latDev,
		ExecLog: t.ExecLog,
	}
	if t.HasExited {
		ps.Exited = true
		ps.Turnaround = t.Exited - t.Spawned
	}
	return ps
}

// AverageLoad is the fraction of simulated time spent running a non-idle
// task (spec.md §4.8, invariant 6 bounds it to [0,1]).
func AverageLoad(nonIdleRunTime, totalSimTime int64) float64 {
	if totalSimTime <= 0 {
		return 0
	}
	return float64(nonIdleRunTime) / float64(totalSimTime)
}

// MultiRunReduction is the result of reducing N independent runs'
// aggregates (spec.md §4.8, "Multi-run reducer").
type MultiRunReduction struct {
	AverageOfAverages float64
	StdDevOfAverages  float64
	AverageOfStdDevs  float64
}

// Reduce computes the average-of-averages, std.dev-of-averages and
// average-of-std.devs across N per-run (mean, stddev) pairs.
func Reduce(perRun []LatencyStats) MultiRunReduction {
	if len(perRun) == 0 {
		return MultiRunReduction{}
	}
	var sumMeans, sumStdDevs float64
	for _, r := range perRun {
		sumMeans += r.Mean
		sumStdDevs += r.StdDev
	}
	n := float64(len(perRun))
	avgOfAvg := sumMeans / n
	avgOfDev := sumStdDevs / n

	var sqDiff float64
	for _, r := range perRun {
		d := r.Mean - avgOfAvg
		sqDiff += d * d
	}
	devOfAvg := math.Sqrt(sqDiff / n)

	return MultiRunReduction{AverageOfAverages: avgOfAvg, StdDevOfAverages: devOfAvg, AverageOfStdDevs: avgOfDev}
}
