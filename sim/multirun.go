package sim

import (
	"context"
	"math/rand"

	"github.com/joeycumines/go-schedsim/config"
	"github.com/joeycumines/go-schedsim/stats"
)

// MultiRunResult reduces N independent runs' aggregates (spec.md §4.8,
// "Multi-run reducer"; SPEC_FULL's "configurable reseed-per-run vs.
// continue-stream RNG knob", spec.md §9 "Randomness").
type MultiRunResult struct {
	Runs      []*Result
	Latency   stats.MultiRunReduction
	AverageOfAverageLoad float64
}

// MultiRun executes n independent runs of cfg against this Engine's
// current registered/active policy set and reduces their aggregates. If
// reseedPerRun is true, run i draws from a fresh RNG seeded with seed+i;
// otherwise every run continues drawing from one stream seeded with seed.
func (e *Engine) MultiRun(ctx context.Context, cfg *config.Config, n int, seed int64, reseedPerRun bool) (*MultiRunResult, error) {
	out := &MultiRunResult{}
	var perRun []stats.LatencyStats
	var loadSum float64

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		runRng := rng
		if reseedPerRun {
			runRng = rand.New(rand.NewSource(seed + int64(i)))
		}
		if err := e.Init(cfg, runRng); err != nil {
			return nil, err
		}
		res, err := e.Run(ctx)
		if err != nil {
			return nil, err
		}
		out.Runs = append(out.Runs, res)
		perRun = append(perRun, res.AverageLatency.General)
		loadSum += res.AverageLoad
		if !res.Finished {
			break
		}
	}

	out.Latency = stats.Reduce(perRun)
	if len(out.Runs) > 0 {
		out.AverageOfAverageLoad = loadSum / float64(len(out.Runs))
	}
	return out, nil
}
