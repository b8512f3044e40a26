package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-schedsim/config"
	"github.com/joeycumines/go-schedsim/internal/simtime"
	"github.com/joeycumines/go-schedsim/obslog"
	"github.com/joeycumines/go-schedsim/policy"
	"github.com/joeycumines/go-schedsim/stats"
	"github.com/joeycumines/go-schedsim/task"
)

func fixed(ns int64) simtime.Interval { return simtime.Interval{Lo: simtime.Duration(ns), Hi: simtime.Duration(ns)} }

func burstSpec(run, block int64) task.Spec {
	return task.Spec{{HasPriority: true, Priority: 0, HasRun: true, Run: fixed(run), HasBlock: true, Block: fixed(block)}}
}

func testConfig() *config.Config {
	return &config.Config{
		Name:         "engine-test",
		SimLen:       100,
		TimerTickLen: 10,
		ClassParams:  map[string]map[string]any{},
		Processes: []config.ProcessSpec{
			{PName: "A", Spawn: fixed(0), Policy: "fcfs", Behavior: burstSpec(5, 2)},
			{PName: "B", Spawn: fixed(1), Policy: "fcfs", Behavior: burstSpec(5, 2)},
		},
	}
}

func fixedRNG() *rand.Rand { return rand.New(rand.NewSource(1)) }

func TestEngine_RunToCompletionProducesFinishedResult(t *testing.T) {
	e := New(obslog.Disabled())
	require.NoError(t, e.Init(testConfig(), fixedRNG()))
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, int64(100), res.RunTime)
	assert.Len(t, res.ProcessList, 2)
	assert.Contains(t, res.ActiveClasses, "fcfs")
}

func TestEngine_PartialRunHasNoAggregateStats(t *testing.T) {
	e := New(obslog.Disabled())
	require.NoError(t, e.Init(testConfig(), fixedRNG()))
	res, err := e.RunUntil(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, res.Finished)
	assert.Equal(t, stats.TurnaroundStats{}, res.AverageTurnaround)
	assert.NotEmpty(t, res.ProcessList, "a partial run still reports the process list collected so far")
}

func TestEngine_StepAdvancesByDistinctTimestamps(t *testing.T) {
	e := New(obslog.Disabled())
	require.NoError(t, e.Init(testConfig(), fixedRNG()))
	res, err := e.Step(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, res.Finished, "one step must not reach SimStop in this config")
}

func TestEngine_BreakViaContextCancelReturnsUnfinished(t *testing.T) {
	e := New(obslog.Disabled())
	require.NoError(t, e.Init(testConfig(), fixedRNG()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.False(t, res.Finished)
}

func TestEngine_RegisterPolicyAppendsToTailOfBothOrders(t *testing.T) {
	e := New(obslog.Disabled())
	before := len(e.registeredOrder)
	e.RegisterPolicy("custom", policy.NewFCFS("custom"))
	require.Len(t, e.registeredOrder, before+1)
	assert.Equal(t, "custom", e.registeredOrder[before])
	assert.Equal(t, "custom", e.activeOrder[before])
}

func TestEngine_ReorderActiveLeavesRegisteredUntouched(t *testing.T) {
	e := New(obslog.Disabled())
	reversed := make([]string, len(e.registeredOrder))
	for i, n := range e.registeredOrder {
		reversed[len(reversed)-1-i] = n
	}
	require.NoError(t, e.ReorderActive(reversed))
	assert.Equal(t, reversed, e.activeOrder)
	assert.NotEqual(t, reversed, e.registeredOrder)
}

func TestEngine_ReorderRejectsNonPermutation(t *testing.T) {
	e := New(obslog.Disabled())
	err := e.ReorderActive([]string{"fcfs"})
	assert.Error(t, err)
}

func TestEngine_MultiRunReduces(t *testing.T) {
	e := New(obslog.Disabled())
	res, err := e.MultiRun(context.Background(), testConfig(), 5, 1, true)
	require.NoError(t, err)
	assert.Len(t, res.Runs, 5)
	for _, r := range res.Runs {
		assert.True(t, r.Finished)
	}
}

func TestEngine_RunBeforeInitIsConfigError(t *testing.T) {
	e := New(obslog.Disabled())
	_, err := e.Run(context.Background())
	assert.Error(t, err)
}
