package policy

import (
	"testing"

	"github.com/joeycumines/go-schedsim/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFairTask(pid task.ID, nice int64) *task.Task {
	spec := task.Spec{{HasPriority: true, Priority: nice}}
	return task.New(pid, "t", "fair", spec)
}

func TestFair_WeightTableNiceZeroIsReference(t *testing.T) {
	assert.Equal(t, int64(1024), weightOf(0))
	assert.Equal(t, int64(88761), weightOf(-20))
	assert.Equal(t, int64(15), weightOf(19))
}

func TestFair_PickNextReturnsMinVruntime(t *testing.T) {
	p := NewFair("fair")
	require.NoError(t, p.Init(nil))

	a := newFairTask(1, 0)
	b := newFairTask(2, 0)
	p.Enqueue(a)
	p.Enqueue(b)

	// give b a head start so it has a lower vruntime
	p.state(b).vruntime = -1000
	p.rq.Remove(0, b)
	p.rq.Insert(-1000, b)

	next := p.PickNext(nil)
	assert.Same(t, b, next)
}

func TestFair_NiceTaskAccruesVruntimeFaster(t *testing.T) {
	p := NewFair("fair")
	require.NoError(t, p.Init(nil))

	lo := newFairTask(1, 0)  // nice 0, reference weight
	hi := newFairTask(2, 10) // positive nice, lower weight -> vruntime grows faster
	p.Enqueue(lo)
	p.Enqueue(hi)

	p.PickNext(nil)
	p.current = lo
	p.state(lo).execAtPick = 0
	lo.ExecTime = 1_000_000
	p.TaskTick(lo)

	p.current = hi
	p.state(hi).execAtPick = 0
	hi.ExecTime = 1_000_000
	p.TaskTick(hi)

	assert.Greater(t, p.state(hi).vruntime, p.state(lo).vruntime,
		"a lower-weight (higher nice) task must accrue vruntime faster for the same wall-clock exec time")
}

func TestFair_PutPrevReinsertsRunnableTask(t *testing.T) {
	p := NewFair("fair")
	require.NoError(t, p.Init(nil))

	a := newFairTask(1, 0)
	p.Enqueue(a)
	next := p.PickNext(nil)
	require.Same(t, a, next)
	require.Equal(t, 0, p.rq.Len())

	a.Runnable = true
	p.PutPrev(a)
	assert.Equal(t, 1, p.rq.Len())
}

func TestFair_CheckPreemptRespectsWakeupGranularity(t *testing.T) {
	p := NewFair("fair")
	require.NoError(t, p.Init(nil))

	current := newFairTask(1, 0)
	newTask := newFairTask(2, 0)
	p.state(current).vruntime = 10_000_000
	p.state(newTask).vruntime = 0

	assert.True(t, p.CheckPreempt(current, newTask), "a much smaller vruntime should request a reschedule")

	p.state(newTask).vruntime = 9_999_999
	assert.False(t, p.CheckPreempt(current, newTask), "within wakeup granularity should not reschedule")
}
