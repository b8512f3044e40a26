package task

import (
	"testing"

	"github.com/joeycumines/go-schedsim/internal/simtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(ns int64) simtime.Interval { return simtime.Interval{Lo: simtime.Duration(ns), Hi: simtime.Duration(ns)} }

func TestAdvance_NonFinalSwitchThenFinal(t *testing.T) {
	spec := Spec{
		{HasPriority: true, Priority: 0, HasRun: true, Run: fixed(5), HasBlock: true, Block: fixed(1)},
		{HasRun: true, Run: fixed(10), Switch: Switch{Kind: SwitchProcExec, Value: 20}},
		{Final: true, EndNicely: true, Switch: Switch{Kind: SwitchProcExec, Value: 20}},
	}
	b := spec.Seed()
	idx := 0

	// below threshold: nothing fires
	exit, fired := Advance(spec, &b, &idx, 0, 10, 0)
	assert.False(t, fired)
	assert.Equal(t, 0, idx)
	assert.Equal(t, simtime.Duration(5), b.Run.Lo)

	// at threshold: the update fires, and since the final entry shares
	// the same condition it fires immediately after, in the same pick.
	exit, fired = Advance(spec, &b, &idx, 0, 20, 0)
	require.True(t, fired)
	assert.Equal(t, ExitProcExec, exit.Kind)
	assert.True(t, exit.Nice)
	assert.Equal(t, 2, idx)
	assert.Equal(t, simtime.Duration(10), b.Run.Lo, "the update entry's Run overlay must have applied first")
}

func TestAdvance_AtMostOneNonFinalSwitchPerPick(t *testing.T) {
	spec := Spec{
		{HasPriority: true, Priority: 0, HasRun: true, Run: fixed(1), HasBlock: true, Block: fixed(1)},
		{HasRun: true, Run: fixed(2), Switch: Switch{Kind: SwitchExecCount, Value: 1}},
		{HasRun: true, Run: fixed(3), Switch: Switch{Kind: SwitchExecCount, Value: 1}},
	}
	b := spec.Seed()
	idx := 0
	_, fired := Advance(spec, &b, &idx, 0, 0, 1)
	assert.False(t, fired)
	assert.Equal(t, 1, idx, "only the first satisfied switch advances per pick")
	assert.Equal(t, simtime.Duration(2), b.Run.Lo)
}
