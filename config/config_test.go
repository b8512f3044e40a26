package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc() map[string]any {
	return map[string]any{
		"name":    "cfg",
		"sim_len": "100ms",
		"policy":  "fcfs",
		"processes": []any{
			map[string]any{
				"pname": "A",
				"spawn": "0ns",
				"behavior": []any{
					map[string]any{"priority": 0, "run": "5ms", "block": "1ms"},
				},
			},
		},
	}
}

func TestDecode_ValidMinimalDocument(t *testing.T) {
	cfg, err := Decode(validDoc())
	require.NoError(t, err)
	assert.Equal(t, "cfg", cfg.Name)
	assert.Equal(t, int64(100_000_000), cfg.SimLen)
	assert.Equal(t, int64(1_000_000), cfg.TimerTickLen, "default timer_tick_len is 1ms")
	require.Len(t, cfg.Processes, 1)
	assert.Equal(t, "fcfs", cfg.Processes[0].Policy, "falls back to the top-level default policy")
}

func TestDecode_MissingRequiredFields(t *testing.T) {
	for _, field := range []string{"name", "sim_len", "processes"} {
		doc := validDoc()
		delete(doc, field)
		_, err := Decode(doc)
		assert.Error(t, err, "missing %s must be fatal", field)
	}
}

func TestDecode_TaskWithoutPolicyOrDefaultIsRejected(t *testing.T) {
	doc := validDoc()
	delete(doc, "policy")
	_, err := Decode(doc)
	assert.Error(t, err)
}

func TestDecode_ReservedCustomFieldNameRejected(t *testing.T) {
	doc := validDoc()
	proc := doc["processes"].([]any)[0].(map[string]any)
	proc["custom"] = map[string]any{"remaining_runtime": 5}
	_, err := Decode(doc)
	assert.Error(t, err)
}

func TestDecode_CustomFieldsAreShallowCopied(t *testing.T) {
	doc := validDoc()
	proc := doc["processes"].([]any)[0].(map[string]any)
	proc["custom"] = map[string]any{"tag": "nice"}
	cfg, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, "nice", cfg.Processes[0].Custom["tag"])
}

func TestDecode_BehaviorEntryZeroRequiresAllThreeFields(t *testing.T) {
	doc := validDoc()
	proc := doc["processes"].([]any)[0].(map[string]any)
	proc["behavior"] = []any{map[string]any{"priority": 0, "run": "5ms"}}
	_, err := Decode(doc)
	assert.Error(t, err, "entry 0 without block must be rejected")
}

func TestDecode_UpdateEntryNeedsExactlyOneSwitch(t *testing.T) {
	doc := validDoc()
	proc := doc["processes"].([]any)[0].(map[string]any)
	proc["behavior"] = []any{
		map[string]any{"priority": 0, "run": "5ms", "block": "1ms"},
		map[string]any{"run": "2ms", "sim_exec": 10, "proc_exec": 20},
	}
	_, err := Decode(doc)
	assert.Error(t, err, "two switch conditions on one entry must be rejected")
}

func TestDecode_FinalEntryDefaultsEndNicelyTrue(t *testing.T) {
	doc := validDoc()
	proc := doc["processes"].([]any)[0].(map[string]any)
	proc["behavior"] = []any{
		map[string]any{"priority": 0, "run": "5ms", "block": "1ms"},
		map[string]any{"final": true, "sim_exec": 10},
	}
	cfg, err := Decode(doc)
	require.NoError(t, err)
	require.Len(t, cfg.Processes[0].Behavior, 2)
	assert.True(t, cfg.Processes[0].Behavior[1].EndNicely)
}

func TestDecode_IntervalSpawn(t *testing.T) {
	doc := validDoc()
	proc := doc["processes"].([]any)[0].(map[string]any)
	proc["spawn"] = []any{"1ms", "2ms"}
	cfg, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), int64(cfg.Processes[0].Spawn.Lo))
	assert.Equal(t, int64(2_000_000), int64(cfg.Processes[0].Spawn.Hi))
}

func TestDecode_ClassPrioAndClassParams(t *testing.T) {
	doc := validDoc()
	doc["class_prio"] = []any{"sjf", "fcfs"}
	doc["class_params"] = map[string]any{"sjf": map[string]any{"early_preemption": true}}
	cfg, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"sjf", "fcfs"}, cfg.ClassPrio)
	assert.Equal(t, true, cfg.ClassParams["sjf"]["early_preemption"])
}

func TestPolicyOrder_PromotesListedClassesToFront(t *testing.T) {
	registered := []string{"fcfs", "round_robin", "sjf", "fair"}
	out := PolicyOrder(registered, []string{"fair", "sjf"})
	assert.Equal(t, []string{"fair", "sjf", "fcfs", "round_robin"}, out)
}

func TestPolicyOrder_EmptyClassPrioIsIdentity(t *testing.T) {
	registered := []string{"fcfs", "round_robin"}
	assert.Equal(t, registered, PolicyOrder(registered, nil))
}
