// Package config decodes and validates the simulator's configuration
// document (spec.md §6). Documents are typically JSON; Decode accepts any
// already-unmarshalled map[string]any so embedders aren't forced through
// encoding/json specifically.
package config

import (
	"fmt"

	"github.com/joeycumines/go-schedsim/internal/simtime"
	"github.com/joeycumines/go-schedsim/schederr"
	"github.com/joeycumines/go-schedsim/task"
)

// reservedFields are kernel-owned task fields (spec.md §3) that may never
// be shadowed by a task's custom map.
var reservedFields = map[string]bool{
	"pid": true, "pname": true, "class_name": true,
	"alive": true, "runnable": true, "on_rq": true, "waiting": true, "current": true,
	"spawned": true, "exited": true, "enqueued_at": true, "picked_at": true, "updated_at": true,
	"exec_count": true, "exec_time": true, "wait_time": true, "remaining_runtime": true,
	"run_log": true, "latency_log": true, "exec_log": true,
	"current_behavior": true, "next_behavior_index": true,
	"next_event": true, "strict_end_event": true,
}

// Config is a fully parsed and validated simulation configuration.
type Config struct {
	Name         string
	SimLen       int64
	TimerTickLen int64
	DefaultPolicy string
	ClassPrio    []string
	ClassParams  map[string]map[string]any
	Processes    []ProcessSpec
}

// ProcessSpec is one decoded task-spec entry (spec.md §6, "Task spec").
type ProcessSpec struct {
	PName  string
	Spawn  simtime.Interval
	Policy string
	Custom map[string]any
	Behavior task.Spec
}

// Decode validates and converts a raw decoded document (e.g. the output
// of encoding/json.Unmarshal into map[string]any) into a Config.
func Decode(doc map[string]any) (*Config, error) {
	cfg := &Config{ClassParams: map[string]map[string]any{}}

	name, ok := doc["name"].(string)
	if !ok || name == "" {
		return nil, &schederr.ConfigError{Path: "name", Message: "required non-empty string"}
	}
	cfg.Name = name

	simLenRaw, ok := doc["sim_len"]
	if !ok {
		return nil, &schederr.ConfigError{Path: "sim_len", Message: "required"}
	}
	simLen, err := simtime.Parse(simLenRaw, 0)
	if err != nil {
		return nil, &schederr.ConfigError{Path: "sim_len", Message: "invalid time value", Cause: err}
	}
	if simLen < 0 {
		return nil, &schederr.ConfigError{Path: "sim_len", Message: "must be >= 0"}
	}
	cfg.SimLen = int64(simLen)

	cfg.TimerTickLen = int64(1_000_000) // 1ms default
	if v, ok := doc["timer_tick_len"]; ok {
		tick, err := simtime.Parse(v, 0)
		if err != nil {
			return nil, &schederr.ConfigError{Path: "timer_tick_len", Message: "invalid time value", Cause: err}
		}
		if tick <= 1 {
			return nil, &schederr.ConfigError{Path: "timer_tick_len", Message: "must be > 1ns"}
		}
		cfg.TimerTickLen = int64(tick)
	}

	if v, ok := doc["policy"]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, &schederr.ConfigError{Path: "policy", Message: "must be a non-empty string"}
		}
		cfg.DefaultPolicy = s
	}

	if v, ok := doc["class_prio"]; ok {
		list, ok := v.([]any)
		if !ok {
			return nil, &schederr.ConfigError{Path: "class_prio", Message: "must be a list of policy names"}
		}
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &schederr.ConfigError{Path: fmt.Sprintf("class_prio[%d]", i), Message: "must be a string"}
			}
			cfg.ClassPrio = append(cfg.ClassPrio, s)
		}
	}

	if v, ok := doc["class_params"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, &schederr.ConfigError{Path: "class_params", Message: "must be an object"}
		}
		for name, params := range m {
			p, ok := params.(map[string]any)
			if !ok {
				return nil, &schederr.ConfigError{Path: "class_params." + name, Message: "must be an object"}
			}
			cfg.ClassParams[name] = p
		}
	}

	rawProcs, ok := doc["processes"].([]any)
	if !ok || len(rawProcs) == 0 {
		return nil, &schederr.ConfigError{Path: "processes", Message: "required non-empty list"}
	}
	for i, rp := range rawProcs {
		pm, ok := rp.(map[string]any)
		if !ok {
			return nil, &schederr.ConfigError{Path: fmt.Sprintf("processes[%d]", i), Message: "must be an object"}
		}
		ps, err := decodeProcess(pm, cfg.DefaultPolicy)
		if err != nil {
			return nil, fmt.Errorf("processes[%d]: %w", i, err)
		}
		cfg.Processes = append(cfg.Processes, ps)
	}

	return cfg, nil
}

func decodeProcess(pm map[string]any, defaultPolicy string) (ProcessSpec, error) {
	ps := ProcessSpec{}

	if v, ok := pm["pname"]; ok {
		s, ok := v.(string)
		if !ok {
			return ps, &schederr.ConfigError{Path: "pname", Message: "must be a string"}
		}
		ps.PName = s
	}

	spawnRaw, ok := pm["spawn"]
	if !ok {
		return ps, &schederr.ConfigError{Path: "spawn", Message: "required"}
	}
	spawn, err := decodeTimeOrInterval(spawnRaw)
	if err != nil {
		return ps, &schederr.ConfigError{Path: "spawn", Message: "invalid time value", Cause: err}
	}
	if spawn.Lo < 0 {
		return ps, &schederr.ConfigError{Path: "spawn", Message: "must be >= 0"}
	}
	ps.Spawn = spawn

	ps.Policy = defaultPolicy
	if v, ok := pm["policy"]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return ps, &schederr.ConfigError{Path: "policy", Message: "must be a non-empty string"}
		}
		ps.Policy = s
	}
	if ps.Policy == "" {
		return ps, &schederr.ConfigError{Path: "policy", Message: "no task policy and no top-level default policy"}
	}

	if v, ok := pm["custom"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return ps, &schederr.ConfigError{Path: "custom", Message: "must be an object"}
		}
		for k := range m {
			if reservedFields[k] {
				return ps, &schederr.ConfigError{Path: "custom." + k, Message: "collides with a reserved kernel field name"}
			}
		}
		ps.Custom = m
	}

	behRaw, ok := pm["behavior"].([]any)
	if !ok || len(behRaw) == 0 {
		return ps, &schederr.ConfigError{Path: "behavior", Message: "required non-empty list"}
	}
	spec, err := decodeBehavior(behRaw)
	if err != nil {
		return ps, err
	}
	ps.Behavior = spec

	return ps, nil
}

func decodeTimeOrInterval(v any) (simtime.Interval, error) {
	if list, ok := v.([]any); ok {
		return simtime.ParseInterval(list, 0)
	}
	d, err := simtime.Parse(v, 0)
	if err != nil {
		return simtime.Interval{}, err
	}
	return simtime.Interval{Lo: d, Hi: d}, nil
}

func decodeBehavior(raw []any) (task.Spec, error) {
	spec := make(task.Spec, 0, len(raw))
	for i, item := range raw {
		em, ok := item.(map[string]any)
		if !ok {
			return nil, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d]", i), Message: "must be an object"}
		}
		e := task.Entry{}

		if i == 0 {
			prio, ok := em["priority"]
			if !ok {
				return nil, &schederr.ConfigError{Path: "behavior[0].priority", Message: "required on the first entry"}
			}
			p, err := asInt64(prio)
			if err != nil {
				return nil, &schederr.ConfigError{Path: "behavior[0].priority", Message: "must be numeric", Cause: err}
			}
			e.HasPriority, e.Priority = true, p

			run, err := requireInterval(em, "run", "behavior[0].run")
			if err != nil {
				return nil, err
			}
			e.HasRun, e.Run = true, run

			block, err := requireInterval(em, "block", "behavior[0].block")
			if err != nil {
				return nil, err
			}
			e.HasBlock, e.Block = true, block

			spec = append(spec, e)
			continue
		}

		if final, _ := em["final"].(bool); final {
			e.Final = true
			e.EndNicely = true
			if v, ok := em["end_nicely"]; ok {
				b, ok := v.(bool)
				if !ok {
					return nil, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d].end_nicely", i), Message: "must be a boolean"}
				}
				e.EndNicely = b
			}
		} else {
			any_ := false
			if v, ok := em["priority"]; ok {
				p, err := asInt64(v)
				if err != nil {
					return nil, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d].priority", i), Message: "must be numeric", Cause: err}
				}
				e.HasPriority, e.Priority = true, p
				any_ = true
			}
			if v, ok := em["run"]; ok {
				iv, err := decodeTimeOrInterval(v)
				if err != nil {
					return nil, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d].run", i), Message: "invalid interval", Cause: err}
				}
				e.HasRun, e.Run = true, iv
				any_ = true
			}
			if v, ok := em["block"]; ok {
				iv, err := decodeTimeOrInterval(v)
				if err != nil {
					return nil, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d].block", i), Message: "invalid interval", Cause: err}
				}
				e.HasBlock, e.Block = true, iv
				any_ = true
			}
			if !any_ {
				return nil, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d]", i), Message: "update entry needs at least one of priority/run/block"}
			}
		}

		sw, err := decodeSwitch(em, i)
		if err != nil {
			return nil, err
		}
		e.Switch = sw

		spec = append(spec, e)
	}
	return spec, nil
}

func decodeSwitch(em map[string]any, i int) (task.Switch, error) {
	var found []task.Switch
	if v, ok := em["sim_exec"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return task.Switch{}, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d].sim_exec", i), Message: "must be numeric", Cause: err}
		}
		found = append(found, task.Switch{Kind: task.SwitchSimExec, Value: n})
	}
	if v, ok := em["proc_exec"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return task.Switch{}, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d].proc_exec", i), Message: "must be numeric", Cause: err}
		}
		found = append(found, task.Switch{Kind: task.SwitchProcExec, Value: n})
	}
	if v, ok := em["exec_count"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return task.Switch{}, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d].exec_count", i), Message: "must be numeric", Cause: err}
		}
		found = append(found, task.Switch{Kind: task.SwitchExecCount, Value: n})
	}
	if len(found) != 1 {
		return task.Switch{}, &schederr.ConfigError{Path: fmt.Sprintf("behavior[%d]", i), Message: fmt.Sprintf("must carry exactly one switch condition, found %d", len(found))}
	}
	return found[0], nil
}

func requireInterval(em map[string]any, key, path string) (simtime.Interval, error) {
	v, ok := em[key]
	if !ok {
		return simtime.Interval{}, &schederr.ConfigError{Path: path, Message: "required"}
	}
	iv, err := decodeTimeOrInterval(v)
	if err != nil {
		return simtime.Interval{}, &schederr.ConfigError{Path: path, Message: "invalid interval", Cause: err}
	}
	return iv, nil
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", v)
	}
}

// PolicyOrder merges class_prio onto the front of the registered order,
// keeping the remaining registered names in their existing relative order
// (spec.md §6: "promotes listed policies to the top... in the given
// order").
func PolicyOrder(registered []string, classPrio []string) []string {
	promoted := map[string]bool{}
	out := make([]string, 0, len(registered))
	for _, name := range classPrio {
		promoted[name] = true
		out = append(out, name)
	}
	for _, name := range registered {
		if !promoted[name] {
			out = append(out, name)
		}
	}
	return out
}
