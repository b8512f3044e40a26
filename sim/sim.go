// Package sim is the embedder-facing façade (spec.md §6, "Engine API"):
// it owns the registered/active policy orderings that survive across
// runs (spec.md §5), builds a fresh kernel.Kernel per run, drives it
// through the three partial-run shapes, and assembles the Result object.
package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/joeycumines/go-schedsim/config"
	"github.com/joeycumines/go-schedsim/kernel"
	"github.com/joeycumines/go-schedsim/obslog"
	"github.com/joeycumines/go-schedsim/policy"
	"github.com/joeycumines/go-schedsim/schederr"
)

// Engine is the embedder's handle onto the simulator. The zero value is
// not usable; construct with New.
//
// Only the registered policy set, registeredOrder and activeOrder survive
// across Init calls (spec.md §5); the kernel itself is rebuilt from scratch
// by every Init.
type Engine struct {
	log obslog.Logger

	policies        map[string]policy.Policy
	registeredOrder []string
	activeOrder     []string

	cfg *config.Config
	k   *kernel.Kernel
}

// New constructs an Engine pre-loaded with policy.Standard(). log may be
// obslog.Disabled().
func New(log obslog.Logger) *Engine {
	policies, order := policy.Standard()
	return &Engine{
		log:             log,
		policies:        policies,
		registeredOrder: append([]string(nil), order...),
		activeOrder:     append([]string(nil), order...),
	}
}

// RegisterPolicy enlarges the registered policy set (spec.md §6); a new
// name is appended to the tail of both the registered and active
// priority orders, a name that already exists has its implementation
// replaced in place without moving it in either order.
func (e *Engine) RegisterPolicy(name string, impl policy.Policy) {
	_, exists := e.policies[name]
	e.policies[name] = impl
	if !exists {
		e.registeredOrder = append(e.registeredOrder, name)
		e.activeOrder = append(e.activeOrder, name)
	}
}

// ReorderRegistered replaces the registered priority order with perm,
// which must be a permutation of the current registered names.
func (e *Engine) ReorderRegistered(perm []string) error {
	if err := validatePermutation(e.registeredOrder, perm); err != nil {
		return err
	}
	e.registeredOrder = append([]string(nil), perm...)
	return nil
}

// ReorderActive replaces the active priority order — the one dispatch
// actually walks — without touching the registered order (spec.md
// SPEC_FULL, "reorder_registered / reorder_active").
func (e *Engine) ReorderActive(perm []string) error {
	if err := validatePermutation(e.activeOrder, perm); err != nil {
		return err
	}
	e.activeOrder = append([]string(nil), perm...)
	return nil
}

func validatePermutation(base, perm []string) error {
	if len(perm) != len(base) {
		return &schederr.ConfigError{Message: fmt.Sprintf("reorder: expected %d names, got %d", len(base), len(perm))}
	}
	want := map[string]int{}
	for _, n := range base {
		want[n]++
	}
	for _, n := range perm {
		want[n]--
	}
	for n, c := range want {
		if c != 0 {
			return &schederr.ConfigError{Message: "reorder: not a permutation of the current order, mismatched name " + n}
		}
	}
	return nil
}

// Init prepares a fresh run from cfg: idempotent replacement of any prior
// run's kernel (spec.md §6, "idempotent replacement of prior state"). The
// registered policy set and both priority orderings survive the call.
func (e *Engine) Init(cfg *config.Config, rng *rand.Rand) error {
	k, err := kernel.New(cfg, e.policies, e.activeOrder, rng, e.log)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.k = k
	return nil
}

// Run executes the current run to completion.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	return e.drive(ctx, kernel.RunToCompletion, 0)
}

// RunUntil executes the current run up to and including instant t.
func (e *Engine) RunUntil(ctx context.Context, t int64) (*Result, error) {
	return e.drive(ctx, kernel.RunUntilTime, t)
}

// Step executes up to n distinct timestamps of the current run.
func (e *Engine) Step(ctx context.Context, n int64) (*Result, error) {
	return e.drive(ctx, kernel.RunSteps, n)
}

func (e *Engine) drive(ctx context.Context, mode kernel.RunMode, limit int64) (*Result, error) {
	if e.k == nil {
		return nil, &schederr.ConfigError{Message: "sim: Init must be called before Run/RunUntil/Step"}
	}
	finished, err := e.k.Run(ctx, mode, limit)
	if err != nil {
		return nil, err
	}
	return buildResult(e.cfg, e.k, finished), nil
}
