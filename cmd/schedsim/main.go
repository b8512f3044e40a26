// Command schedsim is the thin CLI entry point spec.md §1 explicitly
// places outside the engine's scope: it loads a configuration document,
// runs the simulation (once or N times), and prints the Result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/integrii/flaggy"
	"github.com/rs/zerolog"

	"github.com/joeycumines/go-schedsim/config"
	"github.com/joeycumines/go-schedsim/obslog"
	"github.com/joeycumines/go-schedsim/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "schedsim:", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var runs int = 1
	var seed int64 = 1
	var verbose bool

	flaggy.SetName("schedsim")
	flaggy.SetDescription("discrete-event process scheduling simulator")
	flaggy.String(&configPath, "c", "config", "path to a JSON simulation config")
	flaggy.Int(&runs, "n", "runs", "number of independent runs (multi-run reduction)")
	flaggy.Int64(&seed, "s", "seed", "RNG seed")
	flaggy.Bool(&verbose, "v", "verbose", "enable debug logging to stderr")
	flaggy.Parse()

	if configPath == "" {
		return fmt.Errorf("-config is required")
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}
	cfg, err := config.Decode(doc)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := obslog.Disabled()
	if verbose {
		log = obslog.New(os.Stderr, zerolog.DebugLevel)
	}

	engine := sim.New(log)
	ctx := context.Background()

	if runs <= 1 {
		if err := engine.Init(cfg, rand.New(rand.NewSource(seed))); err != nil {
			return err
		}
		result, err := engine.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(result)
	}

	result, err := engine.MultiRun(ctx, cfg, runs, seed, true)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
