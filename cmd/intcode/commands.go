package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/partyfowl/aoc19/pkg/arcade"
	"github.com/partyfowl/aoc19/pkg/intcode"
	"github.com/partyfowl/aoc19/pkg/pipeline"
	"github.com/partyfowl/aoc19/pkg/results"
	"github.com/partyfowl/aoc19/pkg/search"
	"github.com/partyfowl/aoc19/pkg/source"
	"github.com/partyfowl/aoc19/pkg/types"
)

var errUsage = errors.New("wrong number of arguments")

func loadProgram(args []string) (types.Program, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected a program file", errUsage)
	}
	program, err := source.Load(args[0])
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded %d words from %s (digest %s)", len(program), args[0], program.Digest())
	return program, nil
}

// openStore opens the result store under the data directory, or an
// in-memory store when no directory is configured.
func openStore(cfg Config) (results.Store, error) {
	if cfg.General.DataDir == "" {
		return results.NewMemoryStore(), nil
	}

	dbPath := filepath.Join(cfg.General.DataDir, "results")
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := results.OpenBadgerStore(dbPath)
	if err != nil {
		return nil, err
	}
	log.Infof("opened result store at %s (%d records)", dbPath, store.Count())
	return store, nil
}

func formatValues(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

func runCommand(cfg Config, flags *cliFlags, args []string) error {
	program, err := loadProgram(args)
	if err != nil {
		return err
	}
	input, err := types.ParseValues(flags.input)
	if err != nil {
		return fmt.Errorf("invalid -input: %w", err)
	}

	vm := intcode.New(program, cfg.engineOptions()...)
	start := time.Now()
	res := vm.Run(input)
	log.Infof("%s after %d steps in %s", res.Status, res.Steps, time.Since(start))

	fmt.Println(formatValues(res.Output))
	switch {
	case res.Err != nil:
		return res.Err
	case res.Status == intcode.StatusNeedsInput:
		return fmt.Errorf("program needs more input (consumed %d values)", len(input))
	case res.Status == intcode.StatusStepLimit:
		return fmt.Errorf("step limit of %d reached", cfg.Engine.StepLimit)
	}
	return nil
}

func amplifyCommand(cfg Config, flags *cliFlags, args []string) error {
	program, err := loadProgram(args)
	if err != nil {
		return err
	}
	mode, err := search.ParseMode(flags.mode)
	if err != nil {
		return err
	}
	phases, err := types.ParseValues(flags.phases)
	if err != nil {
		return fmt.Errorf("invalid -phases: %w", err)
	}
	if len(phases) == 0 {
		phases = mode.DefaultPhases()
	}

	opts := []search.Option{
		search.WithNetworkOptions(
			pipeline.WithEngineOptions(cfg.engineOptions()...),
			pipeline.WithMaxRounds(cfg.Search.MaxRounds),
		),
	}
	if cfg.Search.Cache {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, search.WithStore(store))
	}

	start := time.Now()
	best, err := search.MaxSignal(program, phases, mode, opts...)
	if err != nil {
		return err
	}
	log.Infof("%s search over %v: %d orderings, %d cached, %s",
		mode, phases, best.Evaluated, best.CacheHits, time.Since(start))

	fmt.Printf("%d (phases %s)\n", best.Signal, formatValues(best.Phases))
	return nil
}

func nounVerbCommand(cfg Config, flags *cliFlags, args []string) error {
	program, err := loadProgram(args)
	if err != nil {
		return err
	}

	alarm, err := search.Gravity(program, 12, 2, cfg.engineOptions()...)
	if err != nil {
		return fmt.Errorf("1202 program alarm: %w", err)
	}
	fmt.Println(alarm)

	noun, verb, err := search.NounVerb(program, flags.target, 99, cfg.engineOptions()...)
	if err != nil {
		return fmt.Errorf("target %d: %w", flags.target, err)
	}
	fmt.Println(100*noun + verb)
	return nil
}

func arcadeCommand(cfg Config, flags *cliFlags, args []string) error {
	program, err := loadProgram(args)
	if err != nil {
		return err
	}

	screen, err := arcade.Play(program, cfg.engineOptions()...)
	if err != nil {
		return err
	}
	if flags.render {
		fmt.Print(screen.String())
	}
	fmt.Println(screen.Count(arcade.Block))
	return nil
}

func disasmCommand(cfg Config, flags *cliFlags, args []string) error {
	program, err := loadProgram(args)
	if err != nil {
		return err
	}
	for _, line := range intcode.Disassemble(program) {
		fmt.Println(line.String())
	}
	return nil
}

func compressCommand(cfg Config, flags *cliFlags, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: expected input and output files", errUsage)
	}
	program, err := source.Load(args[0])
	if err != nil {
		return err
	}
	if err := source.Save(args[1], program); err != nil {
		return err
	}
	log.Noticef("wrote %d words to %s", len(program), args[1])
	return nil
}
