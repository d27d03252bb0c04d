// Package search runs exhaustive puzzle searches over Intcode programs:
// amplifier phase orderings and noun/verb patching.
package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/partyfowl/aoc19/pkg/pipeline"
	"github.com/partyfowl/aoc19/pkg/results"
	"github.com/partyfowl/aoc19/pkg/types"
)

var (
	// ErrNotFound is returned when no candidate satisfies the search.
	ErrNotFound = errors.New("no solution found")

	// ErrNotHalted is returned when a program stops for any reason other
	// than halting.
	ErrNotHalted = errors.New("program did not halt")

	// ErrUnknownMode is returned for an unrecognised network mode name.
	ErrUnknownMode = errors.New("unknown mode")
)

// Mode selects how amplifier stages are connected.
type Mode int

const (
	// ModeSerial runs each stage to completion, once.
	ModeSerial Mode = iota

	// ModeFeedback loops the last stage back into the first.
	ModeFeedback
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSerial:
		return "serial"
	case ModeFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "serial":
		return ModeSerial, nil
	case "feedback":
		return ModeFeedback, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// DefaultPhases returns the phase set conventionally used with a mode.
func (m Mode) DefaultPhases() []int64 {
	if m == ModeFeedback {
		return []int64{5, 6, 7, 8, 9}
	}
	return []int64{0, 1, 2, 3, 4}
}

// Best is the outcome of a phase search.
type Best struct {
	Signal int64
	Phases []int64

	// Evaluated counts orderings considered, including cache hits.
	Evaluated int
	CacheHits int
}

type options struct {
	store   results.Store
	network []pipeline.Option
	seed    int64
}

// Option configures a search.
type Option func(*options)

// WithStore caches per-ordering signals in s.
func WithStore(s results.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithNetworkOptions passes options to every network evaluated.
func WithNetworkOptions(opts ...pipeline.Option) Option {
	return func(o *options) {
		o.network = append(o.network, opts...)
	}
}

// WithSeed sets the signal fed to the first stage. The default is 0.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// MaxSignal evaluates every ordering of phases and returns the one producing
// the highest signal. Ties keep the earliest ordering. Any evaluation error
// aborts the search.
func MaxSignal(program types.Program, phases []int64, mode Mode, opts ...Option) (Best, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if mode != ModeSerial && mode != ModeFeedback {
		return Best{}, fmt.Errorf("%w: %d", ErrUnknownMode, mode)
	}
	if len(phases) == 0 {
		return Best{}, pipeline.ErrNoPhases
	}

	var digest types.Digest
	if o.store != nil {
		digest = program.Digest()
	}

	var best Best
	for _, perm := range Permutations(phases) {
		best.Evaluated++

		var (
			signal int64
			hit    bool
			err    error
		)
		if o.store != nil {
			signal, hit, err = evaluateCached(o, digest, program, perm, mode)
		} else {
			signal, _, err = evaluate(o, program, perm, mode)
		}
		if err != nil {
			return Best{}, fmt.Errorf("phases %v: %w", perm, err)
		}
		if hit {
			best.CacheHits++
		}

		if best.Phases == nil || signal > best.Signal {
			best.Signal = signal
			best.Phases = perm
		}
	}
	return best, nil
}

func evaluateCached(o options, digest types.Digest, program types.Program, perm []int64, mode Mode) (int64, bool, error) {
	key := results.Key{Digest: digest, Mode: mode.String(), Phases: perm}

	rec, err := o.store.Get(key)
	if err != nil {
		return 0, false, err
	}
	if rec != nil {
		return rec.Signal, true, nil
	}

	signal, rounds, err := evaluate(o, program, perm, mode)
	if err != nil {
		return 0, false, err
	}
	err = o.store.Put(key, &results.Record{
		Signal:    signal,
		Rounds:    rounds,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return 0, false, err
	}
	return signal, false, nil
}

func evaluate(o options, program types.Program, perm []int64, mode Mode) (int64, int, error) {
	if mode == ModeSerial {
		signal, err := pipeline.Chain(program, perm, o.seed, o.network...)
		return signal, 1, err
	}

	n, err := pipeline.NewNetwork(program, perm, o.network...)
	if err != nil {
		return 0, 0, err
	}
	signal, err := n.Run(o.seed)
	return signal, n.Rounds(), err
}

// Permutations returns every ordering of values in lexicographic order of
// positions. The first ordering is values itself.
func Permutations(values []int64) [][]int64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	var out [][]int64
	for {
		perm := make([]int64, n)
		for i, j := range idx {
			perm[i] = values[j]
		}
		out = append(out, perm)

		// Next permutation of idx
		i := n - 2
		for i >= 0 && idx[i] >= idx[i+1] {
			i--
		}
		if i < 0 {
			return out
		}
		j := n - 1
		for idx[j] <= idx[i] {
			j--
		}
		idx[i], idx[j] = idx[j], idx[i]
		for l, r := i+1, n-1; l < r; l, r = l+1, r-1 {
			idx[l], idx[r] = idx[r], idx[l]
		}
	}
}
