package search

import (
	"fmt"

	"github.com/partyfowl/aoc19/pkg/intcode"
	"github.com/partyfowl/aoc19/pkg/types"
)

// Target is the output the gravity assist search looks for.
const Target = 19690720

// Gravity patches cells 1 and 2 with noun and verb, runs the program to
// completion and returns cell 0.
func Gravity(program types.Program, noun, verb int64, opts ...intcode.Option) (int64, error) {
	vm := intcode.New(program, opts...)
	vm.Poke(1, noun)
	vm.Poke(2, verb)

	res := vm.Run(nil)
	if res.Err != nil {
		return 0, res.Err
	}
	if res.Status != intcode.StatusHalted {
		return 0, fmt.Errorf("%w: %s", ErrNotHalted, res.Status)
	}
	return vm.Peek(0), nil
}

// NounVerb searches noun and verb in [0, maxValue] for the first pair whose
// Gravity result equals target. Pairs whose program faults are skipped.
func NounVerb(program types.Program, target, maxValue int64, opts ...intcode.Option) (noun, verb int64, err error) {
	for noun = 0; noun <= maxValue; noun++ {
		for verb = 0; verb <= maxValue; verb++ {
			out, err := Gravity(program, noun, verb, opts...)
			if err != nil {
				continue
			}
			if out == target {
				return noun, verb, nil
			}
		}
	}
	return 0, 0, ErrNotFound
}
