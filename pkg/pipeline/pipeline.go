// Package pipeline wires Intcode engines into amplifier networks.
//
// A network is built from one program and one phase setting per stage. Each
// stage runs in its own VM; the output of stage k is appended to the input
// queue of stage k+1. In a feedback network the last stage feeds the first
// and the network is driven round robin until the last stage halts.
package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/partyfowl/aoc19/pkg/intcode"
)

// Observer receives the result of every engine invocation.
type Observer func(stage int, res intcode.Result, elapsed time.Duration)

type options struct {
	observer  Observer
	engine    []intcode.Option
	maxRounds int
	budget    *Budget
}

// Option configures a network.
type Option func(*options)

// WithObserver installs a hook called after every engine invocation.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithEngineOptions passes options to every VM in the network.
func WithEngineOptions(opts ...intcode.Option) Option {
	return func(o *options) {
		o.engine = append(o.engine, opts...)
	}
}

// WithMaxRounds bounds the number of round-robin passes of a feedback
// network, or the invocations of each stage of a chain. Zero means unbounded.
func WithMaxRounds(n int) Option {
	return func(o *options) {
		o.maxRounds = n
	}
}

// WithBudget charges every instruction the network executes to b. Once b is
// spent the network stops with ErrBudgetExhausted.
func WithBudget(b *Budget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// Budget is an instruction allowance that may be shared by many networks,
// for example every ordering evaluated by one search.
type Budget struct {
	left atomic.Int64
}

// NewBudget creates a budget of n instructions.
func NewBudget(n int64) *Budget {
	b := &Budget{}
	b.left.Store(n)
	return b
}

// Remaining returns the unspent allowance, never below zero.
func (b *Budget) Remaining() int64 {
	if n := b.left.Load(); n > 0 {
		return n
	}
	return 0
}

// charge spends steps and reports whether the budget is now overdrawn.
func (b *Budget) charge(steps uint64) bool {
	if b == nil {
		return false
	}
	return b.left.Add(-int64(steps)) < 0
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Network is a cycle of engines sharing one program.
type Network struct {
	engines []*intcode.VM
	queues  [][]int64
	opts    options

	rounds int
	last   int64
	seen   bool
}

// NewNetwork creates one engine per phase and seeds each queue with its
// phase setting.
func NewNetwork(program []int64, phases []int64, opts ...Option) (*Network, error) {
	if len(phases) == 0 {
		return nil, ErrNoPhases
	}

	n := &Network{
		engines: make([]*intcode.VM, len(phases)),
		queues:  make([][]int64, len(phases)),
		opts:    buildOptions(opts),
	}
	for k, phase := range phases {
		n.engines[k] = intcode.New(program, n.opts.engine...)
		n.queues[k] = []int64{phase}
	}
	return n, nil
}

// Run feeds seed to the first stage and drives the network until the last
// stage halts. It returns the last value the last stage ever emitted.
func (n *Network) Run(seed int64) (int64, error) {
	n.queues[0] = append(n.queues[0], seed)
	lastStage := len(n.engines) - 1

	for {
		if n.opts.maxRounds > 0 && n.rounds >= n.opts.maxRounds {
			return 0, ErrRoundLimit
		}
		n.rounds++

		progress := false
		for k, vm := range n.engines {
			if vm.Status() == intcode.StatusHalted {
				continue
			}

			res := n.invoke(k, vm, n.queues[k])
			n.queues[k] = append(n.queues[k][:0], res.Remaining...)

			if res.Status.Failed() {
				return 0, &StageError{Stage: k, Err: res.Err}
			}
			if n.opts.budget.charge(res.Steps) {
				return 0, &StageError{Stage: k, Err: ErrBudgetExhausted}
			}
			if res.Steps > 0 || len(res.Output) > 0 {
				progress = true
			}

			next := (k + 1) % len(n.engines)
			n.queues[next] = append(n.queues[next], res.Output...)

			if k == lastStage {
				if len(res.Output) > 0 {
					n.last = res.Output[len(res.Output)-1]
					n.seen = true
				}
				if res.Status == intcode.StatusHalted {
					if !n.seen {
						return 0, ErrNoOutput
					}
					return n.last, nil
				}
			}
		}

		if !progress {
			return 0, ErrDeadlock
		}
	}
}

// Rounds returns the number of round-robin passes made so far.
func (n *Network) Rounds() int {
	return n.rounds
}

// Stages returns the number of engines in the network.
func (n *Network) Stages() int {
	return len(n.engines)
}

func (n *Network) invoke(stage int, vm *intcode.VM, input []int64) intcode.Result {
	start := time.Now()
	res := vm.Run(input)
	if n.opts.observer != nil {
		n.opts.observer(stage, res, time.Since(start))
	}
	return res
}

// Feedback runs a feedback network over phases and returns its signal.
func Feedback(program []int64, phases []int64, seed int64, opts ...Option) (int64, error) {
	n, err := NewNetwork(program, phases, opts...)
	if err != nil {
		return 0, err
	}
	return n.Run(seed)
}

// Chain runs each stage to completion in turn on [phase, signal], passing
// the last output of one stage as the signal of the next.
func Chain(program []int64, phases []int64, seed int64, opts ...Option) (int64, error) {
	if len(phases) == 0 {
		return 0, ErrNoPhases
	}
	o := buildOptions(opts)

	signal := seed
	for k, phase := range phases {
		vm := intcode.New(program, o.engine...)
		input := []int64{phase, signal}

		var out []int64
		for calls := 0; ; calls++ {
			if o.maxRounds > 0 && calls >= o.maxRounds {
				return 0, &StageError{Stage: k, Err: ErrRoundLimit}
			}

			start := time.Now()
			res := vm.Run(input)
			if o.observer != nil {
				o.observer(k, res, time.Since(start))
			}
			out = append(out, res.Output...)
			input = res.Remaining

			if res.Status.Failed() {
				return 0, &StageError{Stage: k, Err: res.Err}
			}
			if o.budget.charge(res.Steps) {
				return 0, &StageError{Stage: k, Err: ErrBudgetExhausted}
			}
			if res.Status == intcode.StatusNeedsInput {
				return 0, &StageError{Stage: k, Err: ErrStalled}
			}
			if res.Status == intcode.StatusHalted {
				break
			}
			// Step limit reached: resume on the next pass
		}

		if len(out) == 0 {
			return 0, &StageError{Stage: k, Err: ErrNoOutput}
		}
		signal = out[len(out)-1]
	}
	return signal, nil
}
