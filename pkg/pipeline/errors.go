package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPhases is returned when a network is built with no stages.
	ErrNoPhases = errors.New("no phase settings")

	// ErrNoOutput is returned when the last stage halts without ever
	// emitting a value.
	ErrNoOutput = errors.New("last stage produced no output")

	// ErrDeadlock is returned when a full round passes in which every live
	// stage is waiting for input that no other stage will produce.
	ErrDeadlock = errors.New("network deadlocked")

	// ErrStalled is returned when a serial stage suspends for input.
	ErrStalled = errors.New("stage waiting for input")

	// ErrRoundLimit is returned when the network exceeds its round budget.
	ErrRoundLimit = errors.New("round limit exceeded")

	// ErrBudgetExhausted is returned when a network spends its instruction
	// budget.
	ErrBudgetExhausted = errors.New("instruction budget exhausted")
)

// StageError reports which stage of a network failed.
type StageError struct {
	Stage int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
