package intcode

import (
	"errors"
	"fmt"
)

// Fatal execution errors. A VM that reports one of these must not be resumed.
var (
	// ErrInvalidOpcode is returned when the low two digits of an instruction
	// word do not name one of the defined operations.
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrInvalidMode is returned when a parameter mode digit is not 0, 1 or 2.
	ErrInvalidMode = errors.New("invalid parameter mode")

	// ErrNegativeAddress is returned when a position or relative parameter
	// resolves to an address below zero.
	ErrNegativeAddress = errors.New("negative address")

	// ErrImmediateWrite is returned when an instruction's destination
	// parameter is encoded in immediate mode.
	ErrImmediateWrite = errors.New("write through immediate parameter")
)

// VMError wraps an error with the machine state at the time of the fault.
type VMError struct {
	Err     error
	IP      int64 // Instruction pointer of the faulting instruction
	Word    int64 // Full instruction word
	Address int64 // Offending address, when the fault concerns one
}

// Error implements the error interface.
func (e *VMError) Error() string {
	if errors.Is(e.Err, ErrNegativeAddress) {
		return fmt.Sprintf("intcode error at ip=%d word=%d addr=%d: %v",
			e.IP, e.Word, e.Address, e.Err)
	}
	return fmt.Sprintf("intcode error at ip=%d word=%d: %v", e.IP, e.Word, e.Err)
}

// Unwrap returns the underlying error.
func (e *VMError) Unwrap() error {
	return e.Err
}

// NewVMError creates a new VMError.
func NewVMError(err error, ip, word, address int64) *VMError {
	return &VMError{
		Err:     err,
		IP:      ip,
		Word:    word,
		Address: address,
	}
}
