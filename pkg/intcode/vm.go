// Package intcode implements the Intcode virtual machine.
//
// An Intcode program is a flat sequence of signed integers that serves as both
// code and data. Each instruction word carries an opcode in its two low
// decimal digits and one addressing mode digit per parameter above that.
//
// Machine state:
//   - Memory: word-addressed, grows with zero fill when an address past the
//     current end is referenced
//   - IP: address of the next instruction word
//   - Relative base: register added to relative-mode parameters
//
// A VM is driven by Run. Execution stops when the program halts, when an input
// instruction finds the input queue empty, when an optional step budget is
// spent, or when a fatal decode error occurs. Suspension is cooperative: the
// caller re-invokes Run with more input and execution resumes at the exact
// instruction that blocked.
package intcode

// Status describes why Run returned.
type Status int

const (
	// StatusRunning is the state of a VM between invocations that have not
	// yet stopped for any reason. Run never returns it.
	StatusRunning Status = iota

	// StatusHalted means the program executed opcode 99 or ran off the end
	// of memory. Terminal.
	StatusHalted

	// StatusNeedsInput means an input instruction found the queue empty.
	// The instruction has not been consumed; resume with more input.
	StatusNeedsInput

	// StatusStepLimit means the per-invocation step budget ran out on an
	// instruction boundary. Resumable.
	StatusStepLimit

	// StatusInvalidOpcode means an undefined opcode was decoded. Terminal.
	StatusInvalidOpcode

	// StatusFault means a parameter could not be decoded: an unknown mode,
	// a negative address, or a write through an immediate parameter. Terminal.
	StatusFault
)

var statusNames = [...]string{
	StatusRunning:       "running",
	StatusHalted:        "halted",
	StatusNeedsInput:    "needs-input",
	StatusStepLimit:     "step-limit",
	StatusInvalidOpcode: "invalid-opcode",
	StatusFault:         "fault",
}

// String returns the status name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Terminal reports whether the VM can no longer make progress.
func (s Status) Terminal() bool {
	return s == StatusHalted || s == StatusInvalidOpcode || s == StatusFault
}

// Failed reports whether the status is a fatal error.
func (s Status) Failed() bool {
	return s == StatusInvalidOpcode || s == StatusFault
}

// Result is the outcome of a single Run invocation.
type Result struct {
	// Output holds the values emitted during this invocation only.
	Output []int64

	// Remaining is the unconsumed tail of the input passed to Run.
	Remaining []int64

	Status Status

	// Steps is the number of instructions executed during this invocation.
	Steps uint64

	// Err is set when Status is StatusInvalidOpcode or StatusFault.
	Err error
}

// Option configures a VM.
type Option func(*VM)

// WithStepLimit bounds the number of instructions a single Run may execute.
// Zero means unbounded.
func WithStepLimit(n uint64) Option {
	return func(vm *VM) {
		vm.stepLimit = n
	}
}

// WithDenseLimit sets the number of cells kept in contiguous memory.
func WithDenseLimit(cells int64) Option {
	return func(vm *VM) {
		vm.denseLimit = cells
	}
}

// VM is an Intcode virtual machine. A VM is not safe for concurrent use;
// distinct VMs share nothing and may run on different goroutines.
type VM struct {
	mem          *Memory
	ip           int64
	relativeBase int64

	status Status
	err    error

	stepLimit  uint64
	denseLimit int64

	// Lifetime counters
	steps       uint64
	runs        uint64
	suspensions uint64
}

// New creates a VM whose memory holds a copy of program at address 0.
func New(program []int64, opts ...Option) *VM {
	vm := &VM{
		denseLimit: DefaultDenseLimit,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.mem = NewMemory(program, vm.denseLimit)
	return vm
}

// Run executes until the program halts, blocks on input, exhausts the step
// budget or faults. Input is consumed front to back.
//
// A VM in a terminal state executes nothing: it returns the same status (and
// error) with all input remaining.
func (vm *VM) Run(input []int64) Result {
	vm.runs++
	if vm.status.Terminal() {
		return Result{Remaining: input, Status: vm.status, Err: vm.err}
	}

	vm.status = StatusRunning
	res := vm.execute(input)
	vm.status = res.Status
	vm.err = res.Err
	vm.steps += res.Steps
	if res.Status == StatusNeedsInput {
		vm.suspensions++
	}
	return res
}

// IP returns the current instruction pointer.
func (vm *VM) IP() int64 {
	return vm.ip
}

// RelativeBase returns the relative base register.
func (vm *VM) RelativeBase() int64 {
	return vm.relativeBase
}

// Status returns the status of the last invocation.
func (vm *VM) Status() Status {
	return vm.status
}

// Err returns the fatal error that stopped the VM, if any.
func (vm *VM) Err() error {
	return vm.err
}

// Steps returns the number of instructions executed over the VM's lifetime.
func (vm *VM) Steps() uint64 {
	return vm.steps
}

// Suspensions returns how many invocations stopped waiting for input.
func (vm *VM) Suspensions() uint64 {
	return vm.suspensions
}

// Runs returns the number of Run invocations.
func (vm *VM) Runs() uint64 {
	return vm.runs
}

// Peek returns the value at addr. Negative addresses read as zero. Peek
// never grows memory, so it does not move the end of the program.
func (vm *VM) Peek(addr int64) int64 {
	if addr < 0 {
		return 0
	}
	return vm.mem.Get(addr)
}

// Poke stores val at addr. Negative addresses are ignored.
func (vm *VM) Poke(addr, val int64) {
	if addr < 0 {
		return
	}
	vm.mem.Write(addr, val)
}

// Memory returns the VM's memory for inspection.
func (vm *VM) Memory() *Memory {
	return vm.mem
}
