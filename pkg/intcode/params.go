package intcode

// operand is a decoded instruction parameter.
type operand struct {
	mode  int64
	addr  int64 // Resolved address; unused in immediate mode
	value int64 // Dereferenced value, or the literal in immediate mode
}

// decode resolves the first n parameters of the instruction at vm.ip.
//
// Every position or relative parameter is dereferenced, so its address is
// made resolvable even when the instruction only writes to it.
func (vm *VM) decode(word int64, n int) ([MaxParams]operand, error) {
	var ops [MaxParams]operand
	for k := 1; k <= n; k++ {
		raw := vm.mem.Read(vm.ip + int64(k))
		op := operand{mode: Mode(word, k)}

		switch op.mode {
		case ModePosition:
			op.addr = raw
		case ModeImmediate:
			op.value = raw
			ops[k-1] = op
			continue
		case ModeRelative:
			op.addr = vm.relativeBase + raw
		default:
			return ops, NewVMError(ErrInvalidMode, vm.ip, word, 0)
		}

		if op.addr < 0 {
			return ops, NewVMError(ErrNegativeAddress, vm.ip, word, op.addr)
		}
		op.value = vm.mem.Read(op.addr)
		ops[k-1] = op
	}
	return ops, nil
}

// target returns the write address of a decoded parameter.
func (vm *VM) target(op operand, word int64) (int64, error) {
	if op.mode == ModeImmediate {
		return 0, NewVMError(ErrImmediateWrite, vm.ip, word, 0)
	}
	return op.addr, nil
}
