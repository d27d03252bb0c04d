package intcode

// execute runs the main interpreter loop for one invocation.
func (vm *VM) execute(input []int64) Result {
	res := Result{Remaining: input}

	for {
		// Running off the end of memory is a normal halt
		if vm.ip >= vm.mem.Len() {
			res.Status = StatusHalted
			return res
		}

		// Check step budget
		if vm.stepLimit > 0 && res.Steps >= vm.stepLimit {
			res.Status = StatusStepLimit
			return res
		}

		word := vm.mem.Read(vm.ip)
		status, err := vm.step(word, &res)
		if err != nil {
			res.Status = status
			res.Err = err
			return res
		}
		if status != StatusRunning {
			res.Status = status
			return res
		}
	}
}

// step executes a single instruction. It returns StatusRunning to continue.
func (vm *VM) step(word int64, res *Result) (Status, error) {
	opcode := Opcode(word)
	info, ok := LookupOp(opcode)
	if !ok {
		return StatusInvalidOpcode, NewVMError(ErrInvalidOpcode, vm.ip, word, 0)
	}

	// Suspend before decoding so a blocked input leaves no trace
	if opcode == OpInput && len(res.Remaining) == 0 {
		return StatusNeedsInput, nil
	}

	ops, err := vm.decode(word, info.Params)
	if err != nil {
		return StatusFault, err
	}

	var dst int64
	if info.Dst != 0 {
		dst, err = vm.target(ops[info.Dst-1], word)
		if err != nil {
			return StatusFault, err
		}
	}

	next := vm.ip + info.Width()

	switch opcode {
	case OpAdd:
		vm.mem.Write(dst, ops[0].value+ops[1].value)

	case OpMul:
		vm.mem.Write(dst, ops[0].value*ops[1].value)

	case OpInput:
		vm.mem.Write(dst, res.Remaining[0])
		res.Remaining = res.Remaining[1:]

	case OpOutput:
		res.Output = append(res.Output, ops[0].value)

	case OpJumpIfTrue:
		if ops[0].value != 0 {
			next = ops[1].value
		}

	case OpJumpIfFalse:
		if ops[0].value == 0 {
			next = ops[1].value
		}

	case OpLessThan:
		vm.mem.Write(dst, boolWord(ops[0].value < ops[1].value))

	case OpEquals:
		vm.mem.Write(dst, boolWord(ops[0].value == ops[1].value))

	case OpAdjustBase:
		vm.relativeBase += ops[0].value

	case OpHalt:
		res.Steps++
		return StatusHalted, nil
	}

	if next < 0 {
		return StatusFault, NewVMError(ErrNegativeAddress, vm.ip, word, next)
	}

	vm.ip = next
	res.Steps++
	return StatusRunning, nil
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
