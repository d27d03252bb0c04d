package intcode

// Intcode instruction word:
// +----------+----------+----------+--------+
// |  mode 3  |  mode 2  |  mode 1  | opcode |
// +----------+----------+----------+--------+
//   10^4       10^3       10^2       10^0..10^1
//
// The opcode is the word modulo 100. The mode of parameter k is the decimal
// digit at 10^(k+1).

// Opcodes
const (
	OpAdd         = 1  // dst := a + b
	OpMul         = 2  // dst := a * b
	OpInput       = 3  // dst := next input
	OpOutput      = 4  // emit a
	OpJumpIfTrue  = 5  // if a != 0 { ip = target }
	OpJumpIfFalse = 6  // if a == 0 { ip = target }
	OpLessThan    = 7  // dst := a < b
	OpEquals      = 8  // dst := a == b
	OpAdjustBase  = 9  // relative base += a
	OpHalt        = 99 // stop
)

// Parameter modes
const (
	ModePosition  = 0 // parameter is an address
	ModeImmediate = 1 // parameter is the value
	ModeRelative  = 2 // parameter is an offset from the relative base
)

// MaxParams is the largest parameter count of any instruction.
const MaxParams = 3

// OpInfo describes the shape of an instruction.
type OpInfo struct {
	Name   string
	Params int
	// Dst is the 1-based index of the parameter written by the instruction,
	// or 0 if the instruction writes nothing.
	Dst int
}

// Width returns the number of words the instruction occupies.
func (o OpInfo) Width() int64 {
	return int64(o.Params) + 1
}

var opTable = map[int64]OpInfo{
	OpAdd:         {Name: "ADD", Params: 3, Dst: 3},
	OpMul:         {Name: "MUL", Params: 3, Dst: 3},
	OpInput:       {Name: "IN", Params: 1, Dst: 1},
	OpOutput:      {Name: "OUT", Params: 1},
	OpJumpIfTrue:  {Name: "JNZ", Params: 2},
	OpJumpIfFalse: {Name: "JZ", Params: 2},
	OpLessThan:    {Name: "LT", Params: 3, Dst: 3},
	OpEquals:      {Name: "EQ", Params: 3, Dst: 3},
	OpAdjustBase:  {Name: "ARB", Params: 1},
	OpHalt:        {Name: "HALT", Params: 0},
}

// LookupOp returns the description of an opcode.
func LookupOp(opcode int64) (OpInfo, bool) {
	info, ok := opTable[opcode]
	return info, ok
}

// Opcode extracts the opcode from an instruction word.
func Opcode(word int64) int64 {
	return word % 100
}

// Mode extracts the addressing mode of parameter k (1-based) from an
// instruction word.
func Mode(word int64, k int) int64 {
	div := int64(100)
	for i := 1; i < k; i++ {
		div *= 10
	}
	return (word / div) % 10
}
