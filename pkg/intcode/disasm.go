package intcode

import (
	"fmt"
	"strings"
)

// Line is one disassembled instruction or data word.
type Line struct {
	Addr   int64
	Words  []int64
	Info   OpInfo
	IsData bool
}

// String renders the line as "addr: MNEMONIC operands".
//
// Operands are shown as [n] for position, #n for immediate and [rb+n] for
// relative mode. The destination is separated by an arrow.
func (l Line) String() string {
	if l.IsData {
		return fmt.Sprintf("%6d: DATA %d", l.Addr, l.Words[0])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%6d: %s", l.Addr, l.Info.Name)
	word := l.Words[0]
	for k := 1; k <= l.Info.Params; k++ {
		if k == l.Info.Dst && k > 1 {
			sb.WriteString(" ->")
		}
		sb.WriteByte(' ')
		sb.WriteString(formatOperand(Mode(word, k), l.Words[k]))
	}
	return sb.String()
}

func formatOperand(mode, raw int64) string {
	switch mode {
	case ModePosition:
		return fmt.Sprintf("[%d]", raw)
	case ModeImmediate:
		return fmt.Sprintf("#%d", raw)
	case ModeRelative:
		if raw < 0 {
			return fmt.Sprintf("[rb%d]", raw)
		}
		return fmt.Sprintf("[rb+%d]", raw)
	}
	return fmt.Sprintf("?%d", raw)
}

// Disassemble decodes program with a linear sweep. Words that do not form a
// valid instruction, or whose operands run past the end, are emitted as data.
func Disassemble(program []int64) []Line {
	var lines []Line
	for addr := int64(0); addr < int64(len(program)); {
		word := program[addr]
		info, ok := LookupOp(Opcode(word))
		end := addr + info.Width()
		if !ok || end > int64(len(program)) || !validModes(word, info) {
			lines = append(lines, Line{Addr: addr, Words: program[addr : addr+1], IsData: true})
			addr++
			continue
		}
		lines = append(lines, Line{Addr: addr, Words: program[addr:end], Info: info})
		addr = end
	}
	return lines
}

func validModes(word int64, info OpInfo) bool {
	if word < 0 {
		return false
	}
	for k := 1; k <= info.Params; k++ {
		m := Mode(word, k)
		if m > ModeRelative {
			return false
		}
		if k == info.Dst && m == ModeImmediate {
			return false
		}
	}
	return true
}
