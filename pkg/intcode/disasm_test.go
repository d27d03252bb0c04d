package intcode

import (
	"testing"
)

func TestDisassemble(t *testing.T) {
	program := []int64{1002, 4, 3, 4, 3, 7, 204, -1, 109, 5, 99, 42}
	lines := Disassemble(program)

	want := []string{
		"     0: MUL [4] #3 -> [4]",
		"     4: IN [7]",
		"     6: OUT [rb-1]",
		"     8: ARB #5",
		"    10: HALT",
		"    11: DATA 42",
	}

	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i, line := range lines {
		if line.String() != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], line.String())
		}
	}
}

func TestDisassembleTruncated(t *testing.T) {
	// ADD needs three operands but only two follow
	lines := Disassemble([]int64{1, 0, 0})
	if len(lines) != 3 {
		t.Fatalf("expected 3 data lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !line.IsData {
			t.Errorf("expected data at %d, got %s", line.Addr, line.Info.Name)
		}
	}
}

func TestDisassembleRejectsImmediateDestination(t *testing.T) {
	lines := Disassemble([]int64{11101, 1, 1, 0})
	if !lines[0].IsData {
		t.Errorf("expected data for immediate destination, got %s", lines[0])
	}
}
