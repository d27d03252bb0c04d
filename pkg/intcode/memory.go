package intcode

import "math"

// DefaultDenseLimit is the number of cells kept in the contiguous region
// before further addresses spill into the sparse overflow region.
const DefaultDenseLimit = 1 << 20

// Memory is the word-addressed store of a single VM.
//
// Cells below the dense limit live in a slice that grows with zero fill on
// first reference. Cells at or past the limit live in a map, so a program that
// touches a very high address does not force a huge allocation. Either way an
// unreferenced cell reads as zero, and memory never shrinks.
type Memory struct {
	dense      []int64
	sparse     map[int64]int64
	denseLimit int64

	// extent is one past the highest address ever referenced, saturating
	// at math.MaxInt64.
	extent int64
}

// NewMemory creates a memory initialised with a copy of image at address 0.
func NewMemory(image []int64, denseLimit int64) *Memory {
	if denseLimit <= 0 {
		denseLimit = DefaultDenseLimit
	}
	n := int64(len(image))
	if n > denseLimit {
		denseLimit = n
	}
	dense := make([]int64, n)
	copy(dense, image)
	return &Memory{
		dense:      dense,
		denseLimit: denseLimit,
		extent:     n,
	}
}

// Extend makes addr resolvable, zero-filling every new dense cell up to it.
// Callers must reject negative addresses first.
func (m *Memory) Extend(addr int64) {
	if addr >= m.extent {
		if addr == math.MaxInt64 {
			m.extent = math.MaxInt64
		} else {
			m.extent = addr + 1
		}
	}
	if addr < int64(len(m.dense)) || addr >= m.denseLimit {
		return
	}
	if addr < int64(cap(m.dense)) {
		m.dense = m.dense[:addr+1]
		return
	}
	grown := make([]int64, addr+1, growCap(int64(cap(m.dense)), addr+1, m.denseLimit))
	copy(grown, m.dense)
	m.dense = grown
}

func growCap(old, need, limit int64) int64 {
	c := old * 2
	if c < need {
		c = need
	}
	if c > limit {
		c = limit
	}
	return c
}

// Read returns the value at addr, extending memory to cover it.
func (m *Memory) Read(addr int64) int64 {
	m.Extend(addr)
	if addr < int64(len(m.dense)) {
		return m.dense[addr]
	}
	return m.sparse[addr]
}

// Get returns the value at addr without extending memory.
func (m *Memory) Get(addr int64) int64 {
	if addr < int64(len(m.dense)) {
		return m.dense[addr]
	}
	return m.sparse[addr]
}

// Write stores val at addr, extending memory to cover it.
func (m *Memory) Write(addr, val int64) {
	m.Extend(addr)
	if addr < int64(len(m.dense)) {
		m.dense[addr] = val
		return
	}
	if m.sparse == nil {
		m.sparse = make(map[int64]int64)
	}
	m.sparse[addr] = val
}

// Len returns one past the highest address ever referenced.
func (m *Memory) Len() int64 {
	return m.extent
}

// Snapshot returns a copy of the dense region.
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, len(m.dense))
	copy(out, m.dense)
	return out
}

// SparseCells returns the number of cells held in the overflow region.
func (m *Memory) SparseCells() int {
	return len(m.sparse)
}
