package results

import (
	"sync"

	"github.com/partyfowl/aoc19/pkg/types"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*Record
	programs map[types.Digest]types.Program
}

// NewMemoryStore creates a new in-memory result store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*Record),
		programs: make(map[types.Digest]types.Program),
	}
}

// Get retrieves the record for key.
// Returns nil, nil if the record does not exist.
func (s *MemoryStore) Get(key Key) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[string(key.Bytes())]
	if !exists {
		return nil, nil
	}
	return rec.Clone(), nil
}

// Put stores a record.
func (s *MemoryStore) Put(key Key, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[string(key.Bytes())] = rec.Clone()
	return nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, string(key.Bytes()))
	return nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.records))
}

// PutProgram stores a program image and returns its digest.
func (s *MemoryStore) PutProgram(program types.Program) (types.Digest, error) {
	d := program.Digest()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.programs[d] = program.Clone()
	return d, nil
}

// GetProgram retrieves a program by digest.
// Returns nil, nil if the program does not exist.
func (s *MemoryStore) GetProgram(digest types.Digest) (types.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.programs[digest]
	if !exists {
		return nil, nil
	}
	return p.Clone(), nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping() error {
	return nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*Record)
	s.programs = make(map[types.Digest]types.Program)
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
