// Package results stores amplifier search outcomes and the programs they were
// computed for, keyed by program digest.
package results

import (
	"encoding/binary"
	"errors"

	"github.com/partyfowl/aoc19/pkg/types"
)

// ErrClosed is returned by Ping after Close.
var ErrClosed = errors.New("store closed")

// Store defines the interface for result storage.
type Store interface {
	// Get retrieves the record for key.
	// Returns nil, nil if the record does not exist.
	Get(key Key) (*Record, error)

	// Put stores a record.
	Put(key Key, rec *Record) error

	// Delete removes a record.
	Delete(key Key) error

	// Count returns the number of stored records.
	Count() uint64

	// PutProgram stores a program image and returns its digest.
	PutProgram(program types.Program) (types.Digest, error)

	// GetProgram retrieves a program by digest.
	// Returns nil, nil if the program does not exist.
	GetProgram(digest types.Digest) (types.Program, error)

	// Ping reports an error if the store cannot serve requests.
	Ping() error

	// Close closes the store.
	Close() error
}

// Key identifies the signal of one phase ordering for one program.
type Key struct {
	Digest types.Digest
	Mode   string
	Phases []int64
}

// Bytes renders the key as digest, mode length, mode and big-endian phases.
func (k Key) Bytes() []byte {
	buf := make([]byte, 0, 32+1+len(k.Mode)+8*len(k.Phases))
	buf = append(buf, k.Digest[:]...)
	buf = append(buf, byte(len(k.Mode)))
	buf = append(buf, k.Mode...)
	for _, p := range k.Phases {
		buf = binary.BigEndian.AppendUint64(buf, uint64(p))
	}
	return buf
}

// Record is a stored network evaluation.
type Record struct {
	Signal int64 `cbor:"1,keyasint"`
	Rounds int   `cbor:"2,keyasint,omitempty"`
	// CreatedAt is the evaluation time in Unix seconds.
	CreatedAt int64 `cbor:"3,keyasint"`
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
