package results

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/partyfowl/aoc19/pkg/types"
)

const (
	// signalKeyPrefix is the prefix for search records in BadgerDB.
	signalKeyPrefix = "signal:"

	// programKeyPrefix is the prefix for program images in BadgerDB.
	programKeyPrefix = "program:"
)

// BadgerStore is a persistent implementation of Store using BadgerDB.
type BadgerStore struct {
	db    *badger.DB
	count atomic.Uint64
}

// OpenBadgerStore opens or creates a result store at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &BadgerStore{
		db: db,
	}

	count, err := s.countRecords()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	s.count.Store(count)

	return s, nil
}

func makeSignalKey(key Key) []byte {
	return append([]byte(signalKeyPrefix), key.Bytes()...)
}

func makeProgramKey(digest types.Digest) []byte {
	key := make([]byte, len(programKeyPrefix)+len(digest))
	copy(key, programKeyPrefix)
	copy(key[len(programKeyPrefix):], digest[:])
	return key
}

// Get retrieves the record for key.
// Returns nil, nil if the record does not exist.
func (s *BadgerStore) Get(key Key) (*Record, error) {
	var rec *Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeSignalKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var decErr error
			rec, decErr = UnmarshalRecord(val)
			return decErr
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// Put stores a record.
func (s *BadgerStore) Put(key Key, rec *Record) error {
	data, err := MarshalRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	k := makeSignalKey(key)
	var created bool
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		created = errors.Is(err, badger.ErrKeyNotFound)
		return txn.Set(k, data)
	})

	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	// Count only committed inserts
	if created {
		s.count.Add(1)
	}
	return nil
}

// Delete removes a record.
func (s *BadgerStore) Delete(key Key) error {
	k := makeSignalKey(key)

	var removed bool
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(k); err != nil {
			return err
		}
		removed = true
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if removed {
		s.count.Add(^uint64(0))
	}
	return nil
}

// Count returns the number of stored records.
func (s *BadgerStore) Count() uint64 {
	return s.count.Load()
}

// PutProgram stores a program image and returns its digest.
func (s *BadgerStore) PutProgram(program types.Program) (types.Digest, error) {
	d := program.Digest()
	data, err := MarshalProgram(program)
	if err != nil {
		return d, fmt.Errorf("failed to encode program: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeProgramKey(d), data)
	})
	if err != nil {
		return d, fmt.Errorf("failed to put program: %w", err)
	}
	return d, nil
}

// GetProgram retrieves a program by digest.
// Returns nil, nil if the program does not exist.
func (s *BadgerStore) GetProgram(digest types.Digest) (types.Program, error) {
	var program types.Program

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeProgramKey(digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var decErr error
			program, decErr = UnmarshalProgram(val)
			return decErr
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	return program, nil
}

// Ping returns ErrClosed once the database has been closed.
func (s *BadgerStore) Ping() error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) countRecords() (uint64, error) {
	var count uint64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(signalKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// Ensure BadgerStore implements Store.
var _ Store = (*BadgerStore)(nil)
