package results

import (
	"bytes"
	"sync"
	"testing"

	"github.com/partyfowl/aoc19/pkg/types"
)

func testKey(program string, mode string, phases ...int64) Key {
	return Key{
		Digest: types.MustParse(program).Digest(),
		Mode:   mode,
		Phases: phases,
	}
}

// storeFactories lets each behavioural test run against both backends.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
	"badger": func(t *testing.T) Store {
		s, err := OpenBadgerStore(t.TempDir())
		if err != nil {
			t.Fatalf("OpenBadgerStore failed: %v", err)
		}
		return s
	},
}

func TestKeyBytes(t *testing.T) {
	a := testKey("3,0,4,0,99", "feedback", 5, 6, 7, 8, 9)
	b := testKey("3,0,4,0,99", "feedback", 5, 6, 7, 8, 9)
	c := testKey("3,0,4,0,99", "feedback", 9, 8, 7, 6, 5)
	d := testKey("3,0,4,0,99", "serial", 5, 6, 7, 8, 9)

	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("equal keys rendered differently")
	}
	if bytes.Equal(a.Bytes(), c.Bytes()) {
		t.Error("phase order not reflected in key")
	}
	if bytes.Equal(a.Bytes(), d.Bytes()) {
		t.Error("mode not reflected in key")
	}
}

func TestRecordEncoding(t *testing.T) {
	rec := &Record{Signal: 139629729, Rounds: 5, CreatedAt: 1700000000}

	data, err := MarshalRecord(rec)
	if err != nil {
		t.Fatalf("MarshalRecord failed: %v", err)
	}
	again, err := MarshalRecord(rec)
	if err != nil {
		t.Fatalf("MarshalRecord failed: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("encoding is not deterministic")
	}

	got, err := UnmarshalRecord(data)
	if err != nil {
		t.Fatalf("UnmarshalRecord failed: %v", err)
	}
	if *got != *rec {
		t.Errorf("expected %+v, got %+v", rec, got)
	}

	if _, err := UnmarshalRecord([]byte{0xff}); err == nil {
		t.Error("expected error for malformed data")
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			key := testKey("3,0,4,0,99", "serial", 0, 1, 2, 3, 4)
			rec := &Record{Signal: 54321, CreatedAt: 1}

			if err := s.Put(key, rec); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, err := s.Get(key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got == nil {
				t.Fatal("Get returned nil for existing record")
			}
			if got.Signal != 54321 {
				t.Errorf("expected signal 54321, got %d", got.Signal)
			}

			// Returned records are copies
			got.Signal = 0
			again, _ := s.Get(key)
			if again.Signal != 54321 {
				t.Error("store returned shared record")
			}
		})
	}
}

func TestStore_GetNotFound(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			got, err := s.Get(testKey("99", "serial", 0))
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})
	}
}

func TestStore_CountAndDelete(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			k1 := testKey("99", "serial", 0, 1)
			k2 := testKey("99", "serial", 1, 0)

			s.Put(k1, &Record{Signal: 1})
			s.Put(k2, &Record{Signal: 2})
			s.Put(k1, &Record{Signal: 3})

			if s.Count() != 2 {
				t.Errorf("expected 2 records, got %d", s.Count())
			}

			if err := s.Delete(k1); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := s.Delete(k1); err != nil {
				t.Fatalf("second Delete failed: %v", err)
			}
			if s.Count() != 1 {
				t.Errorf("expected 1 record, got %d", s.Count())
			}
		})
	}
}

func TestStore_Programs(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			program := types.MustParse("109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99")
			d, err := s.PutProgram(program)
			if err != nil {
				t.Fatalf("PutProgram failed: %v", err)
			}
			if d != program.Digest() {
				t.Errorf("expected digest %s, got %s", program.Digest(), d)
			}

			got, err := s.GetProgram(d)
			if err != nil {
				t.Fatalf("GetProgram failed: %v", err)
			}
			if got.String() != program.String() {
				t.Errorf("expected %v, got %v", program, got)
			}

			missing, err := s.GetProgram(types.ZeroDigest)
			if err != nil {
				t.Fatalf("GetProgram failed: %v", err)
			}
			if missing != nil {
				t.Errorf("expected nil program, got %v", missing)
			}

			// Programs are not counted as records
			if s.Count() != 0 {
				t.Errorf("expected 0 records, got %d", s.Count())
			}
		})
	}
}

func TestBadgerStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	key := testKey("3,0,4,0,99", "feedback", 9, 8, 7, 6, 5)

	s, err := OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("OpenBadgerStore failed: %v", err)
	}
	if err := s.Put(key, &Record{Signal: 18216, Rounds: 10}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if s.Count() != 1 {
		t.Errorf("expected 1 record after reopen, got %d", s.Count())
	}
	got, err := s.Get(key)
	if err != nil || got == nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Signal != 18216 || got.Rounds != 10 {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := testKey("99", "serial", int64(i))
			s.Put(key, &Record{Signal: int64(i)})
			s.Get(key)
		}(i)
	}
	wg.Wait()

	if s.Count() != 10 {
		t.Errorf("expected 10 records, got %d", s.Count())
	}
}

func TestStore_ConcurrentSameKey(t *testing.T) {
	for name, open := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			key := testKey("3,0,4,0,99", "serial", 0, 1, 2, 3, 4)

			// Transactions may conflict; only committed writes count.
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = s.Put(key, &Record{Signal: int64(i)})
				}(i)
			}
			wg.Wait()

			if _, err := s.Get(key); err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if s.Count() != 1 {
				t.Errorf("expected 1 record after concurrent puts, got %d", s.Count())
			}

			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = s.Delete(key)
				}()
			}
			wg.Wait()

			if s.Count() != 0 {
				t.Errorf("expected 0 records after concurrent deletes, got %d", s.Count())
			}
		})
	}
}
