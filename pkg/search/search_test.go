package search

import (
	"errors"
	"fmt"
	"testing"

	"github.com/partyfowl/aoc19/pkg/intcode"
	"github.com/partyfowl/aoc19/pkg/results"
	"github.com/partyfowl/aoc19/pkg/types"
)

const (
	serialProgram   = "3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0"
	feedbackProgram = "3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,27,4,27,1001,28,-1,28,1005,28,6,99,0,0,5"
)

func TestPermutations(t *testing.T) {
	got := Permutations([]int64{1, 2, 3})
	want := [][]int64{{1, 2, 3}, {1, 3, 2}, {2, 1, 3}, {2, 3, 1}, {3, 1, 2}, {3, 2, 1}}

	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if n := len(Permutations([]int64{5, 6, 7, 8, 9})); n != 120 {
		t.Errorf("expected 120 permutations, got %d", n)
	}
	if Permutations(nil) != nil {
		t.Error("expected nil for empty input")
	}
}

func TestPermutationsKeepsInputOrderFirst(t *testing.T) {
	perms := Permutations([]int64{9, 5, 7})
	if fmt.Sprint(perms[0]) != "[9 5 7]" {
		t.Errorf("expected [9 5 7] first, got %v", perms[0])
	}
	if fmt.Sprint(perms[len(perms)-1]) != "[7 5 9]" {
		t.Errorf("expected [7 5 9] last, got %v", perms[len(perms)-1])
	}
}

func TestMaxSignal(t *testing.T) {
	tests := []struct {
		name    string
		program string
		mode    Mode
		want    int64
		phases  string
	}{
		{"serial", serialProgram, ModeSerial, 43210, "[4 3 2 1 0]"},
		{"feedback", feedbackProgram, ModeFeedback, 139629729, "[9 8 7 6 5]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, err := MaxSignal(types.MustParse(tt.program), tt.mode.DefaultPhases(), tt.mode)
			if err != nil {
				t.Fatalf("MaxSignal failed: %v", err)
			}
			if best.Signal != tt.want {
				t.Errorf("expected signal %d, got %d", tt.want, best.Signal)
			}
			if fmt.Sprint(best.Phases) != tt.phases {
				t.Errorf("expected phases %s, got %v", tt.phases, best.Phases)
			}
			if best.Evaluated != 120 {
				t.Errorf("expected 120 evaluations, got %d", best.Evaluated)
			}
		})
	}
}

func TestMaxSignalTieKeepsFirst(t *testing.T) {
	// Ignores its phase and echoes the signal
	program := types.MustParse("3,0,3,0,4,0,99")
	best, err := MaxSignal(program, []int64{2, 1, 0}, ModeSerial, WithSeed(7))
	if err != nil {
		t.Fatalf("MaxSignal failed: %v", err)
	}
	if best.Signal != 7 {
		t.Errorf("expected signal 7, got %d", best.Signal)
	}
	if fmt.Sprint(best.Phases) != "[2 1 0]" {
		t.Errorf("expected first ordering, got %v", best.Phases)
	}
}

func TestMaxSignalCache(t *testing.T) {
	store := results.NewMemoryStore()
	program := types.MustParse(feedbackProgram)

	first, err := MaxSignal(program, ModeFeedback.DefaultPhases(), ModeFeedback, WithStore(store))
	if err != nil {
		t.Fatalf("MaxSignal failed: %v", err)
	}
	if first.CacheHits != 0 {
		t.Errorf("expected no cache hits, got %d", first.CacheHits)
	}
	if store.Count() != 120 {
		t.Errorf("expected 120 stored records, got %d", store.Count())
	}

	second, err := MaxSignal(program, ModeFeedback.DefaultPhases(), ModeFeedback, WithStore(store))
	if err != nil {
		t.Fatalf("MaxSignal failed: %v", err)
	}
	if second.CacheHits != 120 {
		t.Errorf("expected 120 cache hits, got %d", second.CacheHits)
	}
	if second.Signal != first.Signal || fmt.Sprint(second.Phases) != fmt.Sprint(first.Phases) {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}

	rec, err := store.Get(results.Key{Digest: program.Digest(), Mode: "feedback", Phases: []int64{9, 8, 7, 6, 5}})
	if err != nil || rec == nil {
		t.Fatalf("expected stored record, got %v, %v", rec, err)
	}
	if rec.Signal != 139629729 || rec.Rounds != 5 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestMaxSignalErrors(t *testing.T) {
	if _, err := MaxSignal(types.MustParse("99"), nil, ModeSerial); err == nil {
		t.Error("expected error for empty phases")
	}
	if _, err := MaxSignal(types.MustParse("99"), []int64{0}, Mode(7)); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}

	_, err := MaxSignal(types.MustParse("3,0,77"), []int64{0, 1}, ModeFeedback)
	if !errors.Is(err, intcode.ErrInvalidOpcode) {
		t.Errorf("expected ErrInvalidOpcode, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeSerial, ModeFeedback} {
		got, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("ParseMode(%q) failed: %v", m, err)
		}
		if got != m {
			t.Errorf("expected %v, got %v", m, got)
		}
	}
	if _, err := ParseMode("parallel"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestGravity(t *testing.T) {
	program := types.MustParse("1,9,10,3,2,3,11,0,99,30,40,50")
	got, err := Gravity(program, 9, 10)
	if err != nil {
		t.Fatalf("Gravity failed: %v", err)
	}
	if got != 3500 {
		t.Errorf("expected 3500, got %d", got)
	}
	if program[1] != 9 || program[3] != 3 {
		t.Error("Gravity mutated the caller's program")
	}
}

func TestGravityErrors(t *testing.T) {
	if _, err := Gravity(types.MustParse("3,0,99"), 0, 0); !errors.Is(err, ErrNotHalted) {
		t.Errorf("expected ErrNotHalted, got %v", err)
	}
	if _, err := Gravity(types.MustParse("1,0,0,0,42"), 0, 0); !errors.Is(err, intcode.ErrInvalidOpcode) {
		t.Errorf("expected ErrInvalidOpcode, got %v", err)
	}
}

func TestNounVerb(t *testing.T) {
	// Multiplies noun and verb as immediates into cell 0
	program := types.MustParse("1102,0,0,0,99")

	noun, verb, err := NounVerb(program, 12, 99)
	if err != nil {
		t.Fatalf("NounVerb failed: %v", err)
	}
	if noun != 1 || verb != 12 {
		t.Errorf("expected (1, 12), got (%d, %d)", noun, verb)
	}

	if _, _, err := NounVerb(program, 12, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
