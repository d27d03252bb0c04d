package types

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	p, err := Parse("1,9,10,3,2,3,11,0,99,30,40,50\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(p) != 12 {
		t.Fatalf("expected 12 words, got %d", len(p))
	}
	if p[0] != 1 || p[11] != 50 {
		t.Errorf("unexpected words: %v", p)
	}
}

func TestParseWhitespaceAndNegatives(t *testing.T) {
	p, err := Parse("  104, -7 ,\t99 \r\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := Program{104, -7, 99}
	if p.String() != want.String() {
		t.Errorf("expected %v, got %v", want, p)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty program"},
		{"blank", " \n", "empty program"},
		{"empty token", "1,,99", "token 1"},
		{"trailing comma", "1,2,", "token 2"},
		{"not a number", "1,x,99", "token 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := Parse(""); !errors.Is(err, ErrEmptyProgram) {
		t.Errorf("expected ErrEmptyProgram, got %v", err)
	}
}

func TestProgramString(t *testing.T) {
	text := "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"
	p := MustParse(text)
	if p.String() != text {
		t.Errorf("expected %q, got %q", text, p.String())
	}
}

func TestClone(t *testing.T) {
	p := Program{1, 2, 3}
	c := p.Clone()
	c[0] = 42
	if p[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
	if Program(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestParseValues(t *testing.T) {
	v, err := ParseValues("4, 3 2\n1,0")
	if err != nil {
		t.Fatalf("ParseValues failed: %v", err)
	}
	if len(v) != 5 || v[0] != 4 || v[4] != 0 {
		t.Errorf("unexpected values: %v", v)
	}

	v, err = ParseValues("")
	if err != nil || len(v) != 0 {
		t.Errorf("expected empty slice, got %v, %v", v, err)
	}

	if _, err := ParseValues("1,two"); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestDigest(t *testing.T) {
	a := MustParse("1,0,0,0,99")
	b := MustParse(" 1, 0, 0, 0, 99\n")
	c := MustParse("1,0,0,0,98")

	if a.Digest() != b.Digest() {
		t.Error("digest depends on formatting")
	}
	if a.Digest() == c.Digest() {
		t.Error("different programs produced the same digest")
	}
	if a.Digest().IsZero() {
		t.Error("digest should not be zero")
	}
	if !ZeroDigest.IsZero() {
		t.Error("ZeroDigest should be zero")
	}
}

func TestDigestStringRoundTrip(t *testing.T) {
	d := MustParse("3,0,4,0,99").Digest()
	s := d.String()

	parsed, err := DigestFromString(s)
	if err != nil {
		t.Fatalf("DigestFromString failed: %v", err)
	}
	if parsed != d {
		t.Errorf("expected %s, got %s", d, parsed)
	}
	if len(d.Hex()) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(d.Hex()))
	}
}

func TestDigestFromStringErrors(t *testing.T) {
	if _, err := DigestFromString("0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
	if _, err := DigestFromString("3mJr7AoUXx2Wqd"); err == nil {
		t.Error("expected error for short digest")
	}
	if _, err := DigestFromBytes(make([]byte, 31)); err == nil {
		t.Error("expected error for 31 bytes")
	}
}
