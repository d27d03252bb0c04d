package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyProgram is returned when program text contains no words.
var ErrEmptyProgram = errors.New("empty program")

// Program is an Intcode memory image.
type Program []int64

// Parse decodes comma-separated decimal text into a Program. Whitespace
// around tokens, including a trailing newline, is ignored.
func Parse(text string) (Program, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyProgram
	}

	tokens := strings.Split(text, ",")
	p := make(Program, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, fmt.Errorf("token %d: empty value", i)
		}
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		p[i] = v
	}
	return p, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// literals.
func MustParse(text string) Program {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the program as comma-separated decimal text.
func (p Program) String() string {
	var sb strings.Builder
	for i, w := range p {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(w, 10))
	}
	return sb.String()
}

// Clone returns an independent copy of the program.
func (p Program) Clone() Program {
	if p == nil {
		return nil
	}
	out := make(Program, len(p))
	copy(out, p)
	return out
}

// Digest returns the digest of the program image.
func (p Program) Digest() Digest {
	return DigestOf(p)
}

// ParseValues decodes a comma- or whitespace-separated list of integers, as
// used for input queues and phase settings on the command line. Empty text
// yields an empty slice.
func ParseValues(text string) ([]int64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]int64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
