// Package arcade decodes the draw instructions emitted by the arcade cabinet
// program. Output is a stream of (x, y, tile) triples; the triple at
// (-1, 0) carries the score instead of a tile.
package arcade

import (
	"errors"
	"fmt"
	"strings"

	"github.com/partyfowl/aoc19/pkg/intcode"
	"github.com/partyfowl/aoc19/pkg/types"
)

var (
	// ErrTruncated is returned when the output length is not a multiple of
	// three.
	ErrTruncated = errors.New("truncated draw instruction")

	// ErrNotHalted is returned when the cabinet program stops without
	// halting, for example by asking for joystick input.
	ErrNotHalted = errors.New("cabinet program did not halt")
)

// MaxRenderSize bounds each side of a rendered screen. Cells beyond it are
// clipped.
const MaxRenderSize = 1024

// Kind is a tile type.
type Kind int64

const (
	Empty Kind = iota
	Wall
	Block
	Paddle
	Ball
)

var kindGlyphs = [...]byte{
	Empty:  ' ',
	Wall:   '#',
	Block:  '=',
	Paddle: '-',
	Ball:   'o',
}

var kindNames = [...]string{
	Empty:  "empty",
	Wall:   "wall",
	Block:  "block",
	Paddle: "paddle",
	Ball:   "ball",
}

// String returns the tile name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int64(k))
	}
	return kindNames[k]
}

// Tile is one decoded draw instruction.
type Tile struct {
	X, Y int64
	Kind Kind
}

// IsScore reports whether the tile is the score cell.
func (t Tile) IsScore() bool {
	return t.X == -1 && t.Y == 0
}

// Decode splits output into tiles.
func Decode(output []int64) ([]Tile, error) {
	if len(output)%3 != 0 {
		return nil, fmt.Errorf("%w: %d values", ErrTruncated, len(output))
	}
	tiles := make([]Tile, 0, len(output)/3)
	for i := 0; i < len(output); i += 3 {
		tiles = append(tiles, Tile{X: output[i], Y: output[i+1], Kind: Kind(output[i+2])})
	}
	return tiles, nil
}

// Count returns how many draw instructions place kind. Score cells are not
// counted.
func Count(tiles []Tile, kind Kind) int {
	n := 0
	for _, t := range tiles {
		if !t.IsScore() && t.Kind == kind {
			n++
		}
	}
	return n
}

// Screen is the state of the display after applying draw instructions.
type Screen struct {
	cells  map[[2]int64]Kind
	score  int64
	width  int64
	height int64
}

// NewScreen creates an empty screen.
func NewScreen() *Screen {
	return &Screen{cells: make(map[[2]int64]Kind)}
}

// Apply draws tiles in order. Later instructions overwrite earlier ones.
func (s *Screen) Apply(tiles []Tile) {
	for _, t := range tiles {
		if t.IsScore() {
			s.score = int64(t.Kind)
			continue
		}
		if t.X < 0 || t.Y < 0 {
			continue
		}
		s.cells[[2]int64{t.X, t.Y}] = t.Kind
		if t.X >= s.width {
			s.width = t.X + 1
		}
		if t.Y >= s.height {
			s.height = t.Y + 1
		}
	}
}

// At returns the tile at (x, y).
func (s *Screen) At(x, y int64) Kind {
	return s.cells[[2]int64{x, y}]
}

// Score returns the last score drawn.
func (s *Screen) Score() int64 {
	return s.score
}

// Count returns how many cells currently show kind.
func (s *Screen) Count(kind Kind) int {
	n := 0
	for _, k := range s.cells {
		if k == kind {
			n++
		}
	}
	return n
}

// String renders the screen one row per line, clipped to MaxRenderSize.
func (s *Screen) String() string {
	width, height := min(s.width, MaxRenderSize), min(s.height, MaxRenderSize)

	var sb strings.Builder
	sb.Grow(int((width + 1) * height))
	for y := int64(0); y < height; y++ {
		for x := int64(0); x < width; x++ {
			k := s.At(x, y)
			if k >= 0 && int(k) < len(kindGlyphs) {
				sb.WriteByte(kindGlyphs[k])
			} else {
				sb.WriteByte('?')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Play runs the cabinet program without input and returns the resulting
// screen.
func Play(program types.Program, opts ...intcode.Option) (*Screen, error) {
	vm := intcode.New(program, opts...)
	res := vm.Run(nil)
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Status != intcode.StatusHalted {
		return nil, fmt.Errorf("%w: %s", ErrNotHalted, res.Status)
	}

	tiles, err := Decode(res.Output)
	if err != nil {
		return nil, err
	}
	screen := NewScreen()
	screen.Apply(tiles)
	return screen, nil
}
