// Package source loads Intcode programs from text files, optionally
// zstd-compressed.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/partyfowl/aoc19/pkg/types"
)

// CompressedSuffix marks program files stored as zstd frames.
const CompressedSuffix = ".zst"

// MaxProgramSize bounds the decompressed size of a program file.
const MaxProgramSize = 64 << 20

var (
	// ErrTooLarge is returned when a program exceeds MaxProgramSize.
	ErrTooLarge = errors.New("program too large")

	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Load reads the program stored at path.
func Load(path string) (types.Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, CompressedSuffix) {
		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to create zstd decoder: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	p, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Read parses program text from r. Input that begins with a zstd frame is
// decompressed first.
func Read(r io.Reader) (types.Program, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	data, err := io.ReadAll(io.LimitReader(src, MaxProgramSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	if len(data) > MaxProgramSize {
		return nil, ErrTooLarge
	}
	return types.Parse(string(data))
}

// Compress writes program as a single zstd frame.
func Compress(w io.Writer, program types.Program) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := io.WriteString(enc, program.String()); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress program: %w", err)
	}
	return enc.Close()
}

// Save writes program to path, compressing it when path ends in
// CompressedSuffix.
func Save(path string, program types.Program) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create program file: %w", err)
	}

	if strings.HasSuffix(path, CompressedSuffix) {
		err = Compress(file, program)
	} else {
		_, err = io.WriteString(file, program.String()+"\n")
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return file.Close()
}
