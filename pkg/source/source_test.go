package source

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/partyfowl/aoc19/pkg/types"
)

const day9 = "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"

func TestLoadPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte(day9+"\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.String() != day9 {
		t.Errorf("expected %q, got %q", day9, p.String())
	}
}

func TestSaveLoadCompressed(t *testing.T) {
	want := types.MustParse(day9)
	path := filepath.Join(t.TempDir(), "input.txt.zst")

	if err := Save(path, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.HasPrefix(raw, zstdMagic) {
		t.Fatal("expected zstd frame magic")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Digest() != want.Digest() {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestReadDetectsFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := Compress(&buf, types.MustParse("3,0,4,0,99")); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	p, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if p.String() != "3,0,4,0,99" {
		t.Errorf("unexpected program: %v", p)
	}
}

func TestReadShortInput(t *testing.T) {
	p, err := Read(strings.NewReader("99"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(p) != 1 || p[0] != 99 {
		t.Errorf("unexpected program: %v", p)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("1,2,x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := Load(bad)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), bad) {
		t.Errorf("expected error to name the path, got %v", err)
	}
}
