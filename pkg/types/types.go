// Package types provides the program image and digest types shared by the
// Intcode tooling.
package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Digest is a 32-byte BLAKE2b-256 digest of a program image.
type Digest [32]byte

// ZeroDigest is an all-zero digest.
var ZeroDigest Digest

// DigestFromBytes creates a Digest from a byte slice.
func DigestFromBytes(b []byte) (Digest, error) {
	if len(b) != 32 {
		return Digest{}, fmt.Errorf("digest must be 32 bytes, got %d", len(b))
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}

// DigestFromString decodes a base58 string into a Digest.
func DigestFromString(s string) (Digest, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid base58: %w", err)
	}
	return DigestFromBytes(b)
}

// Bytes returns the digest as a byte slice.
func (d Digest) Bytes() []byte {
	return d[:]
}

// String returns the base58 representation.
func (d Digest) String() string {
	return base58.Encode(d[:])
}

// Hex returns the hex representation.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// IsZero returns true if the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == ZeroDigest
}

// DigestOf computes the digest of a program image. Each word is hashed as
// 8 little-endian bytes, so the digest does not depend on text formatting.
func DigestOf(p Program) Digest {
	buf := make([]byte, 8*len(p))
	for i, w := range p {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(w))
	}
	return blake2b.Sum256(buf)
}
