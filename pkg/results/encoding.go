package results

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/partyfowl/aoc19/pkg/types"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("results: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalRecord serializes a Record to CBOR bytes.
func MarshalRecord(r *Record) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalRecord deserializes a Record from CBOR bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("results: unmarshal record: %w", err)
	}
	return &r, nil
}

// MarshalProgram serializes a program image to CBOR bytes.
func MarshalProgram(p types.Program) ([]byte, error) {
	return cborEncMode.Marshal([]int64(p))
}

// UnmarshalProgram deserializes a program image from CBOR bytes.
func UnmarshalProgram(data []byte) (types.Program, error) {
	var words []int64
	if err := cbor.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("results: unmarshal program: %w", err)
	}
	return types.Program(words), nil
}
