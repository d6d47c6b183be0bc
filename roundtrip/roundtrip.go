// Package roundtrip checks that decode and encode reach a fixed point: any
// input the decoder accepts re-encodes to bytes that decode to an equal value
// and re-encode to themselves.
//
// It backs the module's fuzz test and can be driven by external fuzzers.
package roundtrip

import (
	"bytes"
	"fmt"

	"github.com/unkn0wn-root/canoncbor"
)

// Stage names the step of a round trip that broke.
type Stage string

const (
	StageEncode    Stage = "encode"    // Encode(Decode(b)) failed
	StageRedecode  Stage = "redecode"  // canonical bytes were rejected
	StageStructure Stage = "structure" // Decode(canonical) != Decode(b)
	StageStability Stage = "stability" // second encoding differs from the first
)

// StabilityError is a broken round trip. It always indicates a codec bug,
// never bad input.
type StabilityError struct {
	Stage  Stage
	First  []byte // canonical encoding of the input, when reached
	Second []byte // re-encoding, when reached
	Err    error
}

func (e *StabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("roundtrip: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("roundtrip: %s: %x != %x", e.Stage, e.First, e.Second)
}

func (e *StabilityError) Unwrap() error { return e.Err }

// Result describes an input that did not break the round trip.
type Result struct {
	// Skipped is set when the decoder rejected the input; Err holds why.
	Skipped bool
	Err     error

	// Canonical is the canonical encoding; Stable reports it equals the input.
	Canonical []byte
	Stable    bool
}

// Verifier runs round trips under fixed modes.
type Verifier struct {
	dec canoncbor.DecMode
	enc canoncbor.EncMode
}

// New returns a Verifier using dm for both decodes and em for both encodes.
func New(dm canoncbor.DecMode, em canoncbor.EncMode) *Verifier {
	return &Verifier{dec: dm, enc: em}
}

// Check runs data through decode, encode, decode, encode. Rejected input is
// reported as Result.Skipped; a non-nil error is always a *StabilityError.
func (v *Verifier) Check(data []byte) (Result, error) {
	val, err := v.dec.Decode(data)
	if err != nil {
		return Result{Skipped: true, Err: err}, nil
	}
	first, err := v.enc.Encode(val)
	if err != nil {
		return Result{}, &StabilityError{Stage: StageEncode, Err: err}
	}
	again, err := v.dec.Decode(first)
	if err != nil {
		return Result{}, &StabilityError{Stage: StageRedecode, First: first, Err: err}
	}
	if !canoncbor.Equal(val, again) {
		return Result{}, &StabilityError{Stage: StageStructure, First: first}
	}
	second, err := v.enc.Encode(again)
	if err != nil {
		return Result{}, &StabilityError{Stage: StageEncode, First: first, Err: err}
	}
	if !bytes.Equal(first, second) {
		return Result{}, &StabilityError{Stage: StageStability, First: first, Second: second}
	}
	return Result{Canonical: first, Stable: bytes.Equal(data, first)}, nil
}
