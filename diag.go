package canoncbor

import (
	"github.com/fxamacker/cbor/v2"
)

var diagMode cbor.DiagMode

func init() {
	var err error
	diagMode, err = cbor.DiagOptions{
		ByteStringEncoding: cbor.ByteStringBase16Encoding,
		// our own decoder already bounded the value; these only need to be
		// at least as permissive as DecOptions allows.
		MaxNestedLevels:  65535,
		MaxArrayElements: 2147483647,
		MaxMapPairs:      2147483647,
	}.DiagMode()
	if err != nil {
		panic("canoncbor: CBOR diagnostic mode initialization failed: " + err.Error())
	}
}

// Diagnose returns the RFC 8949 §8 diagnostic notation of v's canonical
// encoding, e.g. {"a": 1, "b": [h'00', null]}.
func Diagnose(v Value) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return diagMode.Diagnose(b)
}
