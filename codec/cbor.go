package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR is a Codec for arbitrary Go values built on fxamacker/cbor whose output
// is always canonical: the reflective encoding is run through a Canonical
// codec, so equal values produce equal bytes regardless of map iteration
// order or float width. Decode validates input with the same Canonical
// (resource limits, duplicate-key policy) and unmarshals its canonical
// re-encoding, so keys dropped by KeepFirst/KeepLast never reach V.
// Time values are encoded as RFC3339Nano strings.
//
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
type CBOR[V any] struct {
	enc   cbor.EncMode
	dec   cbor.DecMode
	canon *Canonical
}

var _ Codec[struct{}] = CBOR[struct{}]{}

// NewCBOR constructs a CBOR codec validating and canonicalizing through a
// Canonical built from opts.
func NewCBOR[V any](opts Options) (CBOR[V], error) {
	canon, err := NewCanonical(opts)
	if err != nil {
		return CBOR[V]{}, err
	}

	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	// input already passed our own limits; mirror them here
	lim := canon.DecMode().Limits()
	dm, err := cbor.DecOptions{
		MaxNestedLevels:  clamp(lim.MaxNestedLevels, 4, 65535),
		MaxArrayElements: clamp(lim.MaxArrayElements, 16, 2147483647),
		MaxMapPairs:      clamp(lim.MaxMapPairs, 16, 2147483647),
		// duplicates are resolved by canon before unmarshalling
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm, canon: canon}, nil
}

// MustCBOR is like NewCBOR but panics on error.
// Should not use for prod just handy for package-level variables in tests/examples.
func MustCBOR[V any](opts Options) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Encode marshals v and returns the canonical form of the result.
// The marshalled bytes are our own, so they are not reported as
// non-canonical input.
func (c CBOR[V]) Encode(v V) ([]byte, error) {
	b, err := c.enc.Marshal(v)
	if err != nil {
		return nil, err
	}
	cv, err := c.canon.dec.Decode(b)
	if err != nil {
		return nil, err
	}
	return c.canon.Encode(cv)
}

// Decode validates b and unmarshals it into a V.
func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	cv, err := c.canon.Decode(b)
	if err != nil {
		return v, err
	}
	rb, err := c.canon.Encode(cv)
	if err != nil {
		return v, err
	}
	err = c.dec.Unmarshal(rb, &v)
	return v, err
}

func clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}
