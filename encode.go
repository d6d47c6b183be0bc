package canoncbor

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/unkn0wn-root/canoncbor/internal/wire"
)

// Encode returns the canonical encoding of v:
//   - shortest heads for integers, lengths and tag numbers
//   - definite lengths only
//   - map pairs sorted by the bytewise order of their encoded keys
//   - floats always as 8-byte doubles
//
// The same Value always yields the same bytes. Encode fails only when the
// output would exceed MaxOutputSize. It panics if a Map holds duplicate keys,
// which cannot come out of the decoder.
func (m EncMode) Encode(v Value) ([]byte, error) {
	e := encodeState{max: m.opts.MaxOutputSize}
	if err := e.encode(v); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encodeState struct {
	buf  []byte
	base int // bytes already committed by enclosing states
	max  int // 0 = unlimited
}

func (e *encodeState) reserve(n int) error {
	if e.max > 0 && n > e.max-e.base-len(e.buf) {
		return &EncodeError{Size: e.base + len(e.buf) + n, Max: e.max}
	}
	return nil
}

func (e *encodeState) head(major byte, arg uint64) error {
	if err := e.reserve(wire.HeadLen(arg)); err != nil {
		return err
	}
	e.buf = wire.AppendHead(e.buf, major, arg)
	return nil
}

func (e *encodeState) raw(p []byte) error {
	if err := e.reserve(len(p)); err != nil {
		return err
	}
	e.buf = append(e.buf, p...)
	return nil
}

func (e *encodeState) encode(v Value) error {
	switch x := v.(type) {
	case nil, Null:
		return e.head(wire.MajorSimple, wire.SimpleNull)
	case Bool:
		if x {
			return e.head(wire.MajorSimple, wire.SimpleTrue)
		}
		return e.head(wire.MajorSimple, wire.SimpleFalse)
	case Uint:
		return e.head(wire.MajorUint, uint64(x))
	case NegInt:
		return e.head(wire.MajorNegInt, uint64(x))
	case Float:
		if err := e.reserve(wire.Float64Len); err != nil {
			return err
		}
		e.buf = wire.AppendFloat64(e.buf, float64(x))
		return nil
	case Bytes:
		if err := e.head(wire.MajorBytes, uint64(len(x))); err != nil {
			return err
		}
		return e.raw(x)
	case Text:
		if err := e.head(wire.MajorText, uint64(len(x))); err != nil {
			return err
		}
		if err := e.reserve(len(x)); err != nil {
			return err
		}
		e.buf = append(e.buf, x...)
		return nil
	case Array:
		if err := e.head(wire.MajorArray, uint64(len(x))); err != nil {
			return err
		}
		for _, it := range x {
			if err := e.encode(it); err != nil {
				return err
			}
		}
		return nil
	case Map:
		return e.encodeMap(x)
	case Tag:
		if err := e.head(wire.MajorTag, x.Number); err != nil {
			return err
		}
		return e.encode(x.Content)
	default:
		panic(fmt.Sprintf("canoncbor: unknown Value type %T", v))
	}
}

type encodedPair struct {
	key []byte
	val Value
}

func (e *encodeState) encodeMap(m Map) error {
	if err := e.head(wire.MajorMap, uint64(len(m))); err != nil {
		return err
	}
	if len(m) == 0 {
		return nil
	}

	// Keys are encoded up front for sorting; their combined size counts
	// against the ceiling as if already written.
	pairs := make([]encodedPair, len(m))
	keysLen := 0
	for i, p := range m {
		ke := encodeState{base: e.base + len(e.buf) + keysLen, max: e.max}
		if err := ke.encode(p.Key); err != nil {
			return err
		}
		keysLen += len(ke.buf)
		pairs[i] = encodedPair{key: ke.buf, val: p.Value}
	}
	slices.SortFunc(pairs, func(a, b encodedPair) int { return bytes.Compare(a.key, b.key) })
	for i := 1; i < len(pairs); i++ {
		if bytes.Equal(pairs[i-1].key, pairs[i].key) {
			panic(fmt.Sprintf("canoncbor: duplicate map key %x", pairs[i].key))
		}
	}

	for _, p := range pairs {
		if err := e.raw(p.key); err != nil {
			return err
		}
		if err := e.encode(p.val); err != nil {
			return err
		}
	}
	return nil
}
