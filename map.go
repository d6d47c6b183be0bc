package canoncbor

import (
	"bytes"
	"math"
)

// Pair is one map entry.
type Pair struct {
	Key   Value
	Value Value
}

// Map is a CBOR map (major type 5) kept as an explicit list of pairs.
// Pair order carries no meaning: the encoder sorts by canonical key bytes.
// Keys must be unique (by canonical encoding); the decoder guarantees it and
// Encode panics when handed duplicates.
type Map []Pair

// KV builds a Pair.
func KV(k, v Value) Pair { return Pair{Key: k, Value: v} }

// NewMap copies pairs into a new Map.
func NewMap(pairs ...Pair) Map {
	return append(Map(nil), pairs...)
}

// Get returns the value stored under key.
func (m Map) Get(key Value) (Value, bool) {
	for _, p := range m {
		if Equal(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// Equal reports structural equality: arrays compare in order, maps compare as
// key-to-value sets regardless of pair order, floats compare by bits.
// Two values are Equal exactly when their canonical encodings are identical.
func Equal(a, b Value) bool {
	if kindOf(a) != kindOf(b) {
		return false
	}
	switch x := a.(type) {
	case nil, Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Uint:
		return x == b.(Uint)
	case NegInt:
		return x == b.(NegInt)
	case Float:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Float)))
	case Bytes:
		return bytes.Equal(x, b.(Bytes))
	case Text:
		return x == b.(Text)
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		return mapsEqual(x, b.(Map))
	case Tag:
		y := b.(Tag)
		return x.Number == y.Number && Equal(x.Content, y.Content)
	default:
		return false
	}
}

func mapsEqual(x, y Map) bool {
	if len(x) != len(y) {
		return false
	}
	ix, okx := indexByKey(x)
	iy, oky := indexByKey(y)
	if !okx || !oky {
		return false
	}
	for k, v := range ix {
		w, ok := iy[k]
		if !ok || !Equal(v, w) {
			return false
		}
	}
	return true
}

// indexByKey maps canonical key bytes to values; ok is false on duplicates.
func indexByKey(m Map) (map[string]Value, bool) {
	idx := make(map[string]Value, len(m))
	for _, p := range m {
		k := string(keyBytes(p.Key))
		if _, dup := idx[k]; dup {
			return nil, false
		}
		idx[k] = p.Value
	}
	return idx, true
}

// keyBytes is the canonical encoding of a key with no output ceiling.
func keyBytes(k Value) []byte {
	var e encodeState
	// cannot fail without a ceiling
	_ = e.encode(k)
	return e.buf
}
