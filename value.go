package canoncbor

import (
	"math"
	"math/big"
)

// Kind identifies a Value variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindUint
	KindNegInt
	KindFloat
	KindBytes
	KindText
	KindArray
	KindMap
	KindTag
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindUint:   "uint",
	KindNegInt: "negint",
	KindFloat:  "float",
	KindBytes:  "bytes",
	KindText:   "text",
	KindArray:  "array",
	KindMap:    "map",
	KindTag:    "tag",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a decoded CBOR data item.
//
// The set of implementations is closed:
//   - Null
//   - Bool
//   - Uint
//   - NegInt
//   - Float
//   - Bytes
//   - Text
//   - Array
//   - Map
//   - Tag
//
// A nil Value is treated as Null everywhere.
type Value interface {
	Kind() Kind
	sealed()
}

var (
	_ Value = Null{}
	_ Value = Bool(false)
	_ Value = Uint(0)
	_ Value = NegInt(0)
	_ Value = Float(0)
	_ Value = Bytes(nil)
	_ Value = Text("")
	_ Value = Array(nil)
	_ Value = Map(nil)
	_ Value = Tag{}
)

// Null is the null literal (major type 7, simple value 22).
type Null struct{}

// Bool is a boolean (major type 7, simple values 20/21).
type Bool bool

// Uint is a non-negative integer (major type 0).
type Uint uint64

// NegInt is a negative integer (major type 1) with value -1 - n.
// NegInt(0) is -1 and NegInt(math.MaxUint64) is -2^64.
type NegInt uint64

// Float is an IEEE 754 double. It always encodes in 8 bytes; its bits are
// preserved, including NaN payloads and the sign of zero.
type Float float64

// Bytes is a byte string (major type 2).
type Bytes []byte

// Text is a UTF-8 text string (major type 3). Constructing Text from invalid
// UTF-8 is the caller's mistake; the decoder never produces one.
type Text string

// Array is an ordered sequence (major type 4).
type Array []Value

// Tag is a semantically tagged item (major type 6).
type Tag struct {
	Number  uint64
	Content Value
}

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Uint) Kind() Kind   { return KindUint }
func (NegInt) Kind() Kind { return KindNegInt }
func (Float) Kind() Kind  { return KindFloat }
func (Bytes) Kind() Kind  { return KindBytes }
func (Text) Kind() Kind   { return KindText }
func (Array) Kind() Kind  { return KindArray }
func (Map) Kind() Kind    { return KindMap }
func (Tag) Kind() Kind    { return KindTag }

func (Null) sealed()   {}
func (Bool) sealed()   {}
func (Uint) sealed()   {}
func (NegInt) sealed() {}
func (Float) sealed()  {}
func (Bytes) sealed()  {}
func (Text) sealed()   {}
func (Array) sealed()  {}
func (Map) sealed()    {}
func (Tag) sealed()    {}

// Int returns Uint for n >= 0 and NegInt otherwise.
func Int(n int64) Value {
	if n >= 0 {
		return Uint(n)
	}
	return NegInt(uint64(-(n + 1)))
}

// NewArray copies vs into a new Array.
func NewArray(vs ...Value) Array {
	return append(Array(nil), vs...)
}

// Int64 reports u as an int64 when it fits.
func (u Uint) Int64() (int64, bool) {
	if uint64(u) > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

// Big returns u as a big.Int.
func (u Uint) Big() *big.Int {
	return new(big.Int).SetUint64(uint64(u))
}

// Int64 reports n as an int64 when it fits (n >= -2^63).
func (n NegInt) Int64() (int64, bool) {
	if uint64(n) > math.MaxInt64 {
		return 0, false
	}
	return -1 - int64(n), true
}

// Big returns the value -1 - n as a big.Int.
func (n NegInt) Big() *big.Int {
	b := new(big.Int).SetUint64(uint64(n))
	return b.Neg(b).Sub(b, big.NewInt(1))
}

// kindOf maps nil to KindNull.
func kindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}
