package codec

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/unkn0wn-root/canoncbor"
)

// ErrUnrepresentable is returned for values MessagePack has no form for:
// tags, and negative integers below the int64 range.
var ErrUnrepresentable = errors.New("codec: value not representable in msgpack")

// Msgpack transcodes canoncbor.Value to and from MessagePack using
// vmihailenco/msgpack/v5. Map keys are written in canonical CBOR key order,
// so equal values produce equal bytes. Decode enforces the same resource
// ceilings and duplicate-key policy as the CBOR decoder.
//
// The zero value decodes with default limits.
type Msgpack struct {
	dec canoncbor.DecMode
}

var _ Codec[canoncbor.Value] = Msgpack{}

// NewMsgpack returns a Msgpack decoding under o.
func NewMsgpack(o canoncbor.DecOptions) (Msgpack, error) {
	dm, err := o.DecMode()
	if err != nil {
		return Msgpack{}, err
	}
	return Msgpack{dec: dm}, nil
}

func (m Msgpack) Encode(v canoncbor.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeMsgpack(enc, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeMsgpack(enc *msgpack.Encoder, v canoncbor.Value) error {
	switch x := v.(type) {
	case nil, canoncbor.Null:
		return enc.EncodeNil()
	case canoncbor.Bool:
		return enc.EncodeBool(bool(x))
	case canoncbor.Uint:
		return enc.EncodeUint(uint64(x))
	case canoncbor.NegInt:
		n, ok := x.Int64()
		if !ok {
			return fmt.Errorf("%w: integer %s", ErrUnrepresentable, x.Big())
		}
		return enc.EncodeInt(n)
	case canoncbor.Float:
		return enc.EncodeFloat64(float64(x))
	case canoncbor.Bytes:
		if x == nil {
			x = canoncbor.Bytes{} // nil would be written as msgpack nil
		}
		return enc.EncodeBytes(x)
	case canoncbor.Text:
		return enc.EncodeString(string(x))
	case canoncbor.Array:
		if err := enc.EncodeArrayLen(len(x)); err != nil {
			return err
		}
		for _, it := range x {
			if err := encodeMsgpack(enc, it); err != nil {
				return err
			}
		}
		return nil
	case canoncbor.Map:
		return encodeMsgpackMap(enc, x)
	case canoncbor.Tag:
		return fmt.Errorf("%w: tag %d", ErrUnrepresentable, x.Number)
	default:
		return fmt.Errorf("codec: unknown value type %T", v)
	}
}

type sortKey struct {
	key []byte
	p   canoncbor.Pair
}

func encodeMsgpackMap(enc *msgpack.Encoder, m canoncbor.Map) error {
	keys := make([]sortKey, len(m))
	for i, p := range m {
		k, err := canoncbor.Encode(p.Key)
		if err != nil {
			return err
		}
		keys[i] = sortKey{key: k, p: p}
	}
	slices.SortFunc(keys, func(a, b sortKey) int { return bytes.Compare(a.key, b.key) })
	for i := 1; i < len(keys); i++ {
		if bytes.Equal(keys[i-1].key, keys[i].key) {
			return fmt.Errorf("%w: %x", canoncbor.ErrDuplicateKey, keys[i].key)
		}
	}

	if err := enc.EncodeMapLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := encodeMsgpack(enc, k.p.Key); err != nil {
			return err
		}
		if err := encodeMsgpack(enc, k.p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Decode decodes exactly one MessagePack value from b. Errors are
// *canoncbor.DecodeError values, as from the CBOR decoder.
func (m Msgpack) Decode(b []byte) (canoncbor.Value, error) {
	r := bytes.NewReader(b)
	d := msgpackDecoder{
		in:    len(b),
		r:     r,
		dec:   msgpack.NewDecoder(r),
		mode:  m.dec,
		guard: canoncbor.NewGuard(m.dec.Limits()),
	}
	if len(b) == 0 {
		return nil, malformed(0, "empty input")
	}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, &canoncbor.DecodeError{
			Kind:   canoncbor.KindTrailingData,
			Offset: d.off(),
			Reason: fmt.Sprintf("%d bytes follow the value", r.Len()),
		}
	}
	return v, nil
}

type msgpackDecoder struct {
	in    int
	r     *bytes.Reader
	dec   *msgpack.Decoder
	mode  canoncbor.DecMode
	guard *canoncbor.Guard
}

// off is exact: bytes.Reader is an io.ByteScanner, so the decoder reads it
// without buffering.
func (d *msgpackDecoder) off() int { return d.in - d.r.Len() }

func malformed(off int, reason string) error {
	return &canoncbor.DecodeError{Kind: canoncbor.KindMalformed, Offset: off, Reason: reason}
}

func (d *msgpackDecoder) value() (canoncbor.Value, error) {
	start := d.off()
	c, err := d.dec.PeekCode()
	if err != nil {
		return nil, malformed(start, "truncated input")
	}

	switch {
	case c == msgpcode.Nil:
		if err := d.dec.DecodeNil(); err != nil {
			return nil, malformed(start, err.Error())
		}
		return canoncbor.Null{}, nil
	case c == msgpcode.False || c == msgpcode.True:
		b, err := d.dec.DecodeBool()
		if err != nil {
			return nil, malformed(start, err.Error())
		}
		return canoncbor.Bool(b), nil
	case c <= msgpcode.PosFixedNumHigh, c == msgpcode.Uint8, c == msgpcode.Uint16,
		c == msgpcode.Uint32, c == msgpcode.Uint64:
		n, err := d.dec.DecodeUint64()
		if err != nil {
			return nil, malformed(start, err.Error())
		}
		return canoncbor.Uint(n), nil
	case c >= msgpcode.NegFixedNumLow, c == msgpcode.Int8, c == msgpcode.Int16,
		c == msgpcode.Int32, c == msgpcode.Int64:
		n, err := d.dec.DecodeInt64()
		if err != nil {
			return nil, malformed(start, err.Error())
		}
		return canoncbor.Int(n), nil
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := d.dec.DecodeFloat64()
		if err != nil {
			return nil, malformed(start, err.Error())
		}
		return canoncbor.Float(f), nil
	case msgpcode.IsString(c) || msgpcode.IsBin(c):
		p, err := d.raw(start)
		if err != nil {
			return nil, err
		}
		if msgpcode.IsBin(c) {
			return canoncbor.Bytes(p), nil
		}
		if !utf8.Valid(p) {
			return nil, malformed(start, "invalid UTF-8 in string")
		}
		return canoncbor.Text(p), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		return d.array(start)
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		return d.mapValue(start)
	default:
		return nil, &canoncbor.DecodeError{
			Kind:   canoncbor.KindUnsupportedForm,
			Offset: start,
			Reason: fmt.Sprintf("msgpack code %#x", c),
		}
	}
}

// raw reads a str/bin payload after checking its length claim.
func (d *msgpackDecoder) raw(start int) ([]byte, error) {
	n, err := d.dec.DecodeBytesLen()
	if err != nil || n < 0 {
		return nil, malformed(start, "bad string length")
	}
	n, err = d.guard.CheckLength(uint64(n), d.r.Len(), start)
	if err != nil {
		return nil, err
	}
	p := make([]byte, n)
	if err := d.dec.ReadFull(p); err != nil {
		return nil, malformed(start, err.Error())
	}
	return p, nil
}

func (d *msgpackDecoder) array(start int) (canoncbor.Value, error) {
	n, err := d.dec.DecodeArrayLen()
	if err != nil || n < 0 {
		return nil, malformed(start, "bad array length")
	}
	if n, err = d.guard.CheckCount(canoncbor.LimitArrayElements, uint64(n), 1, d.r.Len(), start); err != nil {
		return nil, err
	}
	if err := d.guard.Enter(start); err != nil {
		return nil, err
	}
	defer d.guard.Leave()

	arr := make(canoncbor.Array, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func (d *msgpackDecoder) mapValue(start int) (canoncbor.Value, error) {
	n, err := d.dec.DecodeMapLen()
	if err != nil || n < 0 {
		return nil, malformed(start, "bad map length")
	}
	if n, err = d.guard.CheckCount(canoncbor.LimitMapPairs, uint64(n), 2, d.r.Len(), start); err != nil {
		return nil, err
	}
	if err := d.guard.Enter(start); err != nil {
		return nil, err
	}
	defer d.guard.Leave()

	pairs := make([]canoncbor.Pair, 0, n)
	for i := 0; i < n; i++ {
		k, err := d.value()
		if err != nil {
			return nil, err
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, canoncbor.KV(k, v))
	}
	m, err := d.mode.ResolveMap(pairs)
	if err != nil {
		var de *canoncbor.DecodeError
		if errors.As(err, &de) {
			de.Offset = start
		}
		return nil, err
	}
	return m, nil
}
