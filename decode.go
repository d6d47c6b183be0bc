package canoncbor

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/unkn0wn-root/canoncbor/internal/wire"
)

// Decode decodes exactly one value from b. Bytes after the value fail with
// ErrTrailingData; use DecodeFirst for CBOR sequences.
//
// Accepted beyond canonical form: non-minimal heads, unsorted map keys,
// half/single floats, indefinite-length items (unless forbidden). Duplicate
// keys follow DupMapKey. Either a complete Value or an error is returned.
func (m DecMode) Decode(b []byte) (Value, error) {
	v, rest, err := m.DecodeFirst(b)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, newErr(KindTrailingData, len(b)-len(rest), fmt.Sprintf("%d bytes follow the value", len(rest)))
	}
	return v, nil
}

// DecodeFirst decodes the first value in b and returns the rest of b.
func (m DecMode) DecodeFirst(b []byte) (Value, []byte, error) {
	d := decodeState{data: b, opts: m.DecOptions()}
	d.guard = NewGuard(d.opts.Limits)
	if len(b) == 0 {
		return nil, nil, newErr(KindMalformed, 0, "empty input")
	}
	v, err := d.value()
	if err != nil {
		return nil, nil, err
	}
	return v, b[d.off:], nil
}

// ResolveMap applies m's duplicate-key policy to pairs and returns a Map
// safe to Encode. pairs is not modified.
func (m DecMode) ResolveMap(pairs []Pair) (Map, error) {
	return resolveMap(pairs, m.opts.DupMapKey, 0)
}

type decodeState struct {
	data  []byte
	off   int
	opts  DecOptions
	guard *Guard
}

func (d *decodeState) remaining() int { return len(d.data) - d.off }

func (d *decodeState) head() (wire.Head, error) {
	h, off, err := wire.ReadHead(d.data, d.off)
	if err != nil {
		if err == wire.ErrReserved {
			return h, newErr(KindMalformed, d.off, "reserved additional info")
		}
		return h, newErr(KindMalformed, d.off, "truncated item head")
	}
	d.off = off
	return h, nil
}

// atBreak consumes a break byte if one is next.
func (d *decodeState) atBreak() (bool, error) {
	if d.off >= len(d.data) {
		return false, newErr(KindMalformed, d.off, "unterminated indefinite-length item")
	}
	if d.data[d.off] == wire.BreakByte {
		d.off++
		return true, nil
	}
	return false, nil
}

func (d *decodeState) value() (Value, error) {
	start := d.off
	h, err := d.head()
	if err != nil {
		return nil, err
	}

	switch h.Major {
	case wire.MajorUint, wire.MajorNegInt:
		if h.Indefinite() {
			return nil, newErr(KindMalformed, start, "indefinite-length integer")
		}
		if h.Major == wire.MajorUint {
			return Uint(h.Arg), nil
		}
		return NegInt(h.Arg), nil
	case wire.MajorBytes:
		p, err := d.byteString(h, start)
		if err != nil {
			return nil, err
		}
		return Bytes(bytes.Clone(p)), nil
	case wire.MajorText:
		p, err := d.byteString(h, start)
		if err != nil {
			return nil, err
		}
		return Text(p), nil
	case wire.MajorArray:
		return d.array(h, start)
	case wire.MajorMap:
		return d.mapValue(h, start)
	case wire.MajorTag:
		return d.tag(h, start)
	default:
		return d.simple(h, start)
	}
}

// byteString returns the content of a byte or text string. For definite
// strings the result aliases the input.
func (d *decodeState) byteString(h wire.Head, start int) ([]byte, error) {
	text := h.Major == wire.MajorText
	if !h.Indefinite() {
		n, err := d.guard.CheckLength(h.Arg, d.remaining(), start)
		if err != nil {
			return nil, err
		}
		p := d.data[d.off : d.off+n]
		if text && !utf8.Valid(p) {
			return nil, newErr(KindMalformed, start, "invalid UTF-8 in text string")
		}
		d.off += n
		return p, nil
	}

	if d.opts.IndefLength == IndefLengthForbidden {
		return nil, newErr(KindUnsupportedForm, start, "indefinite-length string")
	}
	var (
		out   []byte
		total uint64
	)
	for {
		brk, err := d.atBreak()
		if err != nil {
			return nil, err
		}
		if brk {
			break
		}
		cstart := d.off
		ch, err := d.head()
		if err != nil {
			return nil, err
		}
		if ch.Major != h.Major || ch.Indefinite() {
			return nil, newErr(KindMalformed, cstart, "invalid chunk in indefinite-length string")
		}
		n, err := d.guard.CheckLength(ch.Arg, d.remaining(), cstart)
		if err != nil {
			return nil, err
		}
		total += uint64(n)
		if err := d.guard.CheckTotal(LimitStringLength, total, cstart); err != nil {
			return nil, err
		}
		p := d.data[d.off : d.off+n]
		if text && !utf8.Valid(p) {
			return nil, newErr(KindMalformed, cstart, "invalid UTF-8 in text chunk")
		}
		out = append(out, p...)
		d.off += n
	}
	return out, nil
}

func (d *decodeState) array(h wire.Head, start int) (Value, error) {
	if h.Indefinite() && d.opts.IndefLength == IndefLengthForbidden {
		return nil, newErr(KindUnsupportedForm, start, "indefinite-length array")
	}
	if err := d.guard.Enter(start); err != nil {
		return nil, err
	}
	defer d.guard.Leave()

	if h.Indefinite() {
		arr := Array{}
		for {
			brk, err := d.atBreak()
			if err != nil {
				return nil, err
			}
			if brk {
				return arr, nil
			}
			if err := d.guard.CheckTotal(LimitArrayElements, uint64(len(arr))+1, d.off); err != nil {
				return nil, err
			}
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
	}

	n, err := d.guard.CheckCount(LimitArrayElements, h.Arg, 1, d.remaining(), start)
	if err != nil {
		return nil, err
	}
	arr := make(Array, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func (d *decodeState) mapValue(h wire.Head, start int) (Value, error) {
	if h.Indefinite() && d.opts.IndefLength == IndefLengthForbidden {
		return nil, newErr(KindUnsupportedForm, start, "indefinite-length map")
	}
	if err := d.guard.Enter(start); err != nil {
		return nil, err
	}
	defer d.guard.Leave()

	var pairs []Pair
	if h.Indefinite() {
		for {
			brk, err := d.atBreak()
			if err != nil {
				return nil, err
			}
			if brk {
				break
			}
			if err := d.guard.CheckTotal(LimitMapPairs, uint64(len(pairs))+1, d.off); err != nil {
				return nil, err
			}
			p, err := d.pair()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, p)
		}
	} else {
		// a pair is at least two one-byte items
		n, err := d.guard.CheckCount(LimitMapPairs, h.Arg, 2, d.remaining(), start)
		if err != nil {
			return nil, err
		}
		pairs = make([]Pair, 0, n)
		for i := 0; i < n; i++ {
			p, err := d.pair()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, p)
		}
	}
	return resolveMap(pairs, d.opts.DupMapKey, start)
}

func (d *decodeState) pair() (Pair, error) {
	k, err := d.value()
	if err != nil {
		return Pair{}, err
	}
	v, err := d.value()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Key: k, Value: v}, nil
}

func (d *decodeState) tag(h wire.Head, start int) (Value, error) {
	if h.Indefinite() {
		return nil, newErr(KindMalformed, start, "indefinite-length tag")
	}
	if d.opts.TagsMd == TagsForbidden {
		return nil, newErr(KindUnsupportedForm, start, fmt.Sprintf("tag %d", h.Arg))
	}
	if err := d.guard.Enter(start); err != nil {
		return nil, err
	}
	defer d.guard.Leave()

	c, err := d.value()
	if err != nil {
		return nil, err
	}
	return Tag{Number: h.Arg, Content: c}, nil
}

func (d *decodeState) simple(h wire.Head, start int) (Value, error) {
	switch h.Info {
	case wire.SimpleFalse:
		return Bool(false), nil
	case wire.SimpleTrue:
		return Bool(true), nil
	case wire.SimpleNull:
		return Null{}, nil
	case wire.SimpleFloat16:
		return Float(math.Float64frombits(halfToFloat64Bits(uint16(h.Arg)))), nil
	case wire.SimpleFloat32:
		return Float(math.Float64frombits(singleToFloat64Bits(uint32(h.Arg)))), nil
	case wire.SimpleFloat64:
		return Float(math.Float64frombits(h.Arg)), nil
	case wire.InfoUint8:
		if h.Arg < 32 {
			return nil, newErr(KindMalformed, start, fmt.Sprintf("two-byte simple value %d", h.Arg))
		}
		return nil, newErr(KindUnsupportedForm, start, fmt.Sprintf("simple value %d", h.Arg))
	case wire.InfoIndefinite:
		return nil, newErr(KindMalformed, start, "unexpected break")
	default: // 0..19 and undefined
		return nil, newErr(KindUnsupportedForm, start, fmt.Sprintf("simple value %d", h.Arg))
	}
}

// resolveMap enforces key uniqueness under mode. Keys are compared by their
// canonical encoding.
func resolveMap(pairs []Pair, mode DupMapKeyMode, off int) (Map, error) {
	out := make(Map, 0, len(pairs))
	if len(pairs) < 2 {
		return append(out, pairs...), nil
	}
	seen := make(map[string]int, len(pairs))
	for i, p := range pairs {
		k := string(keyBytes(p.Key))
		if j, dup := seen[k]; dup {
			switch mode {
			case DupMapKeyKeepFirst:
				continue
			case DupMapKeyKeepLast:
				out[j].Value = p.Value
				continue
			default:
				return nil, newErr(KindDuplicateKey, off, fmt.Sprintf("pair %d repeats the key of pair %d", i, j))
			}
		}
		seen[k] = len(out)
		out = append(out, p)
	}
	return out, nil
}
