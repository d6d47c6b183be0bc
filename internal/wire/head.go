package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// Major types (high 3 bits of the initial byte).
const (
	MajorUint   byte = 0
	MajorNegInt byte = 1
	MajorBytes  byte = 2
	MajorText   byte = 3
	MajorArray  byte = 4
	MajorMap    byte = 5
	MajorTag    byte = 6
	MajorSimple byte = 7
)

// Additional info (low 5 bits of the initial byte).
const (
	InfoDirectMax  byte = 23 // 0..23 carry the argument directly
	InfoUint8      byte = 24
	InfoUint16     byte = 25
	InfoUint32     byte = 26
	InfoUint64     byte = 27
	InfoIndefinite byte = 31
)

// Simple values and float widths in major type 7.
const (
	SimpleFalse     = 20
	SimpleTrue      = 21
	SimpleNull      = 22
	SimpleUndefined = 23
	SimpleFloat16   = 25
	SimpleFloat32   = 26
	SimpleFloat64   = 27

	// BreakByte terminates indefinite-length items.
	BreakByte byte = 0xff
)

var (
	ErrTruncated = errors.New("wire: truncated head")
	ErrReserved  = errors.New("wire: reserved additional info")
)

// Head is a decoded initial byte plus its argument.
// For Info == InfoIndefinite, Arg is zero.
// For major 7 with Info 25..27, Arg holds the raw float bits.
type Head struct {
	Major byte
	Info  byte
	Arg   uint64
}

func (h Head) Indefinite() bool { return h.Info == InfoIndefinite }

// ReadHead reads one head at off and returns it with the offset just past it.
// It accepts non-minimal argument widths; callers decide what that means.
func ReadHead(b []byte, off int) (Head, int, error) {
	if off < 0 || off >= len(b) {
		return Head{}, off, ErrTruncated
	}
	ib := b[off]
	h := Head{Major: ib >> 5, Info: ib & 0x1f}

	switch {
	case h.Info <= InfoDirectMax:
		h.Arg = uint64(h.Info)
		return h, off + 1, nil
	case h.Info <= InfoUint64:
		n := 1 << (h.Info - InfoUint8) // 1, 2, 4, 8
		if n > len(b)-off-1 {
			return Head{}, off, ErrTruncated
		}
		p := b[off+1 : off+1+n]
		switch n {
		case 1:
			h.Arg = uint64(p[0])
		case 2:
			h.Arg = uint64(binary.BigEndian.Uint16(p))
		case 4:
			h.Arg = uint64(binary.BigEndian.Uint32(p))
		default:
			h.Arg = binary.BigEndian.Uint64(p)
		}
		return h, off + 1 + n, nil
	case h.Info == InfoIndefinite:
		return h, off + 1, nil
	default: // 28..30
		return Head{}, off, ErrReserved
	}
}

// HeadLen is the size of the shortest head carrying arg.
func HeadLen(arg uint64) int {
	switch {
	case arg <= uint64(InfoDirectMax):
		return 1
	case arg <= math.MaxUint8:
		return 2
	case arg <= math.MaxUint16:
		return 3
	case arg <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// AppendHead appends the shortest head for major/arg.
func AppendHead(dst []byte, major byte, arg uint64) []byte {
	m := major << 5
	switch {
	case arg <= uint64(InfoDirectMax):
		return append(dst, m|byte(arg))
	case arg <= math.MaxUint8:
		return append(dst, m|InfoUint8, byte(arg))
	case arg <= math.MaxUint16:
		return binary.BigEndian.AppendUint16(append(dst, m|InfoUint16), uint16(arg))
	case arg <= math.MaxUint32:
		return binary.BigEndian.AppendUint32(append(dst, m|InfoUint32), uint32(arg))
	default:
		return binary.BigEndian.AppendUint64(append(dst, m|InfoUint64), arg)
	}
}

// Float64Len is the encoded size of a double.
const Float64Len = 9

// AppendFloat64 always writes the full 8-byte form, preserving the bits of f.
func AppendFloat64(dst []byte, f float64) []byte {
	return binary.BigEndian.AppendUint64(append(dst, MajorSimple<<5|SimpleFloat64), math.Float64bits(f))
}
