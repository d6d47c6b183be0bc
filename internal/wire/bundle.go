package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("canoncbor: corrupt bundle")
	magic4     = [...]byte{'C', 'B', 'C', 'N'}
)

const (
	bundleHdr = 4 + 1 + 4
	// smallest possible item: cidLen(2) | cid(1) | vlen(4) | payload(1)
	minItem = 2 + 1 + 4 + 1
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Block is one bundle entry: a binary CID and the block bytes it addresses.
type Block struct {
	CID     []byte
	Payload []byte
}

// Bundle:
//
//	magic(4) | ver(1) | n(u32 be)
//	cidLen(u16 be) | cid(cidLen) | vlen(u32 be) | payload(vlen) * n
func EncodeBundle(blocks []Block) ([]byte, error) {
	if uint64(len(blocks)) > math.MaxUint32 {
		return nil, fmt.Errorf("canoncbor: too many blocks in bundle: %d", len(blocks))
	}
	total := bundleHdr
	for i, bl := range blocks {
		if l := len(bl.CID); l == 0 || l > math.MaxUint16 {
			return nil, fmt.Errorf("canoncbor: invalid cid length %d in bundle item %d", l, i)
		}
		if len(bl.Payload) == 0 || uint64(len(bl.Payload)) > math.MaxUint32 {
			return nil, fmt.Errorf("canoncbor: invalid payload length %d in bundle item %d", len(bl.Payload), i)
		}
		total += 2 + len(bl.CID) + 4 + len(bl.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(blocks)))
	buf.Write(u4[:])

	for _, bl := range blocks {
		binary.BigEndian.PutUint16(u2[:], uint16(len(bl.CID)))
		buf.Write(u2[:])
		buf.Write(bl.CID)

		binary.BigEndian.PutUint32(u4[:], uint32(len(bl.Payload)))
		buf.Write(u4[:])
		buf.Write(bl.Payload)
	}
	return buf.Bytes(), nil
}

// DecodeBundle parses a bundle. Returned slices alias b.
func DecodeBundle(b []byte) ([]Block, error) {
	if len(b) < bundleHdr || !hasMagic(b) || b[4] != version {
		return nil, ErrCorrupt
	}
	off := 5

	n := uint64(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every item needs minItem bytes; refuse the count before sizing anything by it
	if n > uint64(len(b)-off)/minItem {
		return nil, ErrCorrupt
	}

	blocks := make([]Block, 0, n)
	for i := uint64(0); i < n; i++ {
		// cidLen
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		clen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if clen == 0 || clen > len(b)-off {
			return nil, ErrCorrupt
		}
		id := b[off : off+clen]
		off += clen

		// vlen
		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := uint64(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen == 0 || vlen > uint64(len(b)-off) { // overflow-safe bound check
			return nil, ErrCorrupt
		}
		payload := b[off : off+int(vlen)]
		off += int(vlen)

		blocks = append(blocks, Block{CID: id, Payload: payload})
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return blocks, nil
}
