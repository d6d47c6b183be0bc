// Package codec holds byte codecs built on canoncbor: the canonicalizing
// Value codec, a size guard, a Go-value CBOR codec and a MessagePack
// transcoder.
package codec

import "github.com/unkn0wn-root/canoncbor"

// Codec encodes V to bytes and back. Decode must reject, not repair,
// input it cannot represent.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

var _ Codec[canoncbor.Value] = LimitCodec[canoncbor.Value]{}
