package codec

import (
	"fmt"

	"github.com/unkn0wn-root/canoncbor"
)

// LimitCodec wraps another codec to enforce a maximum allowed payload size
// at Decode time. Encode is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// The check runs before Inner sees a single byte, so oversized payloads from
// a shared store or the network cost nothing to refuse.
type LimitCodec[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec[V]
	// MaxDecode is the maximum permitted length (in bytes) of the incoming
	// payload for Decode. Larger payloads fail with a *canoncbor.DecodeError
	// carrying LimitInputSize.
	MaxDecode int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, &canoncbor.DecodeError{
			Kind:   canoncbor.KindResourceLimitExceeded,
			Limit:  canoncbor.LimitInputSize,
			Reason: fmt.Sprintf("payload %d > %d bytes", len(b), c.MaxDecode),
		}
	}
	return c.Inner.Decode(b)
}
