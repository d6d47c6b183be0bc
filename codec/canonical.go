package codec

import (
	"bytes"
	"errors"

	"github.com/unkn0wn-root/canoncbor"
)

// Options configures a Canonical codec. Zero fields take defaults.
type Options struct {
	Dec    canoncbor.DecOptions
	Enc    canoncbor.EncOptions
	Logger canoncbor.Logger // default: NopLogger
	Hooks  canoncbor.Hooks  // default: NopHooks
}

// Canonical is the Codec for canoncbor.Value: untrusted bytes in, canonical
// bytes out. Rejections and non-canonical input are reported through the
// configured Logger and Hooks.
// The zero value is NOT ready to use. Construct with NewCanonical or MustCanonical.
type Canonical struct {
	dec   canoncbor.DecMode
	enc   canoncbor.EncMode
	log   canoncbor.Logger
	hooks canoncbor.Hooks
}

var _ Codec[canoncbor.Value] = (*Canonical)(nil)

func NewCanonical(opts Options) (*Canonical, error) {
	dm, err := opts.Dec.DecMode()
	if err != nil {
		return nil, err
	}
	em, err := opts.Enc.EncMode()
	if err != nil {
		return nil, err
	}
	c := &Canonical{dec: dm, enc: em, log: opts.Logger, hooks: opts.Hooks}
	if c.log == nil {
		c.log = canoncbor.NopLogger{}
	}
	if c.hooks == nil {
		c.hooks = canoncbor.NopHooks{}
	}
	return c, nil
}

// MustCanonical is like NewCanonical but panics on error.
func MustCanonical(opts Options) *Canonical {
	c, err := NewCanonical(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// DecMode returns the decoding configuration c was built with.
func (c *Canonical) DecMode() canoncbor.DecMode { return c.dec }

// Encode returns the canonical encoding of v.
func (c *Canonical) Encode(v canoncbor.Value) ([]byte, error) {
	b, err := c.enc.Encode(v)
	if err != nil {
		c.encodeRejected(err)
		return nil, err
	}
	return b, nil
}

// Decode decodes exactly one value from b.
func (c *Canonical) Decode(b []byte) (canoncbor.Value, error) {
	v, err := c.dec.Decode(b)
	if err != nil {
		c.decodeRejected(len(b), err)
		return nil, err
	}
	return v, nil
}

// Canonicalize decodes b and returns its canonical encoding. When b already
// is canonical the returned slice has equal contents.
func (c *Canonical) Canonicalize(b []byte) ([]byte, error) {
	v, err := c.Decode(b)
	if err != nil {
		return nil, err
	}
	out, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(b, out) {
		c.hooks.NonCanonicalInput(len(b), len(out))
		c.log.Info("canoncbor: non-canonical input", canoncbor.Fields{
			"size":           len(b),
			"canonical_size": len(out),
		})
	}
	return out, nil
}

func (c *Canonical) decodeRejected(size int, err error) {
	kind, limit := "unknown", canoncbor.LimitNone
	var de *canoncbor.DecodeError
	if errors.As(err, &de) {
		kind, limit = de.Kind.String(), de.Limit
	}
	c.hooks.DecodeRejected(kind, limit.String(), size)
	f := canoncbor.Fields{"size": size, "kind": kind, "err": err}
	if limit != canoncbor.LimitNone {
		f["limit"] = limit.String()
	}
	c.log.Debug("canoncbor: decode rejected", f)
}

func (c *Canonical) encodeRejected(err error) {
	var ee *canoncbor.EncodeError
	if !errors.As(err, &ee) {
		return
	}
	c.hooks.EncodeRejected(ee.Size, ee.Max)
	c.log.Warn("canoncbor: encode rejected", canoncbor.Fields{"size": ee.Size, "max": ee.Max})
}
