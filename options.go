package canoncbor

import "fmt"

// DupMapKeyMode decides what the decoder does with repeated map keys.
// Keys are compared by their canonical encoding.
type DupMapKeyMode int

const (
	// DupMapKeyReject fails the decode with ErrDuplicateKey (default).
	DupMapKeyReject DupMapKeyMode = iota
	// DupMapKeyKeepFirst keeps the first occurrence and drops later ones.
	DupMapKeyKeepFirst
	// DupMapKeyKeepLast keeps the value of the last occurrence, at the
	// position of the first.
	DupMapKeyKeepLast
	maxDupMapKeyMode
)

// IndefLengthMode decides whether indefinite-length items are accepted.
type IndefLengthMode int

const (
	// IndefLengthAllowed accumulates chunks/elements until the break byte (default).
	IndefLengthAllowed IndefLengthMode = iota
	// IndefLengthForbidden fails with ErrUnsupportedForm.
	IndefLengthForbidden
	maxIndefLengthMode
)

// TagsMode decides whether tagged items (major type 6) are accepted.
type TagsMode int

const (
	// TagsAllowed keeps tags as Tag values (default).
	TagsAllowed TagsMode = iota
	// TagsForbidden fails with ErrUnsupportedForm.
	TagsForbidden
	maxTagsMode
)

// DecOptions configures decoding. The zero value is the default policy.
type DecOptions struct {
	Limits      Limits
	DupMapKey   DupMapKeyMode
	IndefLength IndefLengthMode
	TagsMd      TagsMode
}

// DecMode is an immutable, validated decoding configuration, safe for
// concurrent use. Build one with DecOptions.DecMode.
type DecMode struct {
	opts DecOptions
}

// DecMode validates o and resolves defaults.
func (o DecOptions) DecMode() (DecMode, error) {
	if err := o.Limits.validate(); err != nil {
		return DecMode{}, err
	}
	if o.DupMapKey < 0 || o.DupMapKey >= maxDupMapKeyMode {
		return DecMode{}, fmt.Errorf("canoncbor: invalid DupMapKey %d", o.DupMapKey)
	}
	if o.IndefLength < 0 || o.IndefLength >= maxIndefLengthMode {
		return DecMode{}, fmt.Errorf("canoncbor: invalid IndefLength %d", o.IndefLength)
	}
	if o.TagsMd < 0 || o.TagsMd >= maxTagsMode {
		return DecMode{}, fmt.Errorf("canoncbor: invalid TagsMd %d", o.TagsMd)
	}
	o.Limits = o.Limits.withDefaults()
	return DecMode{opts: o}, nil
}

// DecOptions returns the resolved options.
func (m DecMode) DecOptions() DecOptions {
	o := m.opts
	o.Limits = o.Limits.withDefaults()
	return o
}

// Limits returns the resolved ceilings, e.g. for NewGuard.
func (m DecMode) Limits() Limits { return m.opts.Limits.withDefaults() }

// EncOptions configures encoding.
type EncOptions struct {
	// MaxOutputSize caps the encoded size in bytes. 0 disables the cap.
	MaxOutputSize int
}

// EncMode is an immutable, validated encoding configuration, safe for
// concurrent use. The zero value encodes without a ceiling.
type EncMode struct {
	opts EncOptions
}

// EncMode validates o.
func (o EncOptions) EncMode() (EncMode, error) {
	if o.MaxOutputSize < 0 {
		return EncMode{}, fmt.Errorf("canoncbor: invalid MaxOutputSize %d", o.MaxOutputSize)
	}
	return EncMode{opts: o}, nil
}

// EncOptions returns the options m was built from.
func (m EncMode) EncOptions() EncOptions { return m.opts }

var (
	defaultDecMode, _ = DecOptions{}.DecMode()
	defaultEncMode    EncMode
)

// Decode decodes exactly one value from b with the default options.
func Decode(b []byte) (Value, error) { return defaultDecMode.Decode(b) }

// DecodeFirst decodes the first value in b with the default options and
// returns the bytes that follow it.
func DecodeFirst(b []byte) (Value, []byte, error) { return defaultDecMode.DecodeFirst(b) }

// Encode returns the canonical encoding of v with the default options.
func Encode(v Value) ([]byte, error) { return defaultEncMode.Encode(v) }
