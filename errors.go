package canoncbor

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed             = errors.New("canoncbor: malformed input")
	ErrResourceLimitExceeded = errors.New("canoncbor: resource limit exceeded")
	ErrTrailingData          = errors.New("canoncbor: trailing data after value")
	ErrDuplicateKey          = errors.New("canoncbor: duplicate map key")
	ErrUnsupportedForm       = errors.New("canoncbor: unsupported form")
	ErrEncodeOverflow        = errors.New("canoncbor: encoded output exceeds limit")
)

// ErrorKind classifies a DecodeError.
type ErrorKind uint8

const (
	KindMalformed ErrorKind = iota + 1
	KindResourceLimitExceeded
	KindTrailingData
	KindDuplicateKey
	KindUnsupportedForm
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindResourceLimitExceeded:
		return "resource_limit_exceeded"
	case KindTrailingData:
		return "trailing_data"
	case KindDuplicateKey:
		return "duplicate_key"
	case KindUnsupportedForm:
		return "unsupported_form"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMalformed:
		return ErrMalformed
	case KindResourceLimitExceeded:
		return ErrResourceLimitExceeded
	case KindTrailingData:
		return ErrTrailingData
	case KindDuplicateKey:
		return ErrDuplicateKey
	case KindUnsupportedForm:
		return ErrUnsupportedForm
	default:
		return nil
	}
}

// DecodeError reports why input was rejected and where.
// It matches the sentinel of its Kind under errors.Is.
type DecodeError struct {
	Kind   ErrorKind
	Limit  Limit // set for KindResourceLimitExceeded
	Offset int   // byte offset of the offending item
	Reason string
}

func (e *DecodeError) Error() string {
	switch {
	case e.Kind == KindResourceLimitExceeded:
		return fmt.Sprintf("canoncbor: %s limit exceeded at offset %d: %s", e.Limit, e.Offset, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("canoncbor: %s at offset %d: %s", e.Kind, e.Offset, e.Reason)
	default:
		return fmt.Sprintf("canoncbor: %s at offset %d", e.Kind, e.Offset)
	}
}

func (e *DecodeError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// EncodeError is returned when the encoding would exceed EncOptions.MaxOutputSize.
// Size is a lower bound on the output size that was refused.
type EncodeError struct {
	Size int
	Max  int
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("canoncbor: encoded output exceeds limit: at least %d > %d", e.Size, e.Max)
}

func (e *EncodeError) Unwrap() error { return ErrEncodeOverflow }

func newErr(kind ErrorKind, off int, reason string) *DecodeError {
	return &DecodeError{Kind: kind, Offset: off, Reason: reason}
}

func limitErr(lim Limit, off int, reason string) *DecodeError {
	return &DecodeError{Kind: KindResourceLimitExceeded, Limit: lim, Offset: off, Reason: reason}
}
