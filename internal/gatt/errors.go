package gatt

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is comparisons.
var (
	ErrDecode      = errors.New("decode failed")
	ErrInvalidUUID = errors.New("invalid UUID")
)

// DecodeError reports bytes that could not be decoded into a typed value.
type DecodeError struct {
	Type   string // target type name, e.g. "uint16"
	Len    int    // length of the rejected buffer
	Reason string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Reason == "" {
		return fmt.Sprintf("cannot decode %d bytes as %s", e.Len, e.Type)
	}
	return fmt.Sprintf("cannot decode %d bytes as %s: %s", e.Len, e.Type, e.Reason)
}

// Is makes every DecodeError match ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// lengthError is the common DecodeError for fixed-width types.
func lengthError(typ string, want, got int) *DecodeError {
	return &DecodeError{Type: typ, Len: got, Reason: fmt.Sprintf("want %d bytes", want)}
}
