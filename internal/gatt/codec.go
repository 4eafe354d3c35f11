package gatt

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Codec converts between a typed characteristic value and its attribute bytes.
// Encode must accept every value of T; Decode may reject malformed buffers with a *DecodeError.
// Decode(Encode(v)) must equal v.
type Codec[T any] interface {
	Encode(v T) []byte
	Decode(b []byte) (T, error)
}

// CodecFunc adapts a pair of functions to the Codec interface.
type CodecFunc[T any] struct {
	EncodeFunc func(T) []byte
	DecodeFunc func([]byte) (T, error)
}

func (c CodecFunc[T]) Encode(v T) []byte          { return c.EncodeFunc(v) }
func (c CodecFunc[T]) Decode(b []byte) (T, error) { return c.DecodeFunc(b) }

// Multi-byte integers and floats use little-endian order, as the GATT assigned formats do.
type (
	Uint8Codec   struct{}
	Uint16Codec  struct{}
	Uint32Codec  struct{}
	Uint64Codec  struct{}
	Int8Codec    struct{}
	Int16Codec   struct{}
	Int32Codec   struct{}
	Int64Codec   struct{}
	Float32Codec struct{}
	Float64Codec struct{}
	BoolCodec    struct{}
	StringCodec  struct{}
	BytesCodec   struct{}
)

func (Uint8Codec) Encode(v uint8) []byte { return []byte{v} }
func (Uint8Codec) Decode(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, lengthError("uint8", 1, len(b))
	}
	return b[0], nil
}

func (Uint16Codec) Encode(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
func (Uint16Codec) Decode(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, lengthError("uint16", 2, len(b))
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (Uint32Codec) Encode(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func (Uint32Codec) Decode(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, lengthError("uint32", 4, len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (Uint64Codec) Encode(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }
func (Uint64Codec) Decode(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, lengthError("uint64", 8, len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (Int8Codec) Encode(v int8) []byte { return []byte{byte(v)} }
func (Int8Codec) Decode(b []byte) (int8, error) {
	if len(b) != 1 {
		return 0, lengthError("int8", 1, len(b))
	}
	return int8(b[0]), nil
}

func (Int16Codec) Encode(v int16) []byte { return binary.LittleEndian.AppendUint16(nil, uint16(v)) }
func (Int16Codec) Decode(b []byte) (int16, error) {
	if len(b) != 2 {
		return 0, lengthError("int16", 2, len(b))
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (Int32Codec) Encode(v int32) []byte { return binary.LittleEndian.AppendUint32(nil, uint32(v)) }
func (Int32Codec) Decode(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, lengthError("int32", 4, len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (Int64Codec) Encode(v int64) []byte { return binary.LittleEndian.AppendUint64(nil, uint64(v)) }
func (Int64Codec) Decode(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, lengthError("int64", 8, len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (Float32Codec) Encode(v float32) []byte {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))
}
func (Float32Codec) Decode(b []byte) (float32, error) {
	if len(b) != 4 {
		return 0, lengthError("float32", 4, len(b))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (Float64Codec) Encode(v float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))
}
func (Float64Codec) Decode(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, lengthError("float64", 8, len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (BoolCodec) Encode(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}
func (BoolCodec) Decode(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, lengthError("bool", 1, len(b))
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &DecodeError{Type: "bool", Len: 1, Reason: "want 0x00 or 0x01"}
	}
}

func (StringCodec) Encode(v string) []byte { return []byte(v) }
func (StringCodec) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", &DecodeError{Type: "string", Len: len(b), Reason: "invalid UTF-8"}
	}
	return string(b), nil
}

// BytesCodec passes buffers through unchanged (copied).
func (BytesCodec) Encode(v []byte) []byte { return cloneBytes(v) }
func (BytesCodec) Decode(b []byte) ([]byte, error) {
	return cloneBytes(b), nil
}

// cloneBytes copies b, preserving the empty-but-non-nil distinction callers may rely on.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
