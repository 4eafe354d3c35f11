package profile

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/srg/gattd/internal/gatt"
)

// Types lists the value types a profile characteristic may declare.
var Types = []string{"uint8", "uint16", "uint32", "int8", "int16", "int32", "float32", "bool", "string", "bytes"}

func (cp CharacteristicProfile) build() (gatt.Attribute, error) {
	id, err := gatt.ParseUUID(cp.UUID)
	if err != nil {
		return nil, fmt.Errorf("uuid: %w", err)
	}
	props, err := gatt.ParseProperties(cp.Properties)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}

	var opts []gatt.CharacteristicOption
	if cp.Permissions != "" {
		perms, err := gatt.ParsePermissions(cp.Permissions)
		if err != nil {
			return nil, fmt.Errorf("permissions: %w", err)
		}
		opts = append(opts, gatt.WithPermissions(perms))
	}
	if cp.Description != "" {
		opts = append(opts, gatt.WithDescriptors(gatt.UserDescription(cp.Description)))
	}

	switch strings.ToLower(cp.Type) {
	case "uint8":
		return typed(cp.Value, id, props, gatt.Uint8Codec{}, unsigned[uint8](math.MaxUint8), opts)
	case "uint16":
		return typed(cp.Value, id, props, gatt.Uint16Codec{}, unsigned[uint16](math.MaxUint16), opts)
	case "uint32":
		return typed(cp.Value, id, props, gatt.Uint32Codec{}, unsigned[uint32](math.MaxUint32), opts)
	case "int8":
		return typed(cp.Value, id, props, gatt.Int8Codec{}, signed[int8](math.MinInt8, math.MaxInt8), opts)
	case "int16":
		return typed(cp.Value, id, props, gatt.Int16Codec{}, signed[int16](math.MinInt16, math.MaxInt16), opts)
	case "int32":
		return typed(cp.Value, id, props, gatt.Int32Codec{}, signed[int32](math.MinInt32, math.MaxInt32), opts)
	case "float32":
		return typed(cp.Value, id, props, gatt.Float32Codec{}, toFloat32, opts)
	case "bool":
		return typed(cp.Value, id, props, gatt.BoolCodec{}, toBool, opts)
	case "string":
		return typed(cp.Value, id, props, gatt.StringCodec{}, toString, opts)
	case "bytes":
		return typed(cp.Value, id, props, gatt.BytesCodec{}, toBytes, opts)
	default:
		return nil, fmt.Errorf("type: unknown value type %q (want one of %s)", cp.Type, strings.Join(Types, ", "))
	}
}

// typed converts the YAML value and builds the characteristic. A missing value yields the
// type's zero value.
func typed[T any](raw any, id uuid.UUID, props gatt.Properties, codec gatt.Codec[T], conv func(any) (T, error), opts []gatt.CharacteristicOption) (gatt.Attribute, error) {
	var initial T
	if raw != nil {
		v, err := conv(raw)
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		initial = v
	}
	return gatt.NewCharacteristic(initial, id, props, codec, opts...), nil
}

func unsigned[T uint8 | uint16 | uint32](maxValue uint64) func(any) (T, error) {
	return func(raw any) (T, error) {
		n, ok := raw.(int)
		if !ok {
			return 0, fmt.Errorf("want an integer, got %T", raw)
		}
		if n < 0 || uint64(n) > maxValue {
			return 0, fmt.Errorf("%d is out of range [0, %d]", n, maxValue)
		}
		return T(n), nil
	}
}

func signed[T int8 | int16 | int32](minValue, maxValue int64) func(any) (T, error) {
	return func(raw any) (T, error) {
		n, ok := raw.(int)
		if !ok {
			return 0, fmt.Errorf("want an integer, got %T", raw)
		}
		if int64(n) < minValue || int64(n) > maxValue {
			return 0, fmt.Errorf("%d is out of range [%d, %d]", n, minValue, maxValue)
		}
		return T(n), nil
	}
}

func toFloat32(raw any) (float32, error) {
	switch v := raw.(type) {
	case float64:
		return float32(v), nil
	case int:
		return float32(v), nil
	default:
		return 0, fmt.Errorf("want a number, got %T", raw)
	}
}

func toBool(raw any) (bool, error) {
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("want true or false, got %T", raw)
	}
	return v, nil
}

func toString(raw any) (string, error) {
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("want a string, got %T", raw)
	}
	return v, nil
}

// toBytes accepts a hex string ("0a0b", "0x0a0b", "0a 0b") or a list of byte values.
func toBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimPrefix(strings.ToLower(strings.ReplaceAll(v, " ", "")), "0x")
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", v, err)
		}
		return b, nil
	case []any:
		out := make([]byte, 0, len(v))
		for i, item := range v {
			n, ok := item.(int)
			if !ok || n < 0 || n > math.MaxUint8 {
				return nil, fmt.Errorf("item %d: want a byte value, got %v", i, item)
			}
			out = append(out, byte(n))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want a hex string or a list of bytes, got %T", raw)
	}
}
