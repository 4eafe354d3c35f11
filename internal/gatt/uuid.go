package gatt

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// BaseUUID is the Bluetooth SIG base UUID (0000xxxx-0000-1000-8000-00805f9b34fb).
// 16-bit SIG UUIDs are aliases of this value with bytes 2-3 replaced.
var BaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// UUID16 expands a 16-bit SIG assigned number (e.g. 0x2A19) to its 128-bit form.
func UUID16(short uint16) uuid.UUID {
	u := BaseUUID
	binary.BigEndian.PutUint16(u[2:4], short)
	return u
}

// ShortUUID returns the 16-bit form of u when u is based on the SIG base UUID.
func ShortUUID(u uuid.UUID) (uint16, bool) {
	if u[0] != 0 || u[1] != 0 {
		return 0, false
	}
	probe := u
	probe[2], probe[3] = 0, 0
	if probe != BaseUUID {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

// ParseUUID parses a characteristic or service identity.
// Accepted forms: "2a19", "0x2A19", "00002a19-0000-1000-8000-00805f9b34fb" and the same
// without dashes. Short forms are expanded onto the SIG base UUID.
func ParseUUID(s string) (uuid.UUID, error) {
	raw := strings.TrimSpace(s)
	trimmed := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")

	if len(trimmed) == 4 {
		v, err := strconv.ParseUint(trimmed, 16, 16)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
		}
		return UUID16(uint16(v)), nil
	}

	u, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
	}
	return u, nil
}

// MustParseUUID is like ParseUUID but panics on malformed input.
// Intended for package-level declarations.
func MustParseUUID(s string) uuid.UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// FormatUUID renders SIG-based UUIDs in their 4-digit short form and everything else dashed.
func FormatUUID(u uuid.UUID) string {
	if short, ok := ShortUUID(u); ok {
		return fmt.Sprintf("%04x", short)
	}
	return u.String()
}
