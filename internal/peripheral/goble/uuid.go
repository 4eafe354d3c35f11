package goble

import (
	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/srg/gattd/internal/gatt"
)

// toBLE converts an identity to go-ble's little-endian form. SIG UUIDs keep their
// 16-bit form so they advertise and declare compactly.
func toBLE(u uuid.UUID) ble.UUID {
	if short, ok := gatt.ShortUUID(u); ok {
		return ble.UUID16(short)
	}
	return toBLE128(u)
}

// toBLE128 always yields the full 128-bit form, as iBeacon proximity UUIDs require.
func toBLE128(u uuid.UUID) ble.UUID {
	return ble.Reverse(u[:])
}
