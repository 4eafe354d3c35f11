package goble

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBluetoothOff         = errors.New("bluetooth is turned off")
	ErrPermissionDenied     = errors.New("permission denied to access the BLE adapter")
	ErrNoAdapter            = errors.New("BLE adapter not found")
	ErrUnsupportedPlatform  = errors.New("BLE peripheral role is not supported on this platform")
	ErrSecondaryService     = errors.New("go-ble registers primary services only")
	ErrUnknownHandle        = errors.New("unknown attribute handle")
	ErrAdvertisementTooLong = errors.New("advertising data exceeds 31 bytes")
	ErrServerClosed         = errors.New("attribute server closed")
)

// NormalizeError maps known go-ble error strings to the sentinel errors above.
// Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "is Bluetooth turned on"),
		containsIgnoreCase(msg, "bluetooth is turned off"),
		containsIgnoreCase(msg, "powered off"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "operation not permitted"),
		containsIgnoreCase(msg, "permission denied"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case containsIgnoreCase(msg, "no such device"),
		containsIgnoreCase(msg, "can't find device"):
		return fmt.Errorf("%w: %v", ErrNoAdapter, err)
	case containsIgnoreCase(msg, "max packet length"):
		return fmt.Errorf("%w: %v", ErrAdvertisementTooLong, err)
	default:
		return err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
