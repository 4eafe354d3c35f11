package goble

import (
	"context"

	"github.com/go-ble/ble"
)

// Device is the part of ble.Device a peripheral needs.
type Device interface {
	AddService(svc *ble.Service) error
	AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error
	AdvertiseIBeacon(ctx context.Context, u ble.UUID, major, minor uint16, pwr int8) error
	Stop() error
}

var _ Device = ble.Device(nil)

// ----------------------------
// Device Factory
// ----------------------------

// DeviceFactory opens the platform BLE device (can be overridden in tests).
// deviceID selects the HCI adapter on Linux and is ignored elsewhere.
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func(deviceID int) (Device, error) {
	return newPlatformDevice(deviceID)
}
