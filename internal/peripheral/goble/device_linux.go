//go:build linux

package goble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

func newPlatformDevice(deviceID int) (Device, error) {
	dev, err := linux.NewDevice(ble.OptDeviceID(deviceID))
	if err != nil {
		return nil, NormalizeError(err)
	}
	return dev, nil
}
