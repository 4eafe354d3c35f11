package main

import (
	"errors"

	"github.com/srg/gattd/internal/peripheral"
	"github.com/srg/gattd/internal/peripheral/goble"
)

// Command-level errors
var (
	// ErrNoProfile indicates neither --profile nor the config file named a profile.
	ErrNoProfile = errors.New("no profile given: pass --profile or set profile in the config file")
)

var userHints = []struct {
	err  error
	hint string
}{
	{goble.ErrBluetoothOff, "Bluetooth is turned off; enable it and retry"},
	{goble.ErrPermissionDenied, "no permission to use the BLE adapter; run with CAP_NET_ADMIN or as root"},
	{goble.ErrNoAdapter, "no BLE adapter found; check --device"},
	{goble.ErrUnsupportedPlatform, "this platform cannot act as a BLE peripheral"},
	{goble.ErrAdvertisementTooLong, "advertising data does not fit 31 bytes; shorten the local name or advertise fewer services"},
	{goble.ErrSecondaryService, "secondary services are not supported by the BLE stack; mark the service primary"},
}

// FormatUserError renders err for the terminal, prefixing a hint for well-known failures.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, h := range userHints {
		if errors.Is(err, h.err) {
			return h.hint + " (" + msg + ")"
		}
	}

	switch {
	case errors.Is(err, peripheral.ErrRegistration):
		return "failed to register services: " + msg
	case errors.Is(err, peripheral.ErrAdvertising):
		return "advertising failed: " + msg
	default:
		return msg
	}
}
