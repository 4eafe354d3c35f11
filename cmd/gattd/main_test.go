package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/gattd/internal/peripheral"
	"github.com/srg/gattd/internal/peripheral/goble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil",
			err:  nil,
			want: "",
		},
		{
			name: "bluetooth off through advertising error",
			err:  &peripheral.AdvertisingError{LocalName: "x", Err: fmt.Errorf("%w: powered off", goble.ErrBluetoothOff)},
			want: "Bluetooth is turned off; enable it and retry",
		},
		{
			name: "permission denied",
			err:  fmt.Errorf("failed to open BLE device: %w", goble.ErrPermissionDenied),
			want: "run with CAP_NET_ADMIN or as root",
		},
		{
			name: "advertisement too long",
			err:  &peripheral.AdvertisingError{Err: goble.ErrAdvertisementTooLong},
			want: "shorten the local name",
		},
		{
			name: "registration",
			err:  &peripheral.RegistrationError{Err: errors.New("stack full")},
			want: "failed to register services: register service",
		},
		{
			name: "advertising",
			err:  &peripheral.AdvertisingError{LocalName: "x", Err: errors.New("hci reset")},
			want: `advertising failed: advertise "x": hci reset`,
		},
		{
			name: "plain",
			err:  errors.New("something else"),
			want: "something else",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatUserError(tt.err), tt.want)
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	newCmd := func(level string) *cobra.Command {
		cmd := &cobra.Command{Use: "x"}
		cmd.Flags().String("log-level", "", "")
		if level != "" {
			require.NoError(t, cmd.Flags().Set("log-level", level))
		}
		return cmd
	}

	logger, err := configureLogger(newCmd(""), logrus.WarnLevel)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel(), "fallback level MUST apply without --log-level")

	logger, err = configureLogger(newCmd("debug"), logrus.WarnLevel)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel(), "--log-level MUST take precedence")

	_, err = configureLogger(newCmd("trace"), logrus.InfoLevel)
	assert.ErrorContains(t, err, "invalid log level: trace")
}
