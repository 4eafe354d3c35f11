//go:build !linux && !darwin

package goble

import (
	"fmt"
	"runtime"
)

func newPlatformDevice(_ int) (Device, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
}
