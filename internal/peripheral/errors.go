package peripheral

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/srg/gattd/internal/gatt"
)

// Sentinel errors for errors.Is comparisons.
var (
	ErrRegistration = errors.New("service registration failed")
	ErrAdvertising  = errors.New("advertising failed")
	ErrClosed       = errors.New("binder closed")
	ErrNoAdvertiser = errors.New("no advertiser configured")
	ErrNilService   = errors.New("nil service")
)

// RegistrationError reports a service the attribute server did not accept.
// Nothing from the failed service is bound.
type RegistrationError struct {
	Service uuid.UUID
	Err     error
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("register service %s: %v", gatt.FormatUUID(e.Service), e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Is matches ErrRegistration.
func (e *RegistrationError) Is(target error) bool { return target == ErrRegistration }

// AdvertisingError reports a transport failure while advertising. It is not retried.
type AdvertisingError struct {
	LocalName string
	Err       error
}

func (e *AdvertisingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.LocalName == "" {
		return fmt.Sprintf("advertise: %v", e.Err)
	}
	return fmt.Sprintf("advertise %q: %v", e.LocalName, e.Err)
}

func (e *AdvertisingError) Unwrap() error { return e.Err }

// Is matches ErrAdvertising.
func (e *AdvertisingError) Is(target error) bool { return target == ErrAdvertising }
