package testutils

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

// MockDevice is a testify mock of the go-ble peripheral device surface.
type MockDevice struct {
	mock.Mock
}

func (m *MockDevice) AddService(svc *ble.Service) error {
	args := m.Called(svc)
	return args.Error(0)
}

func (m *MockDevice) AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error {
	args := m.Called(ctx, name, uuids)
	return args.Error(0)
}

func (m *MockDevice) AdvertiseIBeacon(ctx context.Context, u ble.UUID, major, minor uint16, pwr int8) error {
	args := m.Called(ctx, u, major, minor, pwr)
	return args.Error(0)
}

func (m *MockDevice) Stop() error {
	args := m.Called()
	return args.Error(0)
}

// NewMockDevice returns a device that accepts services and assigns value handles the way
// the Linux stack does, starting with the service declaration at firstHandle.
func NewMockDevice(firstHandle uint16) *MockDevice {
	dev := &MockDevice{}
	next := firstHandle
	dev.On("AddService", mock.AnythingOfType("*ble.Service")).Run(func(args mock.Arguments) {
		svc := args.Get(0).(*ble.Service)
		svc.Handle = next
		h := next + 1
		for _, c := range svc.Characteristics {
			c.Handle = h
			c.ValueHandle = h + 1
			h += 2
			if c.CCCD != nil {
				c.CCCD.Handle = h
				h++
			}
			for _, d := range c.Descriptors {
				d.Handle = h
				h++
			}
			c.EndHandle = h - 1
		}
		svc.EndHandle = h - 1
		next = h
	}).Return(nil)
	dev.On("Stop").Return(nil)
	return dev
}
