package peripheral

import (
	"context"

	"github.com/google/uuid"
	"github.com/srg/gattd/internal/gatt"
)

// WriteFunc receives a value a connected central wrote to the attribute at handle.
// It is called from the transport's connection context and must return quickly.
type WriteFunc func(handle uint16, value []byte)

// CharacteristicSpec is the stack-level record submitted for one characteristic.
type CharacteristicSpec struct {
	UUID        uuid.UUID
	Value       []byte
	Permissions gatt.Permissions
	Properties  gatt.Properties
	Descriptors []gatt.Descriptor
}

// ServiceSpec is one atomic service registration.
type ServiceSpec struct {
	UUID            uuid.UUID
	Primary         bool
	Characteristics []CharacteristicSpec
}

// AttributeServer is the attribute table a Binder registers services with.
type AttributeServer interface {
	// AddService registers the whole service or nothing.
	AddService(spec ServiceSpec) error
	// HandlesFor returns the value handles assigned to characteristics with the given
	// identity, in registration order.
	HandlesFor(id uuid.UUID) []uint16
	// SetAttributeValue replaces the value served for handle and notifies subscribers.
	SetAttributeValue(handle uint16, value []byte) error
	// StoreAttributeValue replaces the value served for handle without notifying subscribers.
	StoreAttributeValue(handle uint16, value []byte) error
	// AttributeValue returns the value currently served for handle.
	AttributeValue(handle uint16) ([]byte, bool)
	// HandleRemoteWrite installs the callback for writes from connected centrals.
	HandleRemoteWrite(fn WriteFunc)
}

// Beacon configures iBeacon advertising.
type Beacon struct {
	UUID          uuid.UUID
	Major         uint16
	Minor         uint16
	MeasuredPower int8 // RSSI at 1 m, in dBm
}

// Advertisement is the payload to broadcast.
type Advertisement struct {
	LocalName string
	Services  []uuid.UUID
	Beacon    *Beacon
}

// Advertiser broadcasts advertisements until ctx is done.
type Advertiser interface {
	Advertise(ctx context.Context, adv Advertisement) error
}

// specFor snapshots a service into its stack-level record.
func specFor(svc *gatt.Service, chars []gatt.Attribute) ServiceSpec {
	spec := ServiceSpec{
		UUID:            svc.UUID(),
		Primary:         svc.Primary(),
		Characteristics: make([]CharacteristicSpec, 0, len(chars)),
	}
	for _, c := range chars {
		spec.Characteristics = append(spec.Characteristics, CharacteristicSpec{
			UUID:        c.UUID(),
			Value:       c.Data(),
			Permissions: c.Permissions(),
			Properties:  c.Properties(),
			Descriptors: c.Descriptors(),
		})
	}
	return spec
}
