package goble

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/gattd/internal/gatt"
	"github.com/srg/gattd/internal/peripheral"
)

const (
	// MaxAdvertisingData is the legacy advertising PDU payload limit.
	MaxAdvertisingData = 31

	adHeaderLen = 2 // length and AD type
	adFlagsLen  = adHeaderLen + 1
)

var (
	_ peripheral.AttributeServer = (*Server)(nil)
	_ peripheral.Advertiser      = (*Server)(nil)
)

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueueSize sets the number of pending value updates kept per subscribed central.
func WithQueueSize(size uint32) Option {
	return func(s *Server) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// ----------------------------
// Server
// ----------------------------

// Server serves gatt characteristics through a go-ble device.
type Server struct {
	dev       Device
	logger    *logrus.Logger
	queueSize uint32

	mu        sync.Mutex // guards byUUID and maxHandle
	byUUID    map[uuid.UUID][]uint16
	maxHandle uint16

	slots   *hashmap.Map[uint16, *slot]
	onWrite atomic.Pointer[peripheral.WriteFunc]
	closed  atomic.Bool
}

// NewServer wraps an already opened device.
func NewServer(dev Device, opts ...Option) *Server {
	s := &Server{
		dev:       dev,
		logger:    logrus.New(),
		queueSize: DefaultQueueSize,
		byUUID:    make(map[uuid.UUID][]uint16),
		slots:     hashmap.New[uint16, *slot](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates the platform device through DeviceFactory and wraps it.
func Open(deviceID int, opts ...Option) (*Server, error) {
	dev, err := DeviceFactory(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open BLE device: %w", err)
	}
	return NewServer(dev, opts...), nil
}

// AddService converts spec to a go-ble service and registers it with the device.
// Nothing is recorded unless the device accepts the service.
func (s *Server) AddService(spec peripheral.ServiceSpec) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !spec.Primary {
		return ErrSecondaryService
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	svc := ble.NewService(toBLE(spec.UUID))
	pending := make([]*slot, 0, len(spec.Characteristics))
	chars := make([]*ble.Characteristic, 0, len(spec.Characteristics))
	for _, cs := range spec.Characteristics {
		sl := newSlot(s, cs)
		c := sl.characteristic()
		svc.AddCharacteristic(c)
		pending = append(pending, sl)
		chars = append(chars, c)
	}

	if err := s.dev.AddService(svc); err != nil {
		return NormalizeError(err)
	}

	for i, sl := range pending {
		handle := chars[i].ValueHandle
		if handle == 0 {
			// Platform keeps its attribute table private (CoreBluetooth).
			handle = s.maxHandle + 1
		}
		if handle > s.maxHandle {
			s.maxHandle = handle
		}
		sl.handle.Store(uint32(handle))
		s.slots.Set(handle, sl)
		s.byUUID[sl.uuid] = append(s.byUUID[sl.uuid], handle)

		if sl.perms.Has(gatt.PermReadEncrypted) || sl.perms.Has(gatt.PermWriteEncrypted) ||
			sl.perms.Has(gatt.PermReadAuthenticated) || sl.perms.Has(gatt.PermWriteAuthenticated) {
			s.logger.WithFields(logrus.Fields{
				"characteristic": gatt.FormatUUID(sl.uuid),
				"permissions":    sl.perms.String(),
			}).Warn("Link security requirements are not enforced by go-ble")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"service":         gatt.FormatUUID(spec.UUID),
		"characteristics": len(pending),
	}).Debug("Service added to BLE device")
	return nil
}

func (s *Server) HandlesFor(id uuid.UUID) []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint16(nil), s.byUUID[id]...)
}

// SetAttributeValue stores value for handle and queues it for every subscribed central.
func (s *Server) SetAttributeValue(handle uint16, value []byte) error {
	sl, ok := s.slots.Get(handle)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	sl.store(value)
	sl.broadcast(value)
	return nil
}

// StoreAttributeValue replaces the value served for handle. Subscribers are not notified.
func (s *Server) StoreAttributeValue(handle uint16, value []byte) error {
	sl, ok := s.slots.Get(handle)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	sl.store(value)
	return nil
}

func (s *Server) AttributeValue(handle uint16) ([]byte, bool) {
	sl, ok := s.slots.Get(handle)
	if !ok {
		return nil, false
	}
	return sl.load(), true
}

func (s *Server) HandleRemoteWrite(fn peripheral.WriteFunc) {
	if fn == nil {
		s.onWrite.Store(nil)
		return
	}
	s.onWrite.Store(&fn)
}

func (s *Server) remoteWrite(handle uint16, value []byte) {
	if fn := s.onWrite.Load(); fn != nil {
		(*fn)(handle, value)
	}
}

// Subscribers returns the number of centrals subscribed to handle.
func (s *Server) Subscribers(handle uint16) int {
	sl, ok := s.slots.Get(handle)
	if !ok {
		return 0
	}
	return sl.subscriberCount()
}

// Advertise blocks while advertising. With a beacon the device advertises iBeacon data,
// which replaces the name and service list: go-ble drives a single advertising set.
func (s *Server) Advertise(ctx context.Context, adv peripheral.Advertisement) error {
	if s.closed.Load() {
		return ErrServerClosed
	}

	if b := adv.Beacon; b != nil {
		if adv.LocalName != "" || len(adv.Services) > 0 {
			s.logger.Debug("iBeacon advertising replaces local name and services")
		}
		return NormalizeError(s.dev.AdvertiseIBeacon(ctx, toBLE128(b.UUID), b.Major, b.Minor, b.MeasuredPower))
	}

	uuids := make([]ble.UUID, 0, len(adv.Services))
	for _, u := range adv.Services {
		uuids = append(uuids, toBLE(u))
	}
	if err := checkAdvertisingData(adv.LocalName, uuids); err != nil {
		return err
	}
	return NormalizeError(s.dev.AdvertiseNameAndServices(ctx, adv.LocalName, uuids...))
}

// checkAdvertisingData verifies that flags and service UUIDs fit the advertising PDU and the
// local name fits the scan response, which is how go-ble lays them out. go-ble writes every
// service UUID as its own AD structure, each with a length and type header.
func checkAdvertisingData(name string, uuids []ble.UUID) error {
	size := adFlagsLen
	for _, u := range uuids {
		size += adHeaderLen + len(u)
	}
	if size > MaxAdvertisingData {
		return fmt.Errorf("%w: %d bytes of service UUIDs", ErrAdvertisementTooLong, size)
	}
	if len(name) > MaxAdvertisingData-adHeaderLen {
		return fmt.Errorf("%w: local name is %d bytes", ErrAdvertisementTooLong, len(name))
	}
	return nil
}

// Close stops the device. Close is idempotent.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return NormalizeError(s.dev.Stop())
}
