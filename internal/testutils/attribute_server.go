package testutils

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/srg/gattd/internal/peripheral"
)

// Push records one SetAttributeValue call.
type Push struct {
	Handle uint16
	Value  []byte
}

// AttributeServer is an in-memory peripheral.AttributeServer and peripheral.Advertiser.
//
// Handles are assigned the way a GATT server lays out its table: one handle for the
// service declaration, then per characteristic a declaration handle, a value handle and
// one handle per descriptor.
type AttributeServer struct {
	// AddServiceErr, when set, makes AddService fail without recording anything.
	AddServiceErr error
	// SetValueErr, when set, makes SetAttributeValue fail.
	SetValueErr error
	// AdvertiseErr, when set, is returned by Advertise immediately.
	AdvertiseErr error

	mu         sync.Mutex
	next       uint16
	handles    map[uuid.UUID][]uint16
	values     map[uint16][]byte
	services   []peripheral.ServiceSpec
	pushes     []Push
	adverts    []peripheral.Advertisement
	writeFunc  peripheral.WriteFunc
	addedCalls int
}

// NewAttributeServer creates an empty server whose first handle is 1.
func NewAttributeServer() *AttributeServer {
	return &AttributeServer{
		next:    1,
		handles: make(map[uuid.UUID][]uint16),
		values:  make(map[uint16][]byte),
	}
}

// SkipTo makes the next service declaration use handle h.
func (s *AttributeServer) SkipTo(h uint16) *AttributeServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = h
	return s
}

func (s *AttributeServer) AddService(spec peripheral.ServiceSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addedCalls++
	if s.AddServiceErr != nil {
		return s.AddServiceErr
	}

	h := s.next + 1 // service declaration
	for _, c := range spec.Characteristics {
		value := h + 1
		s.handles[c.UUID] = append(s.handles[c.UUID], value)
		s.values[value] = append([]byte{}, c.Value...)
		h = value + 1 + uint16(len(c.Descriptors))
	}
	s.next = h
	s.services = append(s.services, spec)
	return nil
}

func (s *AttributeServer) HandlesFor(id uuid.UUID) []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint16(nil), s.handles[id]...)
}

func (s *AttributeServer) SetAttributeValue(handle uint16, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetValueErr != nil {
		return s.SetValueErr
	}
	s.values[handle] = append([]byte{}, value...)
	s.pushes = append(s.pushes, Push{Handle: handle, Value: append([]byte{}, value...)})
	return nil
}

// StoreAttributeValue replaces the value for handle without recording a push.
func (s *AttributeServer) StoreAttributeValue(handle uint16, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetValueErr != nil {
		return s.SetValueErr
	}
	s.values[handle] = append([]byte{}, value...)
	return nil
}

func (s *AttributeServer) AttributeValue(handle uint16) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[handle]
	if !ok {
		return nil, false
	}
	return append([]byte{}, v...), true
}

func (s *AttributeServer) HandleRemoteWrite(fn peripheral.WriteFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeFunc = fn
}

// Advertise records adv and blocks until ctx is done, unless AdvertiseErr is set.
func (s *AttributeServer) Advertise(ctx context.Context, adv peripheral.Advertisement) error {
	s.mu.Lock()
	s.adverts = append(s.adverts, adv)
	err := s.AdvertiseErr
	s.mu.Unlock()

	if err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// Write simulates a central writing value to handle: the server stores the bytes and then
// reports the write.
func (s *AttributeServer) Write(handle uint16, value []byte) {
	s.mu.Lock()
	s.values[handle] = append([]byte{}, value...)
	fn := s.writeFunc
	s.mu.Unlock()

	if fn != nil {
		fn(handle, value)
	}
}

// Pushes returns the SetAttributeValue calls in order.
func (s *AttributeServer) Pushes() []Push {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Push(nil), s.pushes...)
}

// ResetPushes forgets recorded pushes.
func (s *AttributeServer) ResetPushes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = nil
}

// Services returns the accepted service registrations.
func (s *AttributeServer) Services() []peripheral.ServiceSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]peripheral.ServiceSpec(nil), s.services...)
}

// AddServiceCalls counts AddService invocations, including failed ones.
func (s *AttributeServer) AddServiceCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addedCalls
}

// Advertisements returns the advertisements requested so far.
func (s *AttributeServer) Advertisements() []peripheral.Advertisement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]peripheral.Advertisement(nil), s.adverts...)
}
