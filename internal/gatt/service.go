package gatt

import (
	"sync"

	"github.com/google/uuid"
)

// Service groups characteristics under one identity.
// Characteristics are registered explicitly and enumerated in registration order.
type Service struct {
	uuid    uuid.UUID
	primary bool

	mu              sync.RWMutex
	characteristics []Attribute
}

// NewService creates a primary service with the given characteristics, in order.
func NewService(id uuid.UUID, chars ...Attribute) *Service {
	s := &Service{uuid: id, primary: true}
	s.Register(chars...)
	return s
}

// Register appends characteristics after the ones already registered.
// The same identity may be registered more than once; an attribute server resolves the
// identity to the handle of the last one.
func (s *Service) Register(chars ...Attribute) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chars {
		if c != nil {
			s.characteristics = append(s.characteristics, c)
		}
	}
	return s
}

func (s *Service) UUID() uuid.UUID { return s.uuid }

// Primary reports whether the service is a primary service.
func (s *Service) Primary() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primary
}

// SetPrimary marks the service as primary or secondary.
func (s *Service) SetPrimary(primary bool) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary = primary
	return s
}

// Characteristics returns the registered characteristics in registration order.
func (s *Service) Characteristics() []Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Attribute, len(s.characteristics))
	copy(out, s.characteristics)
	return out
}
