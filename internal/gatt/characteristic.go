package gatt

import (
	"sync"

	"github.com/google/uuid"
)

// Attribute is what a service enumerates and a binder registers: the metadata of one
// characteristic plus access to its raw value.
type Attribute interface {
	UUID() uuid.UUID
	Properties() Properties
	Permissions() Permissions
	Descriptors() []Descriptor

	// Data returns a copy of the current raw value.
	Data() []byte
	// SetData applies a remote write. Malformed bytes are rejected with a *DecodeError and the
	// previous value is kept. It never invokes the change hook.
	SetData(b []byte) error
	// SetOnChange replaces the hook fired by local writes. nil restores the no-op hook.
	SetOnChange(fn func(data []byte))
}

// CharacteristicOption configures a Characteristic at construction time.
type CharacteristicOption func(*characteristicConfig)

type characteristicConfig struct {
	permissions *Permissions
	descriptors []Descriptor
	onChange    func([]byte)
}

// WithPermissions sets explicit permissions instead of inferring them from the properties.
func WithPermissions(p Permissions) CharacteristicOption {
	return func(c *characteristicConfig) {
		c.permissions = &p
	}
}

// WithDescriptors attaches extra descriptors. They follow the synthesized CCCD, if any.
func WithDescriptors(ds ...Descriptor) CharacteristicOption {
	return func(c *characteristicConfig) {
		c.descriptors = append(c.descriptors, ds...)
	}
}

// WithOnChange installs the initial change hook.
func WithOnChange(fn func(data []byte)) CharacteristicOption {
	return func(c *characteristicConfig) {
		c.onChange = fn
	}
}

// ----------------------------
// Characteristic
// ----------------------------

// Characteristic is a typed GATT characteristic declaration.
// The raw byte value is the source of truth; the typed value is a decoded view of it.
// It is safe for concurrent use.
type Characteristic[T any] struct {
	uuid        uuid.UUID
	properties  Properties
	permissions Permissions
	descriptors []Descriptor
	codec       Codec[T]

	mu       sync.RWMutex
	raw      []byte
	value    T // last successfully decoded value
	onChange func([]byte)

	// pushMu orders local writes: held from store until the hook returns.
	pushMu sync.Mutex
}

// NewCharacteristic declares a characteristic holding initial.
// Permissions are inferred from props unless WithPermissions is given. A characteristic
// with the notify property gets a client characteristic configuration descriptor, which
// centrals need in order to subscribe.
func NewCharacteristic[T any](initial T, id uuid.UUID, props Properties, codec Codec[T], opts ...CharacteristicOption) *Characteristic[T] {
	cfg := &characteristicConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	perms := InferPermissions(props)
	if cfg.permissions != nil {
		perms = *cfg.permissions
	}

	descriptors := make([]Descriptor, 0, len(cfg.descriptors)+1)
	if props.Has(PropNotify) {
		descriptors = append(descriptors, ClientCharacteristicConfiguration())
	}
	for _, d := range cfg.descriptors {
		if d.IsClientConfig() && props.Has(PropNotify) {
			continue // already synthesized
		}
		descriptors = append(descriptors, d)
	}

	c := &Characteristic[T]{
		uuid:        id,
		properties:  props,
		permissions: perms,
		descriptors: cloneDescriptors(descriptors),
		codec:       codec,
		raw:         codec.Encode(initial),
		value:       initial,
	}
	c.SetOnChange(cfg.onChange)
	return c
}

func (c *Characteristic[T]) UUID() uuid.UUID          { return c.uuid }
func (c *Characteristic[T]) Properties() Properties   { return c.properties }
func (c *Characteristic[T]) Permissions() Permissions { return c.permissions }

// Descriptors returns a copy of the descriptor list.
func (c *Characteristic[T]) Descriptors() []Descriptor {
	return cloneDescriptors(c.descriptors)
}

// Value decodes the current raw value. If decoding fails, the last good value is returned.
func (c *Characteristic[T]) Value() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.codec.Decode(c.raw)
	if err != nil {
		return c.value
	}
	return v
}

// SetValue is the local write path: it encodes v, stores it and fires the change hook
// with a copy of the new raw value. The hook runs without the value lock held, so it may
// read the characteristic. Concurrent local writes reach the hook in the order they were
// stored; the hook must not call SetValue on the same characteristic.
func (c *Characteristic[T]) SetValue(v T) {
	c.pushMu.Lock()
	defer c.pushMu.Unlock()

	c.mu.Lock()
	c.raw = c.codec.Encode(v)
	c.value = v
	data := cloneBytes(c.raw)
	hook := c.onChange
	c.mu.Unlock()

	hook(data)
}

// Data returns a copy of the raw value.
func (c *Characteristic[T]) Data() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneBytes(c.raw)
}

// SetData is the remote write path. It does not fire the change hook, so a value the
// attribute server already holds is not pushed back to it.
func (c *Characteristic[T]) SetData(b []byte) error {
	v, err := c.codec.Decode(b)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = cloneBytes(b)
	c.value = v
	return nil
}

// SetOnChange replaces the local write hook; the last caller wins.
func (c *Characteristic[T]) SetOnChange(fn func(data []byte)) {
	if fn == nil {
		fn = func([]byte) {}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}
