package peripheral

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/gattd/internal/gatt"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger. Defaults to logrus.New().
func WithLogger(logger *logrus.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithAdvertiser sets the advertiser used by Advertise.
// By default the attribute server is used when it implements Advertiser.
func WithAdvertiser(adv Advertiser) Option {
	return func(b *Binder) {
		b.advertiser = adv
	}
}

// WithAdvertiseTimeout bounds each Advertise call. Zero means until the context is done.
func WithAdvertiseTimeout(d time.Duration) Option {
	return func(b *Binder) {
		b.advertiseTimeout = d
	}
}

// binding is one Handle Index entry. The index refers to the characteristic; the service
// that declared it owns it.
type binding struct {
	handle  uint16
	service *gatt.Service
	attr    gatt.Attribute
}

// Binding is a read-only view of one Handle Index entry.
type Binding struct {
	Handle    uint16
	Service   uuid.UUID
	Attribute gatt.Attribute
}

// ----------------------------
// Binder
// ----------------------------

// Binder registers gatt services with an AttributeServer and relays values both ways.
//
// The Handle Index is append-only: registering another service never evicts handles of a
// previous one. Index access is guarded by a single mutex, so remote writes may arrive on
// transport goroutines while services are being added.
type Binder struct {
	server           AttributeServer
	advertiser       Advertiser
	advertiseTimeout time.Duration
	logger           *logrus.Logger

	regMu    sync.Mutex // serializes Add: submit, handle lookup and commit
	mu       sync.Mutex // guards index and services
	index    *orderedmap.OrderedMap[uint16, *binding]
	services []*gatt.Service
	closed   atomic.Bool
}

// New creates a Binder for server and subscribes it to the server's remote writes.
func New(server AttributeServer, opts ...Option) *Binder {
	b := &Binder{
		server: server,
		logger: logrus.New(),
		index:  orderedmap.New[uint16, *binding](),
	}
	if adv, ok := server.(Advertiser); ok {
		b.advertiser = adv
	}
	for _, opt := range opts {
		opt(b)
	}

	server.HandleRemoteWrite(b.DidWrite)
	return b
}

// Add registers svc with the attribute server.
//
// The service is submitted as one unit. If the server rejects it, a *RegistrationError is
// returned and neither the Handle Index nor the bound services change. On success each
// characteristic is bound to the last handle the server reports for its identity, so a
// later duplicate takes the handle over from an earlier one.
func (b *Binder) Add(svc *gatt.Service) error {
	if svc == nil {
		return &RegistrationError{Err: ErrNilService}
	}
	if b.closed.Load() {
		return &RegistrationError{Service: svc.UUID(), Err: ErrClosed}
	}

	b.regMu.Lock()
	defer b.regMu.Unlock()

	chars := svc.Characteristics()
	if err := b.server.AddService(specFor(svc, chars)); err != nil {
		b.logger.WithFields(logrus.Fields{
			"service": gatt.FormatUUID(svc.UUID()),
			"error":   err,
		}).Error("Attribute server rejected service")
		return &RegistrationError{Service: svc.UUID(), Err: err}
	}

	pending := make([]*binding, 0, len(chars))
	for _, c := range chars {
		handles := b.server.HandlesFor(c.UUID())
		if len(handles) == 0 {
			b.logger.WithFields(logrus.Fields{
				"service":        gatt.FormatUUID(svc.UUID()),
				"characteristic": gatt.FormatUUID(c.UUID()),
			}).Warn("No handle assigned to characteristic, skipping")
			continue
		}
		pending = append(pending, &binding{handle: handles[len(handles)-1], service: svc, attr: c})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, entry := range pending {
		entry.attr.SetOnChange(b.pushFunc(entry))
		b.index.Set(entry.handle, entry)

		b.logger.WithFields(logrus.Fields{
			"characteristic": gatt.FormatUUID(entry.attr.UUID()),
			"handle":         entry.handle,
			"properties":     entry.attr.Properties().String(),
			"permissions":    entry.attr.Permissions().String(),
			"descriptors":    len(entry.attr.Descriptors()),
		}).Info("Characteristic bound")
	}
	b.services = append(b.services, svc)

	b.logger.WithFields(logrus.Fields{
		"service":         gatt.FormatUUID(svc.UUID()),
		"characteristics": len(pending),
	}).Info("Service registered")
	return nil
}

// pushFunc builds the local write hook for entry. The hook only references the binder
// through entry's handle and is a no-op once the binder is closed. Characteristics sharing
// an identity all push to the handle they were bound to, the last one the server reported.
func (b *Binder) pushFunc(entry *binding) func([]byte) {
	return func(data []byte) {
		if b.closed.Load() {
			return
		}

		if err := b.server.SetAttributeValue(entry.handle, data); err != nil {
			b.logger.WithFields(logrus.Fields{
				"handle": entry.handle,
				"error":  err,
			}).Warn("Failed to push characteristic value")
			return
		}
		b.logger.WithFields(logrus.Fields{
			"characteristic": gatt.FormatUUID(entry.attr.UUID()),
			"handle":         entry.handle,
			"value":          fmt.Sprintf("% x", data),
		}).Debug("Characteristic changed locally")
	}
}

// DidWrite applies a value a central wrote to handle.
//
// Unknown handles are logged and ignored. Values the characteristic cannot decode are
// logged and dropped, keeping the previous value, which is stored back on the server
// without notifying subscribers.
// The local write hook is not fired.
func (b *Binder) DidWrite(handle uint16, value []byte) {
	b.mu.Lock()
	entry, ok := b.index.Get(handle)
	b.mu.Unlock()

	if !ok {
		b.logger.WithFields(logrus.Fields{
			"handle": handle,
			"size":   len(value),
		}).Warn("Write to unknown handle ignored")
		return
	}

	if err := b.applyRemote(entry, value); err != nil {
		b.logger.WithFields(logrus.Fields{
			"characteristic": gatt.FormatUUID(entry.attr.UUID()),
			"handle":         handle,
			"value":          fmt.Sprintf("% x", value),
			"error":          err,
		}).Warn("Rejected remote write, keeping previous value")

		// The server already holds the rejected bytes; restore the retained value.
		if !b.closed.Load() {
			if err := b.server.StoreAttributeValue(handle, entry.attr.Data()); err != nil {
				b.logger.WithFields(logrus.Fields{
					"handle": handle,
					"error":  err,
				}).Warn("Failed to restore characteristic value")
			}
		}
		return
	}

	b.logger.WithFields(logrus.Fields{
		"characteristic": gatt.FormatUUID(entry.attr.UUID()),
		"handle":         handle,
		"value":          fmt.Sprintf("% x", value),
	}).Debug("Remote write applied")
}

// applyRemote shields the transport from panicking application codecs.
func (b *Binder) applyRemote(entry *binding, value []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: codec panic: %v", gatt.ErrDecode, r)
		}
	}()
	return entry.attr.SetData(value)
}

// Advertise broadcasts name and the identities of services, plus an optional iBeacon,
// until ctx is done or the configured timeout elapses. The end of the advertising window
// is not an error. Transport failures are returned as *AdvertisingError and not retried.
func (b *Binder) Advertise(ctx context.Context, name string, services []*gatt.Service, beacon *Beacon) error {
	if b.advertiser == nil {
		return &AdvertisingError{LocalName: name, Err: ErrNoAdvertiser}
	}

	adv := Advertisement{LocalName: name, Beacon: beacon}
	for _, svc := range services {
		if svc != nil {
			adv.Services = append(adv.Services, svc.UUID())
		}
	}

	if b.advertiseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.advertiseTimeout)
		defer cancel()
	}

	b.logger.WithFields(logrus.Fields{
		"name":     name,
		"services": len(adv.Services),
		"beacon":   beacon != nil,
	}).Info("BLE advertising started")

	err := b.advertiser.Advertise(ctx, adv)
	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		b.logger.WithField("name", name).Info("BLE advertising stopped")
		return nil
	}
	return &AdvertisingError{LocalName: name, Err: err}
}

// Services returns the bound services in registration order.
func (b *Binder) Services() []*gatt.Service {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*gatt.Service, len(b.services))
	copy(out, b.services)
	return out
}

// Lookup returns the characteristic bound to handle.
func (b *Binder) Lookup(handle uint16) (gatt.Attribute, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.index.Get(handle)
	if !ok {
		return nil, false
	}
	return entry.attr, true
}

// Handles returns the bound handles in the order they were first bound.
func (b *Binder) Handles() []uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint16, 0, b.index.Len())
	for pair := b.index.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Table returns a snapshot of the Handle Index in binding order.
func (b *Binder) Table() []Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Binding, 0, b.index.Len())
	for pair := b.index.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Binding{
			Handle:    pair.Key,
			Service:   pair.Value.service.UUID(),
			Attribute: pair.Value.attr,
		})
	}
	return out
}

// Close detaches the local write hooks; later SetValue calls no longer reach the server.
// Close is idempotent.
func (b *Binder) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		b.logger.Debug("Binder closed")
	}
	return nil
}
