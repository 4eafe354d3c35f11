package goble

import (
	"sync"
	"sync/atomic"

	"github.com/go-ble/ble"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/gattd/internal/gatt"
	"github.com/srg/gattd/internal/peripheral"
)

// slot is the server side state of one characteristic: its value and its subscribers.
// go-ble handlers capture the slot, so the attribute table never has to be searched.
type slot struct {
	server *Server
	uuid   uuid.UUID
	perms  gatt.Permissions
	props  gatt.Properties
	descs  []gatt.Descriptor
	handle atomic.Uint32

	mu    sync.RWMutex
	value []byte
	subs  map[*subscriber]struct{}
}

func newSlot(s *Server, spec peripheral.CharacteristicSpec) *slot {
	return &slot{
		server: s,
		uuid:   spec.UUID,
		perms:  spec.Permissions,
		props:  spec.Properties,
		descs:  spec.Descriptors,
		value:  append([]byte{}, spec.Value...),
		subs:   make(map[*subscriber]struct{}),
	}
}

// characteristic builds the go-ble declaration. Setting handlers also sets property bits,
// so the declared properties are assigned last.
func (sl *slot) characteristic() *ble.Characteristic {
	c := ble.NewCharacteristic(toBLE(sl.uuid))

	if sl.props.Has(gatt.PropRead) {
		c.HandleRead(ble.ReadHandlerFunc(sl.serveRead))
	}
	if sl.props.Has(gatt.PropWrite) || sl.props.Has(gatt.PropWriteWithoutResponse) {
		c.HandleWrite(ble.WriteHandlerFunc(sl.serveWrite))
	}
	if sl.props.Has(gatt.PropNotify) {
		c.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
			sl.serveSubscription(n, false)
		}))
	}
	if sl.props.Has(gatt.PropIndicate) {
		c.HandleIndicate(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
			sl.serveSubscription(n, true)
		}))
	}
	c.Property = ble.Property(sl.props)

	// go-ble synthesizes the CCCD for notify and indicate.
	for _, d := range sl.descs {
		if d.IsClientConfig() {
			continue
		}
		bd := ble.NewDescriptor(toBLE(d.UUID))
		bd.SetValue(append([]byte{}, d.Value...))
		c.AddDescriptor(bd)
	}
	return c
}

func (sl *slot) readable() bool {
	return sl.perms.Has(gatt.PermRead) || sl.perms.Has(gatt.PermReadEncrypted) || sl.perms.Has(gatt.PermReadAuthenticated)
}

func (sl *slot) writable() bool {
	return sl.perms.Has(gatt.PermWrite) || sl.perms.Has(gatt.PermWriteEncrypted) || sl.perms.Has(gatt.PermWriteAuthenticated)
}

func (sl *slot) log() *logrus.Entry {
	return sl.server.logger.WithFields(logrus.Fields{
		"characteristic": gatt.FormatUUID(sl.uuid),
		"handle":         sl.handle.Load(),
	})
}

func (sl *slot) serveRead(req ble.Request, rsp ble.ResponseWriter) {
	if !sl.readable() {
		rsp.SetStatus(ble.ErrReadNotPerm)
		return
	}

	value := sl.load()
	offset := req.Offset()
	if offset > len(value) {
		rsp.SetStatus(ble.ErrInvalidOffset)
		return
	}
	if _, err := rsp.Write(value[offset:]); err != nil {
		sl.log().WithError(err).Debug("Read response truncated")
	}
}

func (sl *slot) serveWrite(req ble.Request, rsp ble.ResponseWriter) {
	if !sl.writable() {
		rsp.SetStatus(ble.ErrWriteNotPerm)
		return
	}

	value := append([]byte{}, req.Data()...)
	sl.store(value)
	sl.server.remoteWrite(uint16(sl.handle.Load()), value)
}

// serveSubscription runs for the lifetime of one central's subscription.
func (sl *slot) serveSubscription(n ble.Notifier, indicate bool) {
	sub := newSubscriber(n, indicate, sl.server.queueSize)

	sl.mu.Lock()
	sl.subs[sub] = struct{}{}
	sl.mu.Unlock()

	logger := sl.log().WithField("indicate", indicate)
	logger.Info("Central subscribed")

	defer func() {
		sl.mu.Lock()
		delete(sl.subs, sub)
		sl.mu.Unlock()
		logger.WithFields(logrus.Fields{
			"sent":    sub.sent.Load(),
			"dropped": sub.dropped.Load(),
		}).Info("Central unsubscribed")
	}()

	sub.run(logger)
}

func (sl *slot) load() []byte {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return append([]byte{}, sl.value...)
}

func (sl *slot) store(value []byte) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.value = append([]byte{}, value...)
}

func (sl *slot) broadcast(value []byte) {
	sl.mu.RLock()
	subs := make([]*subscriber, 0, len(sl.subs))
	for sub := range sl.subs {
		subs = append(subs, sub)
	}
	sl.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.push(append([]byte{}, value...)); err != nil {
			sl.log().WithError(err).Warn("Failed to queue value update")
		}
	}
}

func (sl *slot) subscriberCount() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return len(sl.subs)
}
