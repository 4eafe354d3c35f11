package goble

import (
	"sync/atomic"

	"github.com/go-ble/ble"
	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"
)

// DefaultQueueSize is the number of pending values kept per subscribed central.
const DefaultQueueSize uint32 = 16

// subscriber delivers value updates to one central. Updates are queued in an overlapped
// ring buffer: when a slow central falls behind, the oldest pending values are dropped.
type subscriber struct {
	notifier ble.Notifier
	indicate bool
	queue    mpmc.RichOverlappedRingBuffer[[]byte]
	wake     chan struct{}
	dropped  atomic.Uint64
	sent     atomic.Uint64
}

func newSubscriber(n ble.Notifier, indicate bool, size uint32) *subscriber {
	return &subscriber{
		notifier: n,
		indicate: indicate,
		queue:    mpmc.NewOverlappedRingBuffer[[]byte](size),
		wake:     make(chan struct{}, 1),
	}
}

// push queues value without blocking.
func (s *subscriber) push(value []byte) error {
	overwrites, err := s.queue.EnqueueM(value)
	if err != nil {
		return err
	}
	s.dropped.Add(uint64(overwrites))

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// run writes queued values to the central until its subscription ends.
func (s *subscriber) run(logger *logrus.Entry) {
	ctx := s.notifier.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			s.drain(logger)
		}
	}
}

func (s *subscriber) drain(logger *logrus.Entry) {
	for !s.queue.IsEmpty() {
		value, err := s.queue.Dequeue()
		if err != nil {
			return
		}
		if limit := s.notifier.Cap(); limit > 0 && len(value) > limit {
			value = value[:limit]
		}
		if _, err := s.notifier.Write(value); err != nil {
			logger.WithError(err).Debug("Failed to deliver value update")
			continue
		}
		s.sent.Add(1)
	}
}
