package peripheral_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srg/gattd/internal/gatt"
	"github.com/srg/gattd/internal/peripheral"
	"github.com/srg/gattd/internal/testutils"
	"github.com/stretchr/testify/suite"
)

var (
	batteryService = gatt.UUID16(0x180F)
	batteryLevel   = gatt.UUID16(0x2A19)
	sensorService  = gatt.MustParseUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	sensorValue    = gatt.MustParseUUID("6e400002-b5a3-f393-e0a9-e50e24dcca9e")
)

type BinderTestSuite struct {
	suite.Suite

	helper *testutils.TestHelper
	server *testutils.AttributeServer
	binder *peripheral.Binder
}

func (s *BinderTestSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.server = testutils.NewAttributeServer()
	s.binder = peripheral.New(s.server, peripheral.WithLogger(s.helper.Logger))
}

func (s *BinderTestSuite) TearDownTest() {
	s.Require().NoError(s.binder.Close())
}

func (s *BinderTestSuite) level(initial uint8) *gatt.Characteristic[uint8] {
	return gatt.NewCharacteristic(initial, batteryLevel, gatt.NewProperties(gatt.PropRead, gatt.PropWrite, gatt.PropNotify), gatt.Uint8Codec{})
}

func (s *BinderTestSuite) TestAddBindsValueHandle() {
	// GOAL: Verify a registered characteristic is reachable through the handle the server assigned
	//
	// TEST SCENARIO: server assigns handle 42 → remote write of 7 to 42 → typed value is 7

	s.server.SkipTo(40)
	c := s.level(0)
	s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))

	s.Assert().Equal([]uint16{42}, s.binder.Handles(), "value handle MUST be bound")

	s.server.Write(42, []byte{7})

	s.Assert().Equal(uint8(7), c.Value(), "remote write MUST update the typed value")
	s.Assert().Empty(s.server.Pushes(), "remote write MUST not be echoed to the server")
}

func (s *BinderTestSuite) TestAddSubmitsSnapshot() {
	c := s.level(55)
	svc := gatt.NewService(batteryService, c)
	s.Require().NoError(s.binder.Add(svc))

	specs := s.server.Services()
	s.Require().Len(specs, 1)
	s.Assert().Equal(batteryService, specs[0].UUID)
	s.Assert().True(specs[0].Primary)
	s.Require().Len(specs[0].Characteristics, 1)

	spec := specs[0].Characteristics[0]
	s.Assert().Equal(batteryLevel, spec.UUID)
	s.Assert().Equal([]byte{55}, spec.Value)
	s.Assert().Equal(gatt.NewPermissions(gatt.PermRead, gatt.PermWrite), spec.Permissions)
	s.Assert().Len(spec.Descriptors, 1, "notify characteristic MUST carry its CCCD")
	s.Assert().Equal([]*gatt.Service{svc}, s.binder.Services())
}

func (s *BinderTestSuite) TestRegistrationFailure() {
	// GOAL: Verify a rejected service leaves the binder untouched
	//
	// TEST SCENARIO: server rejects AddService → RegistrationError returned → no handles, no services, no hook

	cause := errors.New("attribute table full")
	s.server.AddServiceErr = cause
	c := s.level(1)

	err := s.binder.Add(gatt.NewService(batteryService, c))

	s.Require().Error(err)
	s.Assert().ErrorIs(err, peripheral.ErrRegistration)
	s.Assert().ErrorIs(err, cause, "cause MUST be preserved")

	var regErr *peripheral.RegistrationError
	s.Require().ErrorAs(err, &regErr)
	s.Assert().Equal(batteryService, regErr.Service)

	s.Assert().Empty(s.binder.Handles())
	s.Assert().Empty(s.binder.Services())

	c.SetValue(9)
	s.Assert().Empty(s.server.Pushes(), "unbound characteristic MUST not push")
}

func (s *BinderTestSuite) TestAddNilService() {
	err := s.binder.Add(nil)
	s.Assert().ErrorIs(err, peripheral.ErrNilService)
	s.Assert().ErrorIs(err, peripheral.ErrRegistration)
	s.Assert().Zero(s.server.AddServiceCalls())
}

func (s *BinderTestSuite) TestLocalWritePushes() {
	s.server.SkipTo(40)
	c := s.level(0)
	s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))

	c.SetValue(80)

	s.Assert().Equal([]testutils.Push{{Handle: 42, Value: []byte{80}}}, s.server.Pushes())
	v, ok := s.server.AttributeValue(42)
	s.Assert().True(ok)
	s.Assert().Equal([]byte{80}, v)
}

func (s *BinderTestSuite) TestLocalWritePushFailureIsLogged() {
	c := s.level(0)
	s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))
	s.server.SetValueErr = errors.New("disconnected")

	s.Assert().NotPanics(func() { c.SetValue(3) })
	s.Assert().Equal(uint8(3), c.Value(), "local value MUST be kept even if the push fails")
	s.Assert().Contains(s.helper.Logs(), "Failed to push characteristic value")
}

func (s *BinderTestSuite) TestRemoteWrite() {
	s.Run("does not fire the local hook", func() {
		c := s.level(0)
		s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))
		handle := s.binder.Handles()[0]

		s.server.ResetPushes()
		s.server.Write(handle, []byte{12})

		s.Assert().Equal(uint8(12), c.Value())
		s.Assert().Empty(s.server.Pushes(), "remote write MUST not loop back")
	})

	s.Run("malformed value keeps previous state", func() {
		// GOAL: Verify an undecodable remote write is absorbed
		//
		// TEST SCENARIO: 2-byte write to a uint8 characteristic → value unchanged → server restored silently → warning logged

		s.SetupTest()
		c := s.level(33)
		s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))
		handle := s.binder.Handles()[0]

		s.server.ResetPushes()
		s.server.Write(handle, []byte{1, 2})

		s.Assert().Equal(uint8(33), c.Value(), "typed value MUST be unchanged")
		s.Assert().Equal([]byte{33}, c.Data(), "raw value MUST be unchanged")
		v, _ := s.server.AttributeValue(handle)
		s.Assert().Equal([]byte{33}, v, "server MUST serve the retained value again")
		s.Assert().Empty(s.server.Pushes(), "restoring the retained value MUST not notify subscribers")
		s.Assert().Contains(s.helper.Logs(), "Rejected remote write")
	})

	s.Run("unknown handle is ignored", func() {
		s.SetupTest()
		c := s.level(5)
		s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))

		s.Assert().NotPanics(func() { s.binder.DidWrite(999, []byte{1}) })
		s.Assert().Equal(uint8(5), c.Value())
		s.Assert().Contains(s.helper.Logs(), "Write to unknown handle ignored")
	})

	s.Run("panicking codec is contained", func() {
		s.SetupTest()
		codec := gatt.CodecFunc[int]{
			EncodeFunc: func(v int) []byte { return []byte{byte(v)} },
			DecodeFunc: func(b []byte) (int, error) { panic("boom") },
		}
		c := gatt.NewCharacteristic(4, sensorValue, gatt.NewProperties(gatt.PropWrite), codec)
		s.Require().NoError(s.binder.Add(gatt.NewService(sensorService, c)))

		s.Assert().NotPanics(func() { s.binder.DidWrite(s.binder.Handles()[0], []byte{1}) })
		s.Assert().Equal([]byte{4}, c.Data())
	})
}

func (s *BinderTestSuite) TestDuplicateIdentityLastHandleWins() {
	// GOAL: Verify the documented lookup quirk for duplicate identities
	//
	// TEST SCENARIO: two characteristics with one UUID → both bound to the later handle → both push to it

	first := s.level(1)
	second := s.level(2)
	s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, first, second)))

	handles := s.server.HandlesFor(batteryLevel)
	s.Require().Len(handles, 2)
	last := handles[1]

	s.Assert().Equal([]uint16{last}, s.binder.Handles())
	attr, ok := s.binder.Lookup(last)
	s.Require().True(ok)
	s.Assert().Same(second, attr)

	s.server.ResetPushes()
	first.SetValue(10)
	second.SetValue(20)

	s.Assert().Equal([]testutils.Push{
		{Handle: last, Value: []byte{10}},
		{Handle: last, Value: []byte{20}},
	}, s.server.Pushes(), "every characteristic sharing the identity MUST push to the last handle")
}

func (s *BinderTestSuite) TestHandleIndexIsAppendOnly() {
	level := s.level(1)
	sensor := gatt.NewCharacteristic[uint16](0, sensorValue, gatt.NewProperties(gatt.PropRead, gatt.PropWrite), gatt.Uint16Codec{})

	s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, level)))
	before := s.binder.Handles()
	s.Require().NoError(s.binder.Add(gatt.NewService(sensorService, sensor)))

	after := s.binder.Handles()
	s.Require().Len(after, 2)
	s.Assert().Equal(before[0], after[0], "earlier handles MUST survive later registrations")

	table := s.binder.Table()
	s.Require().Len(table, 2)
	s.Assert().Equal(batteryService, table[0].Service)
	s.Assert().Equal(sensorService, table[1].Service)
	s.Assert().Same(sensor, table[1].Attribute)

	s.server.Write(after[1], []byte{0x34, 0x12})
	s.Assert().Equal(uint16(0x1234), sensor.Value())
}

func (s *BinderTestSuite) TestClose() {
	c := s.level(0)
	s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))
	s.server.ResetPushes()

	s.Require().NoError(s.binder.Close())
	s.Require().NoError(s.binder.Close(), "Close MUST be idempotent")

	c.SetValue(50)
	s.Assert().Empty(s.server.Pushes(), "hook MUST be a no-op after Close")
	s.Assert().Equal(uint8(50), c.Value(), "local value MUST still change")

	err := s.binder.Add(gatt.NewService(sensorService))
	s.Assert().ErrorIs(err, peripheral.ErrClosed)
}

func (s *BinderTestSuite) TestConcurrentRemoteAndLocalWrites() {
	c := s.level(0)
	s.Require().NoError(s.binder.Add(gatt.NewService(batteryService, c)))
	handle := s.binder.Handles()[0]

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v uint8) {
			defer wg.Done()
			s.server.Write(handle, []byte{v})
		}(uint8(i))
		go func(v uint8) {
			defer wg.Done()
			c.SetValue(v)
		}(uint8(i))
	}
	wg.Wait()

	s.Assert().Less(c.Value(), uint8(50))
}

func (s *BinderTestSuite) TestAdvertise() {
	s.Run("window end is not an error", func() {
		svc := gatt.NewService(batteryService, s.level(0))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := s.binder.Advertise(ctx, "gattd", []*gatt.Service{svc}, nil)

		s.Assert().NoError(err)
		adverts := s.server.Advertisements()
		s.Require().Len(adverts, 1)
		s.Assert().Equal("gattd", adverts[0].LocalName)
		s.Assert().Equal([]uuid.UUID{batteryService}, adverts[0].Services)
		s.Assert().Nil(adverts[0].Beacon)
	})

	s.Run("configured timeout bounds the window", func() {
		server := testutils.NewAttributeServer()
		binder := peripheral.New(server,
			peripheral.WithLogger(s.helper.Logger),
			peripheral.WithAdvertiseTimeout(10*time.Millisecond))

		done := make(chan error, 1)
		go func() { done <- binder.Advertise(context.Background(), "gattd", nil, nil) }()

		select {
		case err := <-done:
			s.Assert().NoError(err)
		case <-time.After(2 * time.Second):
			s.Fail("advertising MUST stop after the configured timeout")
		}
	})

	s.Run("beacon is forwarded", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		beacon := &peripheral.Beacon{UUID: sensorService, Major: 1, Minor: 2, MeasuredPower: -59}

		server := testutils.NewAttributeServer()
		binder := peripheral.New(server, peripheral.WithLogger(s.helper.Logger))
		s.Require().NoError(binder.Advertise(ctx, "beacon", nil, beacon))

		adverts := server.Advertisements()
		s.Require().Len(adverts, 1)
		s.Assert().Equal(beacon, adverts[0].Beacon)
	})

	s.Run("transport failure is returned", func() {
		cause := errors.New("bluetooth is turned off")
		server := testutils.NewAttributeServer()
		server.AdvertiseErr = cause
		binder := peripheral.New(server, peripheral.WithLogger(s.helper.Logger))

		err := binder.Advertise(context.Background(), "gattd", nil, nil)

		s.Assert().ErrorIs(err, peripheral.ErrAdvertising)
		s.Assert().ErrorIs(err, cause)
		var advErr *peripheral.AdvertisingError
		s.Require().ErrorAs(err, &advErr)
		s.Assert().Equal("gattd", advErr.LocalName)
		s.Assert().Len(server.Advertisements(), 1, "advertising MUST be attempted once")
	})

	s.Run("no advertiser", func() {
		binder := peripheral.New(serverOnly{s.server}, peripheral.WithLogger(s.helper.Logger))
		err := binder.Advertise(context.Background(), "gattd", nil, nil)
		s.Assert().ErrorIs(err, peripheral.ErrNoAdvertiser)
	})
}

// serverOnly hides the Advertiser side of the in-memory server.
type serverOnly struct {
	peripheral.AttributeServer
}

func TestBinderTestSuite(t *testing.T) {
	suite.Run(t, new(BinderTestSuite))
}
