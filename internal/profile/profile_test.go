package profile_test

import (
	"testing"

	"github.com/srg/gattd/internal/gatt"
	"github.com/srg/gattd/internal/profile"
	"github.com/srg/gattd/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	p, err := profile.Parse([]byte(`
name: minimal
services:
  - uuid: "180f"
    characteristics:
      - uuid: "2a19"
beacon:
  uuid: e2c56db5-dffb-48d2-b060-d0f5a71096e0
`))
	require.NoError(t, err)

	c := p.Services[0].Characteristics[0]
	assert.Equal(t, "bytes", c.Type, "type MUST default to bytes")
	assert.Equal(t, "read", c.Properties, "properties MUST default to read")
	assert.Equal(t, -59, p.Beacon.Power, "beacon power MUST default to -59 dBm")
}

func TestBuild_BatteryFixture(t *testing.T) {
	// GOAL: Verify the shipped example profile builds typed characteristics
	//
	// TEST SCENARIO: load profiles/battery.yaml → two services → values encoded by their codecs

	data, err := testutils.LoadFixture("profiles/battery.yaml")
	require.NoError(t, err)
	p, err := profile.Parse(data)
	require.NoError(t, err)

	services, err := p.Build()
	require.NoError(t, err)
	require.Len(t, services, 2)

	battery := services[0]
	assert.Equal(t, gatt.UUID16(0x180F), battery.UUID())
	assert.True(t, battery.Primary())
	require.Len(t, battery.Characteristics(), 1)

	level := battery.Characteristics()[0]
	assert.Equal(t, []byte{100}, level.Data())
	assert.Equal(t, gatt.NewProperties(gatt.PropRead, gatt.PropNotify), level.Properties())
	require.Len(t, level.Descriptors(), 2, "notify CCCD and user description MUST be present")
	assert.True(t, level.Descriptors()[0].IsClientConfig())
	assert.Equal(t, []byte("Battery Level"), level.Descriptors()[1].Value)

	uart := services[1].Characteristics()
	require.Len(t, uart, 2)
	assert.Equal(t, []byte("hello"), uart[0].Data())
	assert.Equal(t, gatt.NewPermissions(gatt.PermRead, gatt.PermWrite), uart[0].Permissions())
	assert.Equal(t, []byte{1, 2, 3, 4}, uart[1].Data())

	beacon, err := p.BuildBeacon()
	require.NoError(t, err)
	assert.Nil(t, beacon)
}

func TestBuild_Types(t *testing.T) {
	tests := []struct {
		typ   string
		value string
		want  []byte
	}{
		{typ: "uint8", value: "255", want: []byte{0xff}},
		{typ: "uint16", value: "513", want: []byte{0x01, 0x02}},
		{typ: "uint32", value: "1", want: []byte{1, 0, 0, 0}},
		{typ: "int8", value: "-1", want: []byte{0xff}},
		{typ: "int16", value: "2150", want: []byte{0x66, 0x08}},
		{typ: "int32", value: "-2", want: []byte{0xfe, 0xff, 0xff, 0xff}},
		{typ: "float32", value: "1", want: []byte{0x00, 0x00, 0x80, 0x3f}},
		{typ: "bool", value: "true", want: []byte{1}},
		{typ: "string", value: "hi", want: []byte("hi")},
		{typ: "bytes", value: `"0a 0b"`, want: []byte{0x0a, 0x0b}},
		{typ: "bytes", value: "[1, 2]", want: []byte{1, 2}},
		{typ: "uint16", value: "", want: []byte{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"="+tt.value, func(t *testing.T) {
			doc := "services:\n  - uuid: \"1234\"\n    characteristics:\n      - uuid: \"5678\"\n        type: " + tt.typ + "\n"
			if tt.value != "" {
				doc += "        value: " + tt.value + "\n"
			}
			p, err := profile.Parse([]byte(doc))
			require.NoError(t, err)

			services, err := p.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, services[0].Characteristics()[0].Data())
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "bad service uuid",
			doc:     "services:\n  - uuid: nope\n",
			wantErr: "services[0].uuid",
		},
		{
			name:    "bad characteristic uuid",
			doc:     "services:\n  - uuid: \"180f\"\n    characteristics:\n      - uuid: xyz\n",
			wantErr: "services[0].characteristics[0].uuid",
		},
		{
			name:    "unknown type",
			doc:     "services:\n  - uuid: \"180f\"\n    characteristics:\n      - uuid: \"2a19\"\n        type: decimal\n",
			wantErr: "characteristics[0].type",
		},
		{
			name:    "out of range",
			doc:     "services:\n  - uuid: \"180f\"\n    characteristics:\n      - uuid: \"2a19\"\n        type: uint8\n        value: 300\n",
			wantErr: "characteristics[0].value: 300 is out of range",
		},
		{
			name:    "wrong value kind",
			doc:     "services:\n  - uuid: \"180f\"\n    characteristics:\n      - uuid: \"2a19\"\n        type: bool\n        value: 1\n",
			wantErr: "characteristics[0].value",
		},
		{
			name:    "unknown property",
			doc:     "services:\n  - uuid: \"180f\"\n    characteristics:\n      - uuid: \"2a19\"\n        properties: read,shout\n",
			wantErr: "characteristics[0].properties",
		},
		{
			name:    "unknown permission",
			doc:     "services:\n  - uuid: \"180f\"\n    characteristics:\n      - uuid: \"2a19\"\n        permissions: admin\n",
			wantErr: "characteristics[0].permissions",
		},
		{
			name:    "bad hex",
			doc:     "services:\n  - uuid: \"180f\"\n    characteristics:\n      - uuid: \"2a19\"\n        value: zz\n",
			wantErr: "invalid hex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := profile.Parse([]byte(tt.doc))
			require.NoError(t, err)

			_, err = p.Build()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBuild_ExplicitPermissionsAndSecondary(t *testing.T) {
	p, err := profile.Parse([]byte(`
services:
  - uuid: "180a"
    primary: false
    characteristics:
      - uuid: "2a29"
        type: string
        properties: read
        permissions: read-encrypted
        value: acme
`))
	require.NoError(t, err)

	services, err := p.Build()
	require.NoError(t, err)
	assert.False(t, services[0].Primary())
	assert.Equal(t, gatt.NewPermissions(gatt.PermReadEncrypted), services[0].Characteristics()[0].Permissions())
}

func TestBuildBeacon(t *testing.T) {
	data, err := testutils.LoadFixture("profiles/beacon.yaml")
	require.NoError(t, err)
	p, err := profile.Parse(data)
	require.NoError(t, err)

	beacon, err := p.BuildBeacon()
	require.NoError(t, err)
	require.NotNil(t, beacon)
	assert.Equal(t, gatt.MustParseUUID("e2c56db5-dffb-48d2-b060-d0f5a71096e0"), beacon.UUID)
	assert.Equal(t, uint16(1), beacon.Major)
	assert.Equal(t, uint16(2), beacon.Minor)
	assert.Equal(t, int8(-59), beacon.MeasuredPower)

	p.Beacon.Power = 200
	_, err = p.BuildBeacon()
	assert.ErrorContains(t, err, "beacon.power")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := profile.Parse([]byte("services: {"))
	assert.ErrorContains(t, err, "failed to parse profile")
}
