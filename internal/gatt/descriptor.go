package gatt

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Well-known GATT descriptor types (Core spec Vol 3, Part G, 3.3.3).
var (
	DescExtendedProperties = UUID16(0x2900)
	DescUserDescription    = UUID16(0x2901)
	DescClientConfig       = UUID16(0x2902)
	DescServerConfig       = UUID16(0x2903)
	DescPresentationFormat = UUID16(0x2904)
	DescAggregateFormat    = UUID16(0x2905)
	DescValidRange         = UUID16(0x2906)
)

var descriptorNames = map[uuid.UUID]string{
	DescExtendedProperties: "Characteristic Extended Properties",
	DescUserDescription:    "Characteristic User Description",
	DescClientConfig:       "Client Characteristic Configuration",
	DescServerConfig:       "Server Characteristic Configuration",
	DescPresentationFormat: "Characteristic Presentation Format",
	DescAggregateFormat:    "Characteristic Aggregate Format",
	DescValidRange:         "Valid Range",
}

// Descriptor is an auxiliary attribute attached to a characteristic.
type Descriptor struct {
	UUID        uuid.UUID
	Value       []byte
	Permissions Permissions
}

// KnownName returns the SIG name of well-known descriptor types, or "".
func (d Descriptor) KnownName() string {
	return descriptorNames[d.UUID]
}

// IsClientConfig reports whether d is a client characteristic configuration descriptor.
func (d Descriptor) IsClientConfig() bool {
	return d.UUID == DescClientConfig
}

// ClientCharacteristicConfiguration returns a CCCD with notifications and indications disabled.
// A central writes it to subscribe, so it is readable and writable.
func ClientCharacteristicConfiguration() Descriptor {
	return Descriptor{
		UUID:        DescClientConfig,
		Value:       []byte{0x00, 0x00},
		Permissions: NewPermissions(PermRead, PermWrite),
	}
}

// UserDescription returns a read-only user description descriptor.
func UserDescription(text string) Descriptor {
	return Descriptor{
		UUID:        DescUserDescription,
		Value:       []byte(text),
		Permissions: NewPermissions(PermRead),
	}
}

// PresentationFormat describes how a characteristic value is to be displayed.
type PresentationFormat struct {
	Format      uint8
	Exponent    int8
	Unit        uint16
	Namespace   uint8
	Description uint16
}

// Presentation format types used by the built-in codecs.
const (
	FormatBoolean = 0x01
	FormatUint8   = 0x04
	FormatUint16  = 0x06
	FormatUint32  = 0x08
	FormatUint64  = 0x0A
	FormatSint8   = 0x0C
	FormatSint16  = 0x0E
	FormatSint32  = 0x10
	FormatSint64  = 0x12
	FormatFloat32 = 0x14
	FormatFloat64 = 0x15
	FormatUTF8    = 0x19
	FormatStruct  = 0x1B
)

// Descriptor encodes f as a read-only presentation format descriptor.
func (f PresentationFormat) Descriptor() Descriptor {
	v := make([]byte, 7)
	v[0] = f.Format
	v[1] = byte(f.Exponent)
	binary.LittleEndian.PutUint16(v[2:4], f.Unit)
	v[4] = f.Namespace
	binary.LittleEndian.PutUint16(v[5:7], f.Description)
	return Descriptor{UUID: DescPresentationFormat, Value: v, Permissions: NewPermissions(PermRead)}
}

// ClientConfig is the decoded value of a CCCD.
type ClientConfig struct {
	Notifications bool
	Indications   bool
}

// ParseClientConfig decodes a CCCD value: 2 bytes, bit 0 notifications, bit 1 indications.
func ParseClientConfig(data []byte) (*ClientConfig, error) {
	if len(data) != 2 {
		return nil, lengthError("client config", 2, len(data))
	}
	value := binary.LittleEndian.Uint16(data)
	return &ClientConfig{
		Notifications: value&0x0001 != 0,
		Indications:   value&0x0002 != 0,
	}, nil
}

// ParseUserDescription decodes a user description, dropping a trailing NUL if present.
func ParseUserDescription(data []byte) (string, error) {
	str := strings.TrimRight(string(data), "\x00")
	if !utf8.ValidString(str) {
		return "", &DecodeError{Type: "user description", Len: len(data), Reason: "invalid UTF-8"}
	}
	return str, nil
}

// ParsePresentationFormat decodes a 7-byte presentation format value.
func ParsePresentationFormat(data []byte) (*PresentationFormat, error) {
	if len(data) != 7 {
		return nil, lengthError("presentation format", 7, len(data))
	}
	return &PresentationFormat{
		Format:      data[0],
		Exponent:    int8(data[1]),
		Unit:        binary.LittleEndian.Uint16(data[2:4]),
		Namespace:   data[4],
		Description: binary.LittleEndian.Uint16(data[5:7]),
	}, nil
}

// DescribeValue renders a descriptor value for humans, decoding well-known types.
func (d Descriptor) DescribeValue() string {
	switch d.UUID {
	case DescClientConfig:
		if cc, err := ParseClientConfig(d.Value); err == nil {
			return fmt.Sprintf("notify=%t indicate=%t", cc.Notifications, cc.Indications)
		}
	case DescUserDescription:
		if s, err := ParseUserDescription(d.Value); err == nil {
			return fmt.Sprintf("%q", s)
		}
	case DescPresentationFormat:
		if pf, err := ParsePresentationFormat(d.Value); err == nil {
			return fmt.Sprintf("format=0x%02x exponent=%d unit=0x%04x", pf.Format, pf.Exponent, pf.Unit)
		}
	}
	return fmt.Sprintf("% x", d.Value)
}

func cloneDescriptors(ds []Descriptor) []Descriptor {
	out := make([]Descriptor, len(ds))
	for i, d := range ds {
		out[i] = Descriptor{UUID: d.UUID, Value: cloneBytes(d.Value), Permissions: d.Permissions}
	}
	return out
}
