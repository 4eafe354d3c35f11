package gatt

import (
	"fmt"
	"strings"
)

// ----------------------------
// Characteristic properties
// ----------------------------

// Property is a single characteristic property bit.
// Do not re-order; the values match the characteristic declaration (Core spec Vol 3, Part G, 3.3.1.1).
type Property uint8

const (
	PropBroadcast            Property = 0x01
	PropRead                 Property = 0x02
	PropWriteWithoutResponse Property = 0x04
	PropWrite                Property = 0x08
	PropNotify               Property = 0x10
	PropIndicate             Property = 0x20
	PropSignedWrite          Property = 0x40
	PropExtended             Property = 0x80
)

// Properties is a set of Property bits.
type Properties uint8

// NewProperties builds a Properties set.
func NewProperties(props ...Property) Properties {
	var p Properties
	for _, prop := range props {
		p |= Properties(prop)
	}
	return p
}

// Has reports whether every given property is present.
func (p Properties) Has(props ...Property) bool {
	for _, prop := range props {
		if p&Properties(prop) == 0 {
			return false
		}
	}
	return true
}

var propertyNames = []struct {
	prop Property
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteWithoutResponse, "write-without-response"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropSignedWrite, "signed-write"},
	{PropExtended, "extended"},
}

// String renders the set as a comma separated list, e.g. "read,write,notify".
func (p Properties) String() string {
	names := make([]string, 0, len(propertyNames))
	for _, pn := range propertyNames {
		if p.Has(pn.prop) {
			names = append(names, pn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseProperties parses a comma separated property list such as "read,write,notify".
// An empty string yields the empty set.
func ParseProperties(s string) (Properties, error) {
	var p Properties
	for _, field := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(field))
		if name == "" {
			continue
		}
		if name == "writenr" || name == "write-nr" {
			name = "write-without-response"
		}
		found := false
		for _, pn := range propertyNames {
			if pn.name == name {
				p |= Properties(pn.prop)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown characteristic property %q", field)
		}
	}
	return p, nil
}

// ----------------------------
// Attribute permissions
// ----------------------------

// Permission is a single attribute permission bit.
type Permission uint8

const (
	PermRead Permission = 1 << iota
	PermWrite
	PermReadEncrypted
	PermWriteEncrypted
	PermReadAuthenticated
	PermWriteAuthenticated
	PermAuthorized
)

// Permissions is a set of Permission bits.
type Permissions uint8

// NewPermissions builds a Permissions set.
func NewPermissions(perms ...Permission) Permissions {
	var p Permissions
	for _, perm := range perms {
		p |= Permissions(perm)
	}
	return p
}

// Has reports whether every given permission is present.
func (p Permissions) Has(perms ...Permission) bool {
	for _, perm := range perms {
		if p&Permissions(perm) == 0 {
			return false
		}
	}
	return true
}

var permissionNames = []struct {
	perm Permission
	name string
}{
	{PermRead, "read"},
	{PermWrite, "write"},
	{PermReadEncrypted, "read-encrypted"},
	{PermWriteEncrypted, "write-encrypted"},
	{PermReadAuthenticated, "read-authenticated"},
	{PermWriteAuthenticated, "write-authenticated"},
	{PermAuthorized, "authorized"},
}

func (p Permissions) String() string {
	names := make([]string, 0, len(permissionNames))
	for _, pn := range permissionNames {
		if p.Has(pn.perm) {
			names = append(names, pn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParsePermissions parses a comma separated permission list such as "read,write".
func ParsePermissions(s string) (Permissions, error) {
	var p Permissions
	for _, field := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(field))
		if name == "" {
			continue
		}
		found := false
		for _, pn := range permissionNames {
			if pn.name == name {
				p |= Permissions(pn.perm)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown attribute permission %q", field)
		}
	}
	return p, nil
}

// InferPermissions maps characteristic properties to the minimal permissions they need.
// read or notify require read; write or write-without-response require write.
// notify and indicate are properties only and have no permission counterpart.
func InferPermissions(props Properties) Permissions {
	var perms Permissions
	if props.Has(PropRead) || props.Has(PropNotify) {
		perms |= Permissions(PermRead)
	}
	if props.Has(PropWrite) || props.Has(PropWriteWithoutResponse) {
		perms |= Permissions(PermWrite)
	}
	return perms
}
