// Package profile loads declarative peripheral profiles from YAML and builds the gatt
// services they describe.
//
// A profile looks like:
//
//	name: thermometer
//	services:
//	  - uuid: "181a"
//	    characteristics:
//	      - uuid: "2a6e"
//	        type: int16
//	        properties: read,notify
//	        value: 2150
//	        description: Temperature
//	beacon:
//	  uuid: e2c56db5-dffb-48d2-b060-d0f5a71096e0
//	  major: 1
//	  minor: 2
package profile

import (
	"fmt"
	"os"

	"github.com/mcuadros/go-defaults"
	"github.com/srg/gattd/internal/gatt"
	"github.com/srg/gattd/internal/peripheral"
	"gopkg.in/yaml.v3"
)

type Profile struct {
	Name     string           `yaml:"name"`
	Services []ServiceProfile `yaml:"services"`
	Beacon   *BeaconProfile   `yaml:"beacon,omitempty"`
}

type ServiceProfile struct {
	UUID            string                  `yaml:"uuid"`
	Primary         *bool                   `yaml:"primary,omitempty"`
	Characteristics []CharacteristicProfile `yaml:"characteristics"`
}

type CharacteristicProfile struct {
	UUID        string `yaml:"uuid"`
	Type        string `yaml:"type" default:"bytes"`
	Properties  string `yaml:"properties" default:"read"`
	Permissions string `yaml:"permissions,omitempty"`
	Value       any    `yaml:"value,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type BeaconProfile struct {
	UUID  string `yaml:"uuid"`
	Major uint16 `yaml:"major"`
	Minor uint16 `yaml:"minor"`
	Power int    `yaml:"power" default:"-59"`
}

// Load reads and parses the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile and applies field defaults.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	for i := range p.Services {
		for j := range p.Services[i].Characteristics {
			defaults.SetDefaults(&p.Services[i].Characteristics[j])
		}
	}
	if p.Beacon != nil {
		defaults.SetDefaults(p.Beacon)
	}
	return &p, nil
}

// Build creates the services in declaration order. Errors name the offending field.
func (p *Profile) Build() ([]*gatt.Service, error) {
	services := make([]*gatt.Service, 0, len(p.Services))
	for i, sp := range p.Services {
		field := fmt.Sprintf("services[%d]", i)

		id, err := gatt.ParseUUID(sp.UUID)
		if err != nil {
			return nil, fmt.Errorf("%s.uuid: %w", field, err)
		}

		svc := gatt.NewService(id)
		if sp.Primary != nil {
			svc.SetPrimary(*sp.Primary)
		}
		for j, cp := range sp.Characteristics {
			c, err := cp.build()
			if err != nil {
				return nil, fmt.Errorf("%s.characteristics[%d].%w", field, j, err)
			}
			svc.Register(c)
		}
		services = append(services, svc)
	}
	return services, nil
}

// BuildBeacon returns the iBeacon configuration, or nil when the profile has none.
func (p *Profile) BuildBeacon() (*peripheral.Beacon, error) {
	if p.Beacon == nil {
		return nil, nil
	}

	id, err := gatt.ParseUUID(p.Beacon.UUID)
	if err != nil {
		return nil, fmt.Errorf("beacon.uuid: %w", err)
	}
	if p.Beacon.Power < -128 || p.Beacon.Power > 127 {
		return nil, fmt.Errorf("beacon.power: %d dBm is out of range", p.Beacon.Power)
	}
	return &peripheral.Beacon{
		UUID:          id,
		Major:         p.Beacon.Major,
		Minor:         p.Beacon.Minor,
		MeasuredPower: int8(p.Beacon.Power),
	}, nil
}
