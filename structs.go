package main

import (
	"fmt"
	"os"

	"TurbineMonitor/location"
	"TurbineMonitor/sim"

	"gopkg.in/yaml.v3"
)

// TurbineProfile describes the simulated turbine. It is read from an
// optional YAML file:
//
//	id: wt-01
//	name: North ridge turbine
//	default_location: {lat: 13.1067, lng: 80.0695}
//	ranges:
//	  Voltage: {min: 225, max: 235}
type TurbineProfile struct {
	ID              string             `yaml:"id"`
	Name            string             `yaml:"name"`
	DefaultLocation *location.Location `yaml:"default_location"`
	Ranges          sim.Ranges         `yaml:"ranges"`
}

func DefaultProfile() TurbineProfile {
	return TurbineProfile{
		ID:   "turbine-1",
		Name: "Wind turbine",
	}
}

// Fallback returns the location shown before one is picked.
func (p TurbineProfile) Fallback() location.Location {
	if p.DefaultLocation == nil {
		return location.Default
	}
	return *p.DefaultLocation
}

// LoadProfile reads a profile, filling unset fields from DefaultProfile. An
// empty path yields the default profile.
func LoadProfile(path string) (TurbineProfile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if profile.DefaultLocation != nil {
		if err := profile.DefaultLocation.Validate(); err != nil {
			return profile, fmt.Errorf("profile %s: default_location: %w", path, err)
		}
	}
	if _, err := sim.DefaultRanges().Merge(profile.Ranges); err != nil {
		return profile, fmt.Errorf("profile %s: %w", path, err)
	}
	return profile, nil
}
