// Package location holds the turbine's chosen map position and the store it
// is persisted in.
package location

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Location is a latitude/longitude pair in decimal degrees.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Default is the position shown before anything has been chosen.
var Default = Location{Lat: 13.1067, Lng: 80.0695}

// Field names reported by ValidationError.
const (
	FieldLat = "lat"
	FieldLng = "lng"
)

// ValidationError reports a coordinate that cannot be used.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ErrNotSet is returned by a Store that holds no location yet.
var ErrNotSet = errors.New("location: not set")

// New validates lat and lng.
func New(lat, lng float64) (Location, error) {
	if err := check(FieldLat, lat, 90); err != nil {
		return Location{}, err
	}
	if err := check(FieldLng, lng, 180); err != nil {
		return Location{}, err
	}
	return Location{Lat: lat, Lng: lng}, nil
}

// Parse reads a location from user supplied text, as typed into the
// landing page form.
func Parse(latText, lngText string) (Location, error) {
	lat, err := parseCoordinate(FieldLat, latText)
	if err != nil {
		return Location{}, err
	}
	lng, err := parseCoordinate(FieldLng, lngText)
	if err != nil {
		return Location{}, err
	}
	return New(lat, lng)
}

// Validate reports whether l is usable.
func (l Location) Validate() error {
	_, err := New(l.Lat, l.Lng)
	return err
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f, %.4f", l.Lat, l.Lng)
}

func parseCoordinate(field, text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, &ValidationError{Field: field, Value: text, Reason: "value is required"}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Value: text, Reason: "not a number"}
	}
	return v, nil
}

func check(field string, v, limit float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Value: strconv.FormatFloat(v, 'g', -1, 64), Reason: "not a finite number"}
	}
	if v < -limit || v > limit {
		return &ValidationError{
			Field:  field,
			Value:  strconv.FormatFloat(v, 'g', -1, 64),
			Reason: fmt.Sprintf("must be between %g and %g", -limit, limit),
		}
	}
	return nil
}
