// Package geo holds the geographic primitives shared by the navigation
// services: coordinates, location samples, region bounds and great-circle
// helpers.
package geo

import (
	"fmt"
	"math"
	"time"
)

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusMeters is the Earth's mean radius in meters (WGS84)
	EarthRadiusMeters = 6371008.8
)

// Coordinate is a position on Earth's surface in decimal degrees (WGS84).
// It is a plain value type and is freely copied.
type Coordinate struct {
	// Lat in decimal degrees (-90 to +90), negative = South
	Lat float64 `json:"lat"`

	// Lng in decimal degrees (-180 to +180), negative = West
	Lng float64 `json:"lng"`
}

// String renders the coordinate with five decimals, roughly one meter.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// IsZero reports whether both components are zero.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// LocationSample is one reading from a positioning source.
type LocationSample struct {
	// Coordinate is the reported position
	Coordinate Coordinate

	// Heading is the course over ground in degrees (0-359).
	// Nil when the source did not report one.
	Heading *float64

	// Accuracy is the horizontal error estimate in meters (0 = unknown)
	Accuracy float64

	// Time is when the sample was taken
	Time time.Time
}

// NormalizeHeading maps any angle into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360.0)
	if h < 0 {
		h += 360.0
	}
	return h
}
