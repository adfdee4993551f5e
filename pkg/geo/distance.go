package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Bearing returns the initial bearing from a to b in degrees (0-360),
// where 0 is North and 90 is East.
func Bearing(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)

	lat1 := p1.Lat.Radians()
	lat2 := p2.Lat.Radians()
	lonDiff := p2.Lng.Radians() - p1.Lng.Radians()

	y := math.Sin(lonDiff) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lonDiff)

	return NormalizeHeading(math.Atan2(y, x) * RadiansToDegrees)
}

// Offset moves c by the given east/north distances in meters using a local
// flat-earth approximation. Good enough for screen-space projection at
// city zoom levels.
func Offset(c Coordinate, eastMeters, northMeters float64) Coordinate {
	dLat := northMeters / EarthRadiusMeters * RadiansToDegrees
	dLng := eastMeters / (EarthRadiusMeters * math.Cos(c.Lat*DegreesToRadians)) * RadiansToDegrees
	return Coordinate{Lat: c.Lat + dLat, Lng: c.Lng + dLng}
}

// LocalDelta returns the east/north offset in meters of b relative to a,
// the inverse of Offset.
func LocalDelta(a, b Coordinate) (eastMeters, northMeters float64) {
	northMeters = (b.Lat - a.Lat) * DegreesToRadians * EarthRadiusMeters
	eastMeters = (b.Lng - a.Lng) * DegreesToRadians * EarthRadiusMeters * math.Cos(a.Lat*DegreesToRadians)
	return eastMeters, northMeters
}
