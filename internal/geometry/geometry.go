// Package geometry measures road approaches from surveyed coordinates.
package geometry

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371000.0

// LatLng is a WGS84 coordinate in degrees. It encodes as a [lat, lng] pair.
type LatLng [2]float64

func (p LatLng) s2() s2.LatLng { return s2.LatLngFromDegrees(p[0], p[1]) }

// Valid reports whether p is a normalized coordinate.
func (p LatLng) Valid() bool { return p.s2().IsValid() }

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b LatLng) float64 {
	return a.s2().Distance(b.s2()).Radians() * EarthRadiusMeters
}

// PolylineLength returns the length in metres of the path through points.
func PolylineLength(points []LatLng) (float64, error) {
	if len(points) < 2 {
		return 0, fmt.Errorf("road geometry needs at least 2 points, got %d", len(points))
	}
	for i, p := range points {
		if !p.Valid() {
			return 0, fmt.Errorf("road geometry point %d (%g, %g) is out of range", i, p[0], p[1])
		}
	}
	line := make(s2.Polyline, len(points))
	for i, p := range points {
		line[i] = s2.PointFromLatLng(p.s2())
	}
	return line.Length().Radians() * EarthRadiusMeters, nil
}
