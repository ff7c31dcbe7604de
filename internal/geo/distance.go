// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

// EarthRadiusMeters is the mean Earth radius of the sphere approximation.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b geofence.Coordinate) float64 {
	return toLatLng(a).Distance(toLatLng(b)).Radians() * EarthRadiusMeters
}

// Destination returns the point reached by travelling meters from origin
// along the initial bearing (degrees clockwise from north).
func Destination(origin geofence.Coordinate, bearingDegrees, meters float64) geofence.Coordinate {
	var (
		p       = toLatLng(origin)
		bearing = (s1.Angle(bearingDegrees) * s1.Degree).Radians()
		angular = meters / EarthRadiusMeters
		lat1    = p.Lat.Radians()
		lng1    = p.Lng.Radians()
	)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) + math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2),
	)

	result := s2.LatLng{Lat: s1.Angle(lat2), Lng: s1.Angle(lng2)}.Normalized()

	return geofence.Coordinate{
		Latitude:  result.Lat.Degrees(),
		Longitude: result.Lng.Degrees(),
	}
}

func toLatLng(c geofence.Coordinate) s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}
