// Package geo provides great-circle distance and single-shot location sampling.
package geo

import (
	"math"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

// EarthRadiusMeters is the mean radius of the Earth.
const EarthRadiusMeters = 6371000.0

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b model.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// ValidCoordinate reports whether c lies within the WGS 84 latitude/longitude ranges.
func ValidCoordinate(c model.Coordinate) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
