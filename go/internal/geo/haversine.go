// Package geo implements great-circle distance checks for geofences.
package geo

import (
	"math"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b models.Coordinate) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLng := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// IsInside reports whether p lies within radius meters of center, boundary included.
func IsInside(p, center models.Coordinate, radius float64) bool {
	return Distance(p, center) <= radius
}

// InFence is IsInside for a models.Geofence.
func InFence(p models.Coordinate, fence models.Geofence) bool {
	return IsInside(p, fence.Center, fence.Radius)
}

// Offset moves origin by the given number of meters north and east.
// Used to build positions at a known distance from a center.
func Offset(origin models.Coordinate, northMeters, eastMeters float64) models.Coordinate {
	dLat := northMeters / EarthRadiusMeters
	dLng := eastMeters / (EarthRadiusMeters * math.Cos(toRadians(origin.Latitude)))
	return models.Coordinate{
		Latitude:  origin.Latitude + dLat*180/math.Pi,
		Longitude: origin.Longitude + dLng*180/math.Pi,
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
