// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
)

const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b domain.Coordinate) float64 {
	if a == b {
		return 0
	}
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h just past 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// WithinRadius is inclusive of the boundary.
func WithinRadius(distanceKm, radiusKm float64) bool {
	return distanceKm <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
