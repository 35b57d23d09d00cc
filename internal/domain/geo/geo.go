// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"github.com/okian/seisnear/internal/domain/model"
)

// EarthRadiusKm is the mean Earth radius used for distances.
const EarthRadiusKm = 6371.0

// ValidCoordinates reports whether c is a finite position on the globe.
func ValidCoordinates(c model.Coordinates) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -360 && c.Longitude <= 360
}

// DistanceKm returns the great-circle distance between a and b in kilometres.
// Invalid coordinates yield +Inf so they always rank last.
func DistanceKm(a, b model.Coordinates) float64 {
	if !ValidCoordinates(a) || !ValidCoordinates(b) {
		return math.Inf(1)
	}
	return greatCircleKm(a, b)
}

// DegreesToKm converts an arc in degrees to kilometres on the mean sphere.
func DegreesToKm(deg float64) float64 {
	return deg * math.Pi / 180 * EarthRadiusKm
}

func haversineKm(a, b model.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
