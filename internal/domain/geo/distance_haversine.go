//go:build windows || !cgo

package geo

import "github.com/okian/seisnear/internal/domain/model"

func greatCircleKm(a, b model.Coordinates) float64 {
	return haversineKm(a, b)
}

// Backend names the distance implementation compiled in.
const Backend = "haversine"
