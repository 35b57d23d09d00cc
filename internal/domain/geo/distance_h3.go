//go:build !windows && cgo

package geo

import (
	"github.com/uber/h3-go/v4"

	"github.com/okian/seisnear/internal/domain/model"
)

// h3 uses its own authalic radius; rescale onto EarthRadiusKm so both builds agree.
const h3EarthRadiusKm = 6371.007180918475

func greatCircleKm(a, b model.Coordinates) float64 {
	d := h3.GreatCircleDistanceKm(
		h3.NewLatLng(a.Latitude, a.Longitude),
		h3.NewLatLng(b.Latitude, b.Longitude),
	)
	return d * EarthRadiusKm / h3EarthRadiusKm
}

// Backend names the distance implementation compiled in.
const Backend = "h3"
