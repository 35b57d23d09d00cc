package model

import "math"

// Magnitude range mapped onto the colour ramp.
const (
	colorMinMagnitude = 3.5
	colorMaxMagnitude = 9.5
)

// RGB is a colour with components in [0, 1].
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// MagnitudeEnergy returns the radiated energy for a magnitude, 10^(1.5m+4.8).
func MagnitudeEnergy(mag float64) float64 {
	return math.Pow(10, mag*3/2+4.8)
}

// MagnitudeColor maps a magnitude onto a red-to-blue ramp normalised on
// log-energy between M3.5 and M9.5.
func MagnitudeColor(mag float64) RGB {
	lo := math.Log10(MagnitudeEnergy(colorMinMagnitude))
	hi := math.Log10(MagnitudeEnergy(colorMaxMagnitude))
	n := (math.Log10(MagnitudeEnergy(mag)) - lo) / (hi - lo)
	n = math.Max(0, math.Min(1, n))
	return RGB{R: 1 - n, G: 0.5, B: n}
}
