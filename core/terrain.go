package core

import "math"

// TerrainProfile supplies the bathymetric depth along the corridor. The
// core treats depth as read-only external data; rendering and route
// planning consume the same profile.
type TerrainProfile interface {
	// DepthAt returns the seabed depth in metres at a (fractional)
	// kilometre-point.
	DepthAt(kp float64) float64
}

// SyntheticBathymetry is a deterministic seabed profile: a shelf at both
// ends of the corridor with a deep central trench, plus short-wavelength
// relief. The same KP always yields the same depth.
type SyntheticBathymetry struct {
	ShelfDepthM  float64
	TrenchDepthM float64
}

// NewSyntheticBathymetry returns the default corridor profile.
func NewSyntheticBathymetry() *SyntheticBathymetry {
	return &SyntheticBathymetry{ShelfDepthM: 90, TrenchDepthM: 1350}
}

// DepthAt implements TerrainProfile.
func (b *SyntheticBathymetry) DepthAt(kp float64) float64 {
	if kp < 0 {
		kp = 0
	}
	if kp > CorridorLengthKP {
		kp = CorridorLengthKP
	}
	t := kp / CorridorLengthKP

	// Smooth trench envelope peaking mid-corridor.
	envelope := math.Sin(t * math.Pi)
	depth := b.ShelfDepthM + (b.TrenchDepthM-b.ShelfDepthM)*envelope*envelope

	// Local relief, small relative to the envelope.
	depth += 35 * math.Sin(kp/17.3)
	depth += 12 * math.Sin(kp/3.7)

	if depth < 25 {
		depth = 25
	}
	return depth
}
