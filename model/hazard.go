package model

import (
	"fmt"
	"strings"
)

// HazardKind enumerates the nine supported hazard types.
type HazardKind int

const (
	HazardCrudeRupture HazardKind = iota
	HazardGasLeak
	HazardCondensateLeak
	HazardAnchorDrag
	HazardSubmarineSlide
	HazardSeismicEvent
	HazardTrawlImpact
	HazardCorrosionBreach
	HazardCableFault
)

var hazardKindNames = map[HazardKind]string{
	HazardCrudeRupture:    "crude_rupture",
	HazardGasLeak:         "gas_leak",
	HazardCondensateLeak:  "condensate_leak",
	HazardAnchorDrag:      "anchor_drag",
	HazardSubmarineSlide:  "submarine_slide",
	HazardSeismicEvent:    "seismic_event",
	HazardTrawlImpact:     "trawl_impact",
	HazardCorrosionBreach: "corrosion_breach",
	HazardCableFault:      "cable_fault",
}

func (k HazardKind) String() string {
	if n, ok := hazardKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// ParseHazardKind resolves a wire-format hazard name.
func ParseHazardKind(s string) (HazardKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range hazardKindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown hazard kind %q", s)
}

// HazardSeverity scales a hazard profile at injection time.
type HazardSeverity int

const (
	SeverityLow HazardSeverity = iota
	SeverityModerate
	SeverityHigh
	SeverityCriticalLevel
)

var severityNames = map[HazardSeverity]string{
	SeverityLow:           "low",
	SeverityModerate:      "moderate",
	SeverityHigh:          "high",
	SeverityCriticalLevel: "critical",
}

func (s HazardSeverity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return "unknown"
}

// Multiplier returns the profile scaling factor for this severity.
func (s HazardSeverity) Multiplier() float64 {
	switch s {
	case SeverityLow:
		return 0.5
	case SeverityHigh:
		return 1.5
	case SeverityCriticalLevel:
		return 2.0
	default:
		return 1.0
	}
}

// ParseHazardSeverity resolves a wire-format severity name.
func ParseHazardSeverity(s string) (HazardSeverity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range severityNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown hazard severity %q", s)
}

// HazardProfile is the per-kind effect template: decay radius in KP,
// per-channel drift magnitudes applied each world tick at the epicentre,
// and the uncertainty acceleration. Templates are immutable; injection
// takes a scaled value copy.
type HazardProfile struct {
	RadiusKP         int
	Drift            [NumChannels]float64
	UncertaintyAccel float64
}

// Scaled returns a copy of the profile with drift magnitudes and
// uncertainty acceleration multiplied by m. The radius is unchanged.
func (p HazardProfile) Scaled(m float64) HazardProfile {
	out := p
	for i := range out.Drift {
		out.Drift[i] *= m
	}
	out.UncertaintyAccel *= m
	return out
}

// hazardProfiles maps each kind to its template. Drift order follows
// ChannelKind: pressure, flow, acoustic, temperature, strain, tilt.
var hazardProfiles = map[HazardKind]HazardProfile{
	HazardCrudeRupture:    {RadiusKP: 20, Drift: [NumChannels]float64{-2.4, -14.0, 6.5, 0.4, 1.8, 0.2}, UncertaintyAccel: 0.045},
	HazardGasLeak:         {RadiusKP: 25, Drift: [NumChannels]float64{-1.6, -9.0, 9.2, -0.3, 0.9, 0.1}, UncertaintyAccel: 0.035},
	HazardCondensateLeak:  {RadiusKP: 15, Drift: [NumChannels]float64{-1.1, -6.5, 4.8, 0.2, 0.7, 0.1}, UncertaintyAccel: 0.030},
	HazardAnchorDrag:      {RadiusKP: 6, Drift: [NumChannels]float64{-0.4, -1.2, 7.4, 0, 4.6, 2.8}, UncertaintyAccel: 0.050},
	HazardSubmarineSlide:  {RadiusKP: 40, Drift: [NumChannels]float64{-0.6, -2.0, 5.0, 0.1, 3.4, 4.1}, UncertaintyAccel: 0.040},
	HazardSeismicEvent:    {RadiusKP: 60, Drift: [NumChannels]float64{-0.8, -2.4, 6.0, 0.2, 2.6, 2.2}, UncertaintyAccel: 0.030},
	HazardTrawlImpact:     {RadiusKP: 4, Drift: [NumChannels]float64{-0.5, -1.0, 8.8, 0, 5.2, 1.6}, UncertaintyAccel: 0.055},
	HazardCorrosionBreach: {RadiusKP: 8, Drift: [NumChannels]float64{-1.8, -4.2, 2.4, 0.3, 2.1, 0.1}, UncertaintyAccel: 0.025},
	HazardCableFault:      {RadiusKP: 3, Drift: [NumChannels]float64{0, 0, 3.6, 5.8, 1.4, 0.3}, UncertaintyAccel: 0.060},
}

// ProfileFor returns the immutable template for a hazard kind.
func ProfileFor(k HazardKind) (HazardProfile, bool) {
	p, ok := hazardProfiles[k]
	return p, ok
}

// ActiveHazard is a live hazard acting on one asset. Its profile is the
// severity-scaled copy taken at creation; it is removed when the affected
// segments are repaired.
type ActiveHazard struct {
	ID          string
	Kind        HazardKind
	AssetID     string
	EpicentreKP int
	Severity    HazardSeverity
	Profile     HazardProfile
	InjectedAt  float64 // simulation seconds
}
