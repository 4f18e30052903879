package model

import "fmt"

// AssetClass distinguishes the two kinds of corridor assets.
type AssetClass int

const (
	AssetPipeline AssetClass = iota
	AssetCable
)

func (c AssetClass) String() string {
	switch c {
	case AssetPipeline:
		return "pipeline"
	case AssetCable:
		return "cable"
	default:
		return "unknown"
	}
}

// HealthState is the closed set of per-segment health states. Transitions
// are driven by the hazard engine (escalation), the mission engine
// (confirmation and repair), and operator overrides.
type HealthState int

const (
	HealthHealthy HealthState = iota
	HealthCriticalRisk
	HealthConfirmedAnomaly
	HealthRepairPhase
	HealthRepaired
	HealthRepairIncomplete
)

func (h HealthState) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthCriticalRisk:
		return "critical-risk"
	case HealthConfirmedAnomaly:
		return "confirmed-anomaly"
	case HealthRepairPhase:
		return "repair-phase"
	case HealthRepaired:
		return "repaired-stabilized"
	case HealthRepairIncomplete:
		return "repair-incomplete"
	default:
		return "unknown"
	}
}

// IsolationState is a segment's valve-isolation sub-state, managed
// exclusively by the isolation manager.
type IsolationState int

const (
	IsolationNone IsolationState = iota
	IsolationIsolating
	IsolationReintroducing
)

func (s IsolationState) String() string {
	switch s {
	case IsolationIsolating:
		return "isolating"
	case IsolationReintroducing:
		return "reintroducing"
	default:
		return "none"
	}
}

// ChannelKind indexes the six sensor channels of a cluster.
type ChannelKind int

const (
	ChannelPressure ChannelKind = iota
	ChannelFlow
	ChannelAcoustic
	ChannelTemperature
	ChannelStrain
	ChannelTilt

	NumChannels = 6
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelPressure:
		return "pressure"
	case ChannelFlow:
		return "flow"
	case ChannelAcoustic:
		return "acoustic"
	case ChannelTemperature:
		return "temperature"
	case ChannelStrain:
		return "strain"
	case ChannelTilt:
		return "tilt"
	default:
		return "unknown"
	}
}

// SensorChannel is one telemetry channel of a segment's cluster.
type SensorChannel struct {
	Baseline float64
	Current  float64
	Noise    float64
	Drift    float64
}

// SensorCluster bundles the six channels owned by one segment. It is
// mutated only by the hazard engine and the isolation manager.
type SensorCluster struct {
	Channels [NumChannels]SensorChannel
}

// Channel returns a mutable reference to the channel of the given kind.
func (c *SensorCluster) Channel(k ChannelKind) *SensorChannel {
	return &c.Channels[k]
}

// GeoPosition is a geodesic location supplied by the corridor route at
// world initialisation; the core never recomputes it.
type GeoPosition struct {
	LatDeg float64
	LonDeg float64
}

// SegmentNode is one kilometre of one asset. Segments are created once at
// world initialisation and never destroyed.
type SegmentNode struct {
	AssetID    string
	AssetClass AssetClass
	KPStart    int
	KPEnd      int

	Position GeoPosition
	DepthM   float64

	Health      HealthState
	RepairPhase int // 1..6 while Health == HealthRepairPhase, else 0

	// Uncertainty is the confidence-loss accumulator in [0,1] driving
	// escalation thresholds.
	Uncertainty float64

	// Integrity is the structural integrity percent in [0,100]; it is
	// meaningful only after IntegrityAssessed is set by an AUV scan.
	Integrity         float64
	IntegrityAssessed bool

	Isolation IsolationState

	Cluster SensorCluster
}

// Key identifies a segment as asset:kp, the unit used by isolation and
// repair bookkeeping.
func (s *SegmentNode) Key() string {
	return fmt.Sprintf("%s:%d", s.AssetID, s.KPStart)
}

// HealthLabel renders the health state, expanding the repair phase counter.
func (s *SegmentNode) HealthLabel() string {
	if s.Health == HealthRepairPhase && s.RepairPhase > 0 {
		return fmt.Sprintf("repair-phase-%d", s.RepairPhase)
	}
	return s.Health.String()
}

// Clamp constrains v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 constrains v to the unit interval.
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }
