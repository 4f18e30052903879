package model

// MissionState is an AUV's position in its mission state machine. The
// mission engine is the only writer; invalid transitions are unreachable
// by construction.
type MissionState int

const (
	StateIdle MissionState = iota
	StateUndocking
	StateTransitVertical
	StateTransitHorizontal
	StateOnSiteScan
	StateOnSiteRepair
	StateReporting
	StateReportingRepair

	// StateStranded is the terminal degraded state entered when the
	// battery saturates at zero mid-mission. Only operator recovery
	// leaves it.
	StateStranded
)

func (s MissionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateUndocking:
		return "UNDOCKING"
	case StateTransitVertical:
		return "TRANSIT_VERTICAL"
	case StateTransitHorizontal:
		return "TRANSIT_HORIZONTAL"
	case StateOnSiteScan:
		return "ON_SITE_SCAN"
	case StateOnSiteRepair:
		return "ON_SITE_REPAIR"
	case StateReporting:
		return "REPORTING"
	case StateReportingRepair:
		return "REPORTING_REPAIR"
	case StateStranded:
		return "STRANDED"
	default:
		return "UNKNOWN"
	}
}

// MissionType selects the on-site branch of the state machine.
type MissionType int

const (
	MissionNone MissionType = iota
	MissionInvestigation
	MissionRepair
	MissionSupport

	// MissionAbort forces an immediate return-to-home transition at the
	// next mission tick, overriding any in-progress phase timer.
	MissionAbort
)

func (t MissionType) String() string {
	switch t {
	case MissionInvestigation:
		return "investigation"
	case MissionRepair:
		return "repair"
	case MissionSupport:
		return "support"
	case MissionAbort:
		return "abort"
	default:
		return "none"
	}
}

// AUVNode is one autonomous vehicle. AUVs are created on first dispatch
// from a station and reused for later missions; they are never destroyed.
type AUVNode struct {
	ID            string
	HomeStationID string
	HomeKP        int

	CurrentKP     float64
	TargetKP      int
	TargetAssetID string

	DepthM            float64
	HorizontalSpeedMS float64
	VerticalSpeedMS   float64

	// BatteryJ is bounded to [0, BatteryMaxJ]; it never goes negative.
	BatteryJ    float64
	BatteryMaxJ float64

	State       MissionState
	Mission     MissionType
	RepairPhase int // 1..6 while ON_SITE_REPAIR on a repair mission

	// PhaseTimer accumulates simulated seconds in the current state or
	// repair phase; it resets on every transition.
	PhaseTimer float64
}

// BatteryPercent reports charge as a percentage of capacity.
func (a *AUVNode) BatteryPercent() float64 {
	if a.BatteryMaxJ <= 0 {
		return 0
	}
	return Clamp(a.BatteryJ/a.BatteryMaxJ*100, 0, 100)
}

// MissionActive reports whether the AUV is currently committed to a
// mission. Stranded vehicles count as inactive for dispatch gating.
func (a *AUVNode) MissionActive() bool {
	return a.State != StateIdle && a.State != StateStranded
}
