package model

// SeverityClass grades a confirmed anomaly from the assessed integrity.
type SeverityClass int

const (
	SeverityMinor SeverityClass = iota
	SeverityModerateClass
	SeveritySevere
	SeverityCriticalClass
)

func (c SeverityClass) String() string {
	switch c {
	case SeverityMinor:
		return "minor"
	case SeverityModerateClass:
		return "moderate"
	case SeveritySevere:
		return "severe"
	case SeverityCriticalClass:
		return "critical"
	default:
		return "unknown"
	}
}

// RepairType selects the repair workflow for a recommendation.
type RepairType int

const (
	RepairNone RepairType = iota
	RepairPreventiveClamp
	RepairIsolationStructural
	RepairEmergencyMultiAUV
)

func (t RepairType) String() string {
	switch t {
	case RepairPreventiveClamp:
		return "preventive-clamp"
	case RepairIsolationStructural:
		return "isolation-structural"
	case RepairEmergencyMultiAUV:
		return "emergency-multi-auv"
	default:
		return "none"
	}
}

// RepairRecommendation is the assessment planner's output for one
// confirmed anomaly. It is consumed exactly once, either by the approval
// gateway or directly by repair dispatch.
type RepairRecommendation struct {
	Severity          SeverityClass
	Repair            RepairType
	RequiresIsolation bool
	RequiresApproval  bool
	Tools             []string
	EstimatedDuration float64 // simulated seconds
	Integrity         float64 // assessed structural integrity percent
}
