package core

import (
	"math/rand"

	"github.com/subseaworks/corridor-simulator/model"
)

// AssessmentPlanner converts a scanned segment's uncertainty into a
// structural integrity estimate and a repair recommendation. The only
// state is the seeded RNG, so a fixed seed makes assessments fully
// reproducible.
type AssessmentPlanner struct {
	rng *rand.Rand
}

// NewAssessmentPlanner creates a planner with its own RNG stream.
func NewAssessmentPlanner(seed int64) *AssessmentPlanner {
	return &AssessmentPlanner{rng: rand.New(rand.NewSource(seed))}
}

// integrityBand maps an uncertainty level to a randomised integrity band.
// Bands are half-open [lo, hi).
func (p *AssessmentPlanner) integrityBand(uncertainty float64) float64 {
	var lo, hi float64
	switch {
	case uncertainty > 0.85:
		lo, hi = 15, 35
	case uncertainty > 0.6:
		lo, hi = 41, 56
	case uncertainty > 0.3:
		lo, hi = 61, 81
	default:
		lo, hi = 86, 96
	}
	return lo + p.rng.Float64()*(hi-lo)
}

// Assess produces the recommendation for a segment with the given
// uncertainty buffer.
func (p *AssessmentPlanner) Assess(uncertainty float64) model.RepairRecommendation {
	integrity := p.integrityBand(uncertainty)
	rec := recommendationFor(integrity)
	rec.Integrity = integrity
	return rec
}

// recommendationFor is the fixed severity table keyed by integrity.
func recommendationFor(integrity float64) model.RepairRecommendation {
	switch {
	case integrity > 85:
		return model.RepairRecommendation{
			Severity: model.SeverityMinor,
			Repair:   model.RepairNone,
		}
	case integrity >= 60:
		return model.RepairRecommendation{
			Severity:          model.SeverityModerateClass,
			Repair:            model.RepairPreventiveClamp,
			Tools:             []string{"clamp-kit", "torque-driver"},
			EstimatedDuration: 1800,
		}
	case integrity >= 40:
		return model.RepairRecommendation{
			Severity:          model.SeveritySevere,
			Repair:            model.RepairIsolationStructural,
			RequiresIsolation: true,
			Tools:             []string{"clamp-kit", "structural-sleeve", "hydraulic-jack"},
			EstimatedDuration: 3600,
		}
	default:
		return model.RepairRecommendation{
			Severity:          model.SeverityCriticalClass,
			Repair:            model.RepairEmergencyMultiAUV,
			RequiresIsolation: true,
			RequiresApproval:  true,
			Tools:             []string{"clamp-kit", "structural-sleeve", "hydraulic-jack", "weld-habitat"},
			EstimatedDuration: 7200,
		}
	}
}
