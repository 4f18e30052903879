package core

import (
	"math"

	"github.com/subseaworks/corridor-simulator/internal/logging"
	"github.com/subseaworks/corridor-simulator/model"
)

// escalationThreshold is the uncertainty level at which a healthy segment
// escalates to critical-risk.
const escalationThreshold = 0.85

// HazardEngine applies each active hazard's decay-weighted effects to the
// segments around its epicentre once per world tick, and escalates
// segments whose uncertainty crosses the threshold.
type HazardEngine struct {
	world  *World
	events *EventLog

	// requestInvestigation is invoked at most once per tick when a
	// segment first escalates and no mission is active anywhere.
	requestInvestigation func(assetID string, kp int)
}

// NewHazardEngine wires the engine to the world and event log. The
// dispatch hook may be nil (tests exercising propagation only).
func NewHazardEngine(w *World, events *EventLog, dispatch func(assetID string, kp int)) *HazardEngine {
	return &HazardEngine{world: w, events: events, requestInvestigation: dispatch}
}

// Tick propagates every active hazard. missionActive suppresses the
// automatic investigation dispatch; escalation itself still happens.
func (e *HazardEngine) Tick(now float64, missionActive bool) {
	for _, h := range e.world.Hazards() {
		e.propagate(now, h, &missionActive)
	}
}

// propagate applies one hazard to all segments within its decay radius,
// clipped to the corridor bounds. Effects from overlapping hazards sum
// because each hazard adds its own contribution independently.
func (e *HazardEngine) propagate(now float64, h *model.ActiveHazard, missionActive *bool) {
	segs, err := e.world.Segments(h.AssetID)
	if err != nil {
		return
	}
	r := h.Profile.RadiusKP
	if r < 1 {
		r = 1
	}
	halfLife := float64(r) / 2

	for off := -r; off <= r; off++ {
		kp := h.EpicentreKP + off
		if kp < 0 || kp >= CorridorLengthKP {
			continue
		}
		seg := segs[kp]
		factor := math.Exp(-math.Abs(float64(off)) / halfLife)

		for ch := 0; ch < model.NumChannels; ch++ {
			mag := h.Profile.Drift[ch]
			if mag == 0 {
				continue
			}
			c := seg.Cluster.Channel(model.ChannelKind(ch))
			c.Current += mag * factor
			c.Drift = mag * factor
		}

		seg.Uncertainty = model.Clamp01(seg.Uncertainty + h.Profile.UncertaintyAccel*factor*0.1)

		if seg.Uncertainty > escalationThreshold && seg.Health == model.HealthHealthy {
			e.escalate(now, seg, missionActive)
		}
	}
	e.world.MarkAssetDirty(h.AssetID)
}

func (e *HazardEngine) escalate(now float64, seg *model.SegmentNode, missionActive *bool) {
	seg.Health = model.HealthCriticalRisk
	e.events.Append(now, LevelCritical, "hazard",
		"critical strain threshold breached",
		logging.String("asset", seg.AssetID),
		logging.Int("kp", seg.KPStart),
	)
	if !*missionActive && e.requestInvestigation != nil {
		e.requestInvestigation(seg.AssetID, seg.KPStart)
		// One dispatch at a time: further escalations this tick only
		// change segment state.
		*missionActive = true
	}
}
