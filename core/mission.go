package core

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/subseaworks/corridor-simulator/internal/logging"
	"github.com/subseaworks/corridor-simulator/model"
)

// AUV physics and power constants. Battery draw is integrated per mission
// tick; the battery saturates at zero and strands the vehicle.
const (
	knotsToMS = 0.514444

	cruiseSpeedMS   = 4.5 * knotsToMS
	scanSpeedMS     = 1.0 * knotsToMS
	verticalSpeedMS = 1.0

	hotelLoadW       = 500.0
	undockExtraW     = 1000.0
	verticalExtraW   = 2500.0
	scanExtraW       = 4000.0
	commsExtraW      = 1500.0
	repairPrimaryW   = 4500.0
	repairSupportW   = 2000.0
	rechargeW        = 15000.0
	dragCoeffWSM2    = 450.0 // quadratic drag: watts per (m/s)^2

	undockDurationS = 60.0
	scanDurationS   = 300.0
	reportDurationS = 60.0

	// BatteryCapacityJ is the fleet-standard battery capacity (36 MJ).
	BatteryCapacityJ = 3.6e7

	repairCompleteIntegrity = 90.0
	repairedUncertainty     = 0.05
	integrityClimbPerS      = 1.5
)

// repairPhases defines the six sequential on-site repair phases: duration
// in simulated seconds and the integrity floor each phase raises toward.
var repairPhases = [6]struct {
	Name     string
	Duration float64
	Floor    float64
}{
	{"assessment", 30, 45},
	{"stabilize", 30, 55},
	{"clamp-align", 40, 65},
	{"clamp-deploy", 60, 78},
	{"seal-test", 40, 88},
	{"reinforcement-check", 30, 93},
}

// MissionEngine advances every AUV's state machine each mission tick and
// owns the fleet. Assessment and repair-completion policy live with the
// Simulation and are injected as hooks so the engine stays a pure
// physics/state driver.
type MissionEngine struct {
	world   *World
	terrain TerrainProfile
	events  *EventLog

	fleet map[string]*model.AUVNode

	// onAssessment runs exactly once per investigation, at REPORTING
	// completion, for a target segment not yet confirmed.
	onAssessment func(now float64, a *model.AUVNode, seg *model.SegmentNode)

	// onRepairComplete runs at REPORTING_REPAIR completion with the final
	// integrity; the hook owns marking the segment and hazard clearing.
	onRepairComplete func(now float64, a *model.AUVNode, seg *model.SegmentNode)
}

// NewMissionEngine builds an engine with an empty fleet.
func NewMissionEngine(w *World, terrain TerrainProfile, events *EventLog) *MissionEngine {
	return &MissionEngine{
		world:   w,
		terrain: terrain,
		events:  events,
		fleet:   make(map[string]*model.AUVNode),
	}
}

// SetHooks wires the simulation-owned assessment and completion policy.
func (e *MissionEngine) SetHooks(
	onAssessment func(now float64, a *model.AUVNode, seg *model.SegmentNode),
	onRepairComplete func(now float64, a *model.AUVNode, seg *model.SegmentNode),
) {
	e.onAssessment = onAssessment
	e.onRepairComplete = onRepairComplete
}

// AUV returns a fleet member by ID.
func (e *MissionEngine) AUV(id string) (*model.AUVNode, error) {
	a, ok := e.fleet[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAUV, id)
	}
	return a, nil
}

// AUVs returns the fleet sorted by ID.
func (e *MissionEngine) AUVs() []*model.AUVNode {
	out := make([]*model.AUVNode, 0, len(e.fleet))
	for _, a := range e.fleet {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AnyMissionActive reports whether any AUV is committed to a mission.
func (e *MissionEngine) AnyMissionActive() bool {
	for _, a := range e.fleet {
		if a.MissionActive() {
			return true
		}
	}
	return false
}

// Acquire returns an idle, sufficiently charged AUV homed at the sector's
// station, creating a new vehicle when none is available. AUVs are reused
// across missions and never destroyed.
func (e *MissionEngine) Acquire(sector model.Sector) *model.AUVNode {
	var candidates []*model.AUVNode
	for _, a := range e.fleet {
		if a.HomeStationID == sector.StationID && a.State == model.StateIdle && a.BatteryPercent() > 25 {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
		return candidates[0]
	}

	n := 1
	for _, a := range e.fleet {
		if a.HomeStationID == sector.StationID {
			n++
		}
	}
	a := &model.AUVNode{
		ID:            fmt.Sprintf("auv-%s-%d", strings.ToLower(sector.ID), n),
		HomeStationID: sector.StationID,
		HomeKP:        sector.StationKP,
		CurrentKP:     float64(sector.StationKP),
		// New vehicles start at the station's surface dock.
		DepthM:      0,
		BatteryJ:    BatteryCapacityJ,
		BatteryMaxJ: BatteryCapacityJ,
		State:       model.StateIdle,
	}
	e.fleet[a.ID] = a
	return a
}

// Launch commits an AUV to a mission toward a target.
func (e *MissionEngine) Launch(now float64, a *model.AUVNode, mission model.MissionType, assetID string, kp int) {
	a.Mission = mission
	a.TargetAssetID = assetID
	a.TargetKP = kp
	a.State = model.StateUndocking
	a.PhaseTimer = 0
	a.RepairPhase = 0
	e.events.Append(now, LevelInfo, "dispatch",
		fmt.Sprintf("%s mission dispatched from %s", mission, a.HomeStationID),
		logging.String("auv", a.ID),
		logging.String("asset", assetID),
		logging.Int("kp", kp),
	)
}

// RecoverStranded models a surface-vessel retrieval of a stranded AUV:
// the vehicle is returned to its home station idle with a partial charge.
func (e *MissionEngine) RecoverStranded(now float64, id string) error {
	a, err := e.AUV(id)
	if err != nil {
		return err
	}
	if a.State != model.StateStranded {
		return fmt.Errorf("%w: %q in state %s", ErrAUVNotStranded, id, a.State)
	}
	a.CurrentKP = float64(a.HomeKP)
	a.DepthM = 0
	a.BatteryJ = a.BatteryMaxJ * 0.2
	a.State = model.StateIdle
	a.Mission = model.MissionNone
	a.RepairPhase = 0
	a.PhaseTimer = 0
	e.events.Append(now, LevelWarning, "auv", "stranded AUV recovered to station",
		logging.String("auv", a.ID))
	return nil
}

// Tick advances the whole fleet by dtSim simulated seconds.
func (e *MissionEngine) Tick(now, dtSim float64) {
	for _, a := range e.AUVs() {
		e.step(now, dtSim, a)
	}
}

// step advances one AUV. The power draw corresponds to the state at tick
// entry; energy is integrated once at the end so a transition mid-tick
// does not double-charge the battery.
func (e *MissionEngine) step(now, dt float64, a *model.AUVNode) {
	if a.State == model.StateStranded {
		a.HorizontalSpeedMS = 0
		a.VerticalSpeedMS = 0
		return
	}

	// Abort overrides everything except an already-homeward transit.
	if a.Mission == model.MissionAbort && a.State != model.StateIdle {
		if a.State != model.StateTransitHorizontal || a.TargetKP != a.HomeKP {
			a.TargetKP = a.HomeKP
			a.RepairPhase = 0
			a.PhaseTimer = 0
			a.State = model.StateTransitHorizontal
		}
	}

	var drawW float64

	switch a.State {
	case model.StateIdle:
		a.HorizontalSpeedMS = 0
		a.VerticalSpeedMS = 0
		a.BatteryJ = math.Min(a.BatteryMaxJ, a.BatteryJ+rechargeW*dt)
		return

	case model.StateUndocking:
		drawW = hotelLoadW + undockExtraW
		a.PhaseTimer += dt
		if a.PhaseTimer >= undockDurationS {
			a.State = model.StateTransitVertical
			a.PhaseTimer = 0
		}

	case model.StateTransitVertical:
		drawW = hotelLoadW + verticalExtraW
		target := e.terrain.DepthAt(a.CurrentKP)
		delta := target - a.DepthM
		step := verticalSpeedMS * dt
		if math.Abs(delta) <= step {
			a.DepthM = target
			a.VerticalSpeedMS = 0
			a.State = model.StateTransitHorizontal
			a.PhaseTimer = 0
		} else {
			a.DepthM += math.Copysign(step, delta)
			a.VerticalSpeedMS = math.Copysign(verticalSpeedMS, delta)
		}

	case model.StateTransitHorizontal:
		drawW = hotelLoadW + dragCoeffWSM2*cruiseSpeedMS*cruiseSpeedMS
		a.HorizontalSpeedMS = cruiseSpeedMS
		moveKP := cruiseSpeedMS * dt / 1000
		delta := float64(a.TargetKP) - a.CurrentKP
		if math.Abs(delta) <= moveKP {
			a.CurrentKP = float64(a.TargetKP)
			a.DepthM = e.terrain.DepthAt(a.CurrentKP)
			e.arrive(now, a)
		} else {
			a.CurrentKP += math.Copysign(moveKP, delta)
			a.DepthM = e.terrain.DepthAt(a.CurrentKP)
		}

	case model.StateOnSiteScan:
		drawW = hotelLoadW + scanExtraW
		a.HorizontalSpeedMS = scanSpeedMS
		a.PhaseTimer += dt
		if a.PhaseTimer >= scanDurationS {
			a.State = model.StateReporting
			a.PhaseTimer = 0
		}

	case model.StateReporting:
		drawW = hotelLoadW + commsExtraW
		a.HorizontalSpeedMS = 0
		a.PhaseTimer += dt
		if a.PhaseTimer >= reportDurationS {
			e.finishReporting(now, a)
		}

	case model.StateOnSiteRepair:
		drawW = e.stepRepair(now, dt, a)

	case model.StateReportingRepair:
		drawW = hotelLoadW + commsExtraW
		a.PhaseTimer += dt
		if a.PhaseTimer >= reportDurationS {
			if seg, err := e.world.Segment(a.TargetAssetID, a.TargetKP); err == nil && e.onRepairComplete != nil {
				e.onRepairComplete(now, a, seg)
			}
			a.TargetKP = a.HomeKP
			a.RepairPhase = 0
			a.PhaseTimer = 0
			a.State = model.StateTransitHorizontal
		}
	}

	a.BatteryJ -= drawW * dt
	if a.BatteryJ <= 0 {
		a.BatteryJ = 0
		a.State = model.StateStranded
		a.HorizontalSpeedMS = 0
		a.VerticalSpeedMS = 0
		e.events.Append(now, LevelCritical, "auv",
			"battery depleted, AUV stranded awaiting recovery",
			logging.String("auv", a.ID),
			logging.Int("kp", int(a.CurrentKP)),
		)
	}
}

// arrive branches the horizontal transit on arrival: dock when the
// arrival point is the home station, otherwise enter the on-site state
// for the mission type.
func (e *MissionEngine) arrive(now float64, a *model.AUVNode) {
	a.HorizontalSpeedMS = 0
	a.PhaseTimer = 0

	if a.TargetKP == a.HomeKP {
		a.State = model.StateIdle
		prev := a.Mission
		a.Mission = model.MissionNone
		a.RepairPhase = 0
		a.TargetAssetID = ""
		e.events.Append(now, LevelInfo, "auv",
			fmt.Sprintf("docked at %s after %s mission", a.HomeStationID, prev),
			logging.String("auv", a.ID))
		return
	}

	switch a.Mission {
	case model.MissionInvestigation:
		a.State = model.StateOnSiteScan
		e.events.Append(now, LevelInfo, "auv", "on site, scanning",
			logging.String("auv", a.ID),
			logging.String("asset", a.TargetAssetID),
			logging.Int("kp", a.TargetKP))
	case model.MissionRepair, model.MissionSupport:
		a.State = model.StateOnSiteRepair
		a.RepairPhase = 1
	default:
		// No mission but not home: return to station.
		a.TargetKP = a.HomeKP
		a.State = model.StateTransitHorizontal
	}
}

// finishReporting runs the assessment hook once for a not-yet-confirmed
// segment, then turns the AUV home. A segment already confirmed (or
// further along) is never re-assessed.
func (e *MissionEngine) finishReporting(now float64, a *model.AUVNode) {
	seg, err := e.world.Segment(a.TargetAssetID, a.TargetKP)
	if err == nil && seg.Health <= model.HealthCriticalRisk && e.onAssessment != nil {
		e.onAssessment(now, a, seg)
	}
	a.TargetKP = a.HomeKP
	a.PhaseTimer = 0
	a.State = model.StateTransitHorizontal
}

// stepRepair advances the on-site repair sub-machine and returns the
// tick's power draw. Support vehicles hold station and self-terminate
// once no primary repair AUV remains committed to the same target.
func (e *MissionEngine) stepRepair(now, dt float64, a *model.AUVNode) float64 {
	if a.Mission == model.MissionSupport {
		if !e.primaryCommittedTo(a.TargetAssetID, a.TargetKP) {
			e.events.Append(now, LevelInfo, "auv", "support no longer required, returning home",
				logging.String("auv", a.ID))
			a.TargetKP = a.HomeKP
			a.RepairPhase = 0
			a.PhaseTimer = 0
			a.State = model.StateTransitHorizontal
		}
		return hotelLoadW + repairSupportW
	}

	seg, err := e.world.Segment(a.TargetAssetID, a.TargetKP)
	if err != nil {
		a.TargetKP = a.HomeKP
		a.State = model.StateTransitHorizontal
		return hotelLoadW
	}

	phase := repairPhases[a.RepairPhase-1]
	seg.Health = model.HealthRepairPhase
	seg.RepairPhase = a.RepairPhase
	if seg.Integrity < phase.Floor {
		seg.Integrity = math.Min(phase.Floor, seg.Integrity+integrityClimbPerS*dt)
	}

	a.PhaseTimer += dt
	if a.PhaseTimer >= phase.Duration {
		seg.Integrity = math.Max(seg.Integrity, phase.Floor)
		e.events.Append(now, LevelInfo, "repair",
			fmt.Sprintf("repair phase %d (%s) complete", a.RepairPhase, phase.Name),
			logging.String("auv", a.ID),
			logging.String("asset", seg.AssetID),
			logging.Int("kp", seg.KPStart))
		a.PhaseTimer = 0
		a.RepairPhase++
		if a.RepairPhase > len(repairPhases) {
			a.RepairPhase = len(repairPhases)
			a.State = model.StateReportingRepair
		}
	}
	return hotelLoadW + repairPrimaryW
}

// primaryCommittedTo reports whether a repair-mission AUV is still on the
// way to or working at the given target.
func (e *MissionEngine) primaryCommittedTo(assetID string, kp int) bool {
	for _, other := range e.fleet {
		if other.Mission != model.MissionRepair || other.TargetAssetID != assetID || other.TargetKP != kp {
			continue
		}
		switch other.State {
		case model.StateUndocking, model.StateTransitVertical, model.StateTransitHorizontal, model.StateOnSiteRepair:
			return true
		}
	}
	return false
}
