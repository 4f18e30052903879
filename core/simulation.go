package core

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subseaworks/corridor-simulator/internal/logging"
	"github.com/subseaworks/corridor-simulator/model"
)

// Nominal real-time tick periods: the world tick runs at 2 Hz, the
// mission tick at 10 Hz. Time dilation multiplies the simulated seconds
// each tick represents.
const (
	WorldTickNominalS   = 0.5
	MissionTickNominalS = 0.1

	// MissionTicksPerWorldTick is the interleave ratio used by the
	// deterministic stepper.
	MissionTicksPerWorldTick = 5
)

// MetricsRecorder receives simulation gauges and tick timings. The
// observability package provides the Prometheus-backed implementation.
type MetricsRecorder interface {
	ObserveWorldTick(seconds float64)
	ObserveMissionTick(seconds float64)
	SetWorldGauges(criticalSegments, activeHazards, pendingApprovals, activeIsolations int)
	SetAUVBattery(id string, percent float64)
	IncEvent(level string)
	IncCommand(name, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveWorldTick(float64)          {}
func (noopMetrics) ObserveMissionTick(float64)        {}
func (noopMetrics) SetWorldGauges(_, _, _, _ int)     {}
func (noopMetrics) SetAUVBattery(string, float64)     {}
func (noopMetrics) IncEvent(string)                   {}
func (noopMetrics) IncCommand(string, string)         {}

// Config customises Simulation construction.
type Config struct {
	// Seed drives the assessment planner and isolation spike RNG streams.
	Seed int64

	// Logger receives every event-log entry; nil means no logging.
	Logger logging.Logger

	// Metrics receives gauges and timings; nil means none.
	Metrics MetricsRecorder

	// EventLimit bounds the event ring buffer; zero uses the default.
	EventLimit int

	// Terrain overrides the default synthetic bathymetry.
	Terrain TerrainProfile
}

// Simulation owns the world and all engines. One mutex serialises world
// ticks, mission ticks, commands, and snapshot reads, so every tick is
// atomic and commands never observe or produce mid-tick state.
type Simulation struct {
	mu sync.Mutex

	world     *World
	terrain   TerrainProfile
	events    *EventLog
	planner   *AssessmentPlanner
	isolation *IsolationManager
	approvals *ApprovalGateway
	hazards   *HazardEngine
	sectors   *SectorAggregator
	missions  *MissionEngine

	// activeRepairs remembers the originating recommendation per segment
	// so repair completion knows whether to hand off to reintroduction.
	activeRepairs map[string]model.RepairRecommendation

	simTime  float64
	dilation float64

	metrics MetricsRecorder
}

// NewSimulation builds a fully wired simulation over a fresh world.
func NewSimulation(cfg Config) *Simulation {
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	terrain := cfg.Terrain
	if terrain == nil {
		terrain = NewSyntheticBathymetry()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	s := &Simulation{
		world:         NewWorld(terrain),
		terrain:       terrain,
		events:        NewEventLog(cfg.EventLimit, log),
		planner:       NewAssessmentPlanner(cfg.Seed),
		approvals:     NewApprovalGateway(),
		activeRepairs: make(map[string]model.RepairRecommendation),
		dilation:      1.0,
		metrics:       metrics,
	}
	s.events.SetCounter(metrics.IncEvent)
	s.isolation = NewIsolationManager(s.world, s.events, cfg.Seed+1)
	s.missions = NewMissionEngine(s.world, terrain, s.events)
	s.missions.SetHooks(s.handleAssessment, s.handleRepairComplete)
	s.hazards = NewHazardEngine(s.world, s.events, s.autoDispatch)
	s.sectors = NewSectorAggregator(s.world, s.events, s.autoDispatch)
	return s
}

// Events exposes the event log for subscription and replay.
func (s *Simulation) Events() *EventLog { return s.events }

// SimTime returns the current simulated time in seconds.
func (s *Simulation) SimTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simTime
}

// TimeDilation returns the current dilation factor.
func (s *Simulation) TimeDilation() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dilation
}

// ---- Tick drivers ----

// WorldTick runs one atomic world update: isolation, hazard propagation,
// then sector aggregation, in that order so hazard effects are visible to
// the same tick's aggregation.
func (s *Simulation) WorldTick() {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	dt := WorldTickNominalS * s.dilation
	missionActive := s.missions.AnyMissionActive()

	s.isolation.Tick(s.simTime, dt)
	s.hazards.Tick(s.simTime, missionActive)
	s.sectors.Tick(s.simTime, s.missions.AnyMissionActive())

	s.recordWorldGauges()
	s.metrics.ObserveWorldTick(time.Since(start).Seconds())
}

// MissionTick runs one atomic fleet update and advances simulated time.
func (s *Simulation) MissionTick() {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	dt := MissionTickNominalS * s.dilation
	s.simTime += dt
	s.missions.Tick(s.simTime, dt)

	for _, a := range s.missions.AUVs() {
		s.metrics.SetAUVBattery(a.ID, a.BatteryPercent())
	}
	s.metrics.ObserveMissionTick(time.Since(start).Seconds())
}

// Step advances n world-tick periods deterministically: five mission
// ticks followed by one world tick, repeated. Tests and headless runs use
// this instead of real-time timers.
func (s *Simulation) Step(n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < MissionTicksPerWorldTick; j++ {
			s.MissionTick()
		}
		s.WorldTick()
	}
}

func (s *Simulation) recordWorldGauges() {
	critical := 0
	for _, id := range s.world.AssetIDs() {
		segs, _ := s.world.Segments(id)
		for _, seg := range segs {
			if seg.Health == model.HealthCriticalRisk || seg.Health == model.HealthConfirmedAnomaly {
				critical++
			}
		}
	}
	s.metrics.SetWorldGauges(critical, len(s.world.hazards), s.approvals.Len(), s.isolation.ActiveCount())
}

// ---- Command surface ----

func (s *Simulation) command(name string, err error) error {
	if err != nil {
		s.metrics.IncCommand(name, "rejected")
		return err
	}
	s.metrics.IncCommand(name, "ok")
	return nil
}

// InjectHazard creates an active hazard from wire-format kind and
// severity names. The profile template is value-copied and scaled by the
// severity multiplier at creation.
func (s *Simulation) InjectHazard(kindName, assetID string, kp int, severityName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, err := model.ParseHazardKind(kindName)
	if err != nil {
		return "", s.command("inject_hazard", fmt.Errorf("%w: %v", ErrUnknownHazard, err))
	}
	severity, err := model.ParseHazardSeverity(severityName)
	if err != nil {
		return "", s.command("inject_hazard", fmt.Errorf("%w: %v", ErrUnknownHazard, err))
	}
	if _, err := s.world.Segment(assetID, kp); err != nil {
		return "", s.command("inject_hazard", err)
	}

	profile, _ := model.ProfileFor(kind)
	h := &model.ActiveHazard{
		ID:          uuid.NewString(),
		Kind:        kind,
		AssetID:     assetID,
		EpicentreKP: kp,
		Severity:    severity,
		Profile:     profile.Scaled(severity.Multiplier()),
		InjectedAt:  s.simTime,
	}
	s.world.AddHazard(h)
	s.events.Append(s.simTime, LevelWarning, "hazard",
		fmt.Sprintf("%s hazard injected (severity %s)", kind, severity),
		logging.String("asset", assetID),
		logging.Int("kp", kp),
	)
	return h.ID, s.command("inject_hazard", nil)
}

// DispatchInvestigation launches an investigation AUV from the station of
// the sector responsible for the target kilometre-point.
func (s *Simulation) DispatchInvestigation(assetID string, kp int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.world.Segment(assetID, kp); err != nil {
		return "", s.command("dispatch_investigation", err)
	}
	a := s.dispatchInvestigationLocked(assetID, kp)
	return a.ID, s.command("dispatch_investigation", nil)
}

func (s *Simulation) dispatchInvestigationLocked(assetID string, kp int) *model.AUVNode {
	sector, _ := model.SectorForKP(kp)
	a := s.missions.Acquire(sector)
	s.missions.Launch(s.simTime, a, model.MissionInvestigation, assetID, kp)
	return a
}

// autoDispatch is the engines' investigation hook; callers have already
// validated the target.
func (s *Simulation) autoDispatch(assetID string, kp int) {
	s.dispatchInvestigationLocked(assetID, kp)
}

// ApproveRepair resolves a pending approval and fires the gated repair
// dispatch.
func (s *Simulation) ApproveRepair(pendingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.approvals.Resolve(pendingID)
	if err != nil {
		return s.command("approve_repair", err)
	}
	s.events.Append(s.simTime, LevelInfo, "approval", "repair recommendation approved",
		logging.String("asset", p.AssetID), logging.Int("kp", p.KP))
	s.dispatchRepairLocked(p.Recommendation, p.AssetID, p.KP)
	return s.command("approve_repair", nil)
}

// EscalateShutdown resolves a pending approval terminally: the segment is
// isolated and no repair is dispatched.
func (s *Simulation) EscalateShutdown(pendingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.approvals.Resolve(pendingID)
	if err != nil {
		return s.command("escalate_shutdown", err)
	}
	s.events.Append(s.simTime, LevelCritical, "approval",
		"emergency shutdown escalated, flow halted",
		logging.String("asset", p.AssetID), logging.Int("kp", p.KP))
	_ = s.isolation.Isolate(s.simTime, p.AssetID, p.KP)
	return s.command("escalate_shutdown", nil)
}

// ManualOverride discards a pending recommendation; the segment returns
// to ordinary monitoring and may re-escalate later.
func (s *Simulation) ManualOverride(pendingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.approvals.Resolve(pendingID)
	if err != nil {
		return s.command("manual_override", err)
	}
	s.events.Append(s.simTime, LevelWarning, "approval",
		"recommendation manually overridden, monitoring continues",
		logging.String("asset", p.AssetID), logging.Int("kp", p.KP))
	if seg, segErr := s.world.Segment(p.AssetID, p.KP); segErr == nil {
		seg.Health = model.HealthHealthy
		seg.RepairPhase = 0
	}
	return s.command("manual_override", nil)
}

// AbortMission flags an AUV for return-to-home; the state machine picks
// the abort up at its next tick. Aborting an idle AUV is a no-op.
func (s *Simulation) AbortMission(auvID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.missions.AUV(auvID)
	if err != nil {
		return s.command("abort_mission", err)
	}
	if a.State == model.StateIdle {
		return s.command("abort_mission", nil)
	}
	a.Mission = model.MissionAbort
	s.events.Append(s.simTime, LevelWarning, "auv", "mission abort commanded",
		logging.String("auv", a.ID))
	return s.command("abort_mission", nil)
}

// RecoverAUV retrieves a stranded AUV to its home station.
func (s *Simulation) RecoverAUV(auvID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command("recover_auv", s.missions.RecoverStranded(s.simTime, auvID))
}

// SetTimeDilation changes the simulated-seconds-per-real-second factor.
// The new factor applies from the next tick; in-flight ticks read the
// factor once at entry.
func (s *Simulation) SetTimeDilation(factor float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return s.command("set_time_dilation", fmt.Errorf("%w: %v", ErrInvalidDilation, factor))
	}
	s.dilation = factor
	s.events.Append(s.simTime, LevelInfo, "clock",
		fmt.Sprintf("time dilation set to %.2fx", factor))
	return s.command("set_time_dilation", nil)
}

// ---- Simulation-owned mission policy ----

// handleAssessment runs once per investigation at reporting completion:
// it classifies the anomaly, confirms the segment, and either queues an
// approval or dispatches the repair.
func (s *Simulation) handleAssessment(now float64, a *model.AUVNode, seg *model.SegmentNode) {
	rec := s.planner.Assess(seg.Uncertainty)
	seg.Integrity = rec.Integrity
	seg.IntegrityAssessed = true
	seg.Health = model.HealthConfirmedAnomaly

	s.events.Append(now, LevelWarning, "assessment",
		fmt.Sprintf("anomaly confirmed: severity %s, integrity %.1f%%, repair %s",
			rec.Severity, rec.Integrity, rec.Repair),
		logging.String("auv", a.ID),
		logging.String("asset", seg.AssetID),
		logging.Int("kp", seg.KPStart),
	)

	switch {
	case rec.RequiresApproval:
		p := s.approvals.Enqueue(now, rec, seg.AssetID, seg.KPStart)
		s.events.Append(now, LevelCritical, "approval",
			fmt.Sprintf("human approval required for %s repair (pending %s)", rec.Repair, p.ID),
			logging.String("asset", seg.AssetID),
			logging.Int("kp", seg.KPStart),
		)
	case rec.Repair != model.RepairNone:
		s.dispatchRepairLocked(rec, seg.AssetID, seg.KPStart)
	default:
		// Minor: no repair; the segment returns to monitoring.
		seg.Health = model.HealthHealthy
		s.events.Append(now, LevelInfo, "assessment", "minor anomaly, monitoring continues",
			logging.String("asset", seg.AssetID),
			logging.Int("kp", seg.KPStart))
	}
}

// dispatchRepairLocked launches the repair workflow for a recommendation:
// a primary repair AUV, a support AUV for multi-AUV repairs, and valve
// isolation when required. Callers hold s.mu.
func (s *Simulation) dispatchRepairLocked(rec model.RepairRecommendation, assetID string, kp int) {
	sector, ok := model.SectorForKP(kp)
	if !ok {
		return
	}
	if seg, err := s.world.Segment(assetID, kp); err == nil {
		s.activeRepairs[seg.Key()] = rec
	}
	if rec.RequiresIsolation {
		_ = s.isolation.Isolate(s.simTime, assetID, kp)
	}

	primary := s.missions.Acquire(sector)
	s.missions.Launch(s.simTime, primary, model.MissionRepair, assetID, kp)
	if rec.Repair == model.RepairEmergencyMultiAUV {
		support := s.missions.Acquire(sector)
		s.missions.Launch(s.simTime, support, model.MissionSupport, assetID, kp)
	}
}

// handleRepairComplete finalises a repair at reporting completion. A
// final integrity above the threshold stabilises the segment, clears
// hazards whose epicentre lies within their own radius of the repaired
// point, and hands isolated segments to pressure reintroduction.
func (s *Simulation) handleRepairComplete(now float64, a *model.AUVNode, seg *model.SegmentNode) {
	rec, tracked := s.activeRepairs[seg.Key()]
	delete(s.activeRepairs, seg.Key())

	if seg.Integrity > repairCompleteIntegrity {
		seg.Health = model.HealthRepaired
		seg.RepairPhase = 0
		seg.Uncertainty = repairedUncertainty
		s.events.Append(now, LevelInfo, "repair", "segment repaired and stabilized",
			logging.String("auv", a.ID),
			logging.String("asset", seg.AssetID),
			logging.Int("kp", seg.KPStart))

		for _, h := range s.world.Hazards() {
			if h.AssetID != seg.AssetID {
				continue
			}
			if abs(h.EpicentreKP-seg.KPStart) <= h.Profile.RadiusKP {
				s.world.RemoveHazard(h.ID)
				s.events.Append(now, LevelInfo, "hazard",
					fmt.Sprintf("%s hazard cleared", h.Kind),
					logging.String("asset", h.AssetID),
					logging.Int("kp", h.EpicentreKP))
			}
		}
		s.world.MarkAssetDirty(seg.AssetID)

		if tracked && rec.RequiresIsolation {
			s.isolation.BeginReintroduction(now, seg.AssetID, seg.KPStart)
		}
		return
	}

	seg.Health = model.HealthRepairIncomplete
	seg.RepairPhase = 0
	s.events.Append(now, LevelWarning, "repair",
		fmt.Sprintf("repair incomplete, integrity %.1f%%", seg.Integrity),
		logging.String("auv", a.ID),
		logging.String("asset", seg.AssetID),
		logging.Int("kp", seg.KPStart))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
