package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/subseaworks/corridor-simulator/model"
)

func newTestSimulation(seed int64) *Simulation {
	return NewSimulation(Config{Seed: seed})
}

func TestInjectHazardValidation(t *testing.T) {
	s := newTestSimulation(1)

	if _, err := s.InjectHazard("kraken_attack", "gas", 500, "high"); !errors.Is(err, ErrUnknownHazard) {
		t.Errorf("unknown kind error = %v", err)
	}
	if _, err := s.InjectHazard("gas_leak", "gas", 500, "apocalyptic"); !errors.Is(err, ErrUnknownHazard) {
		t.Errorf("unknown severity error = %v", err)
	}
	if _, err := s.InjectHazard("gas_leak", "helium", 500, "high"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("unknown asset error = %v", err)
	}
	if _, err := s.InjectHazard("gas_leak", "gas", 2000, "high"); !errors.Is(err, ErrKPOutOfRange) {
		t.Errorf("out-of-range kp error = %v", err)
	}

	id, err := s.InjectHazard("gas_leak", "gas", 500, "high")
	if err != nil {
		t.Fatal(err)
	}
	hs := s.HazardSnapshots()
	if len(hs) != 1 || hs[0].ID != id {
		t.Fatalf("hazard snapshots = %+v", hs)
	}
	if hs[0].Kind != "gas_leak" || hs[0].Severity != "high" || hs[0].RadiusKP != 25 {
		t.Errorf("hazard snapshot = %+v", hs[0])
	}
}

func TestStepAdvancesSimTime(t *testing.T) {
	s := newTestSimulation(1)
	s.Step(2)
	want := 2 * MissionTicksPerWorldTick * MissionTickNominalS
	if got := s.SimTime(); got < want-1e-9 || got > want+1e-9 {
		t.Errorf("sim time = %v, want %v", got, want)
	}
}

func TestSetTimeDilation(t *testing.T) {
	s := newTestSimulation(1)

	for _, bad := range []float64{0, -2} {
		if err := s.SetTimeDilation(bad); !errors.Is(err, ErrInvalidDilation) {
			t.Errorf("dilation %v error = %v", bad, err)
		}
	}
	if err := s.SetTimeDilation(2.5); err != nil {
		t.Fatal(err)
	}
	if s.TimeDilation() != 2.5 {
		t.Errorf("dilation = %v", s.TimeDilation())
	}

	before := s.SimTime()
	s.MissionTick()
	if got := s.SimTime() - before; got < 0.25-1e-9 || got > 0.25+1e-9 {
		t.Errorf("dilated mission tick advanced %v, want 0.25", got)
	}
}

func TestDispatchInvestigationCommand(t *testing.T) {
	s := newTestSimulation(1)

	if _, err := s.DispatchInvestigation("helium", 500); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("unknown asset error = %v", err)
	}

	id, err := s.DispatchInvestigation("gas", 500)
	if err != nil {
		t.Fatal(err)
	}
	if id != "auv-b-1" {
		t.Errorf("dispatched %q, want the sector B vehicle", id)
	}
	auvs := s.AUVSnapshots()
	if len(auvs) != 1 || auvs[0].Mission != "investigation" || auvs[0].StationID != "station-b" {
		t.Errorf("fleet = %+v", auvs)
	}
}

func TestEscalationAutoDispatchesFromResponsibleStation(t *testing.T) {
	s := newTestSimulation(1)

	if _, err := s.InjectHazard("gas_leak", "gas", 500, "critical"); err != nil {
		t.Fatal(err)
	}
	seg, _ := s.world.Segment("gas", 500)
	seg.Uncertainty = 0.849

	s.Step(1)

	if seg.Health != model.HealthCriticalRisk {
		t.Fatalf("segment health = %s, want critical-risk", seg.Health)
	}
	auvs := s.AUVSnapshots()
	if len(auvs) != 1 {
		t.Fatalf("fleet size = %d, want 1", len(auvs))
	}
	if auvs[0].StationID != "station-b" || auvs[0].Mission != "investigation" {
		t.Errorf("auto-dispatch = %+v", auvs[0])
	}
	if auvs[0].TargetKP != 500 {
		t.Errorf("target kp = %d, want 500", auvs[0].TargetKP)
	}
}

// queueCriticalApproval drives the assessment path for a segment whose
// uncertainty guarantees the critical band, returning the pending entry.
func queueCriticalApproval(t *testing.T, s *Simulation, assetID string, kp int) ApprovalSnapshot {
	t.Helper()
	seg, err := s.world.Segment(assetID, kp)
	if err != nil {
		t.Fatal(err)
	}
	seg.Uncertainty = 0.95
	seg.Health = model.HealthCriticalRisk

	sector, _ := model.SectorForKP(kp)
	scout := s.missions.Acquire(sector)
	s.handleAssessment(s.simTime, scout, seg)

	pending := s.PendingApprovals()
	if len(pending) != 1 {
		t.Fatalf("pending approvals = %d, want 1", len(pending))
	}
	p := pending[0]
	if !p.RequiresIsolation || p.Repair != "emergency-multi-auv" {
		t.Fatalf("queued approval = %+v", p)
	}
	return p
}

func TestCriticalRepairWaitsForApproval(t *testing.T) {
	s := newTestSimulation(1)
	p := queueCriticalApproval(t, s, "gas", 705)

	// Nothing launches while the decision is pending.
	s.Step(3)
	for _, a := range s.AUVSnapshots() {
		if a.Mission == "repair" || a.Mission == "support" {
			t.Fatalf("repair launched before approval: %+v", a)
		}
	}
	if got := s.PendingApprovals(); len(got) != 1 || got[0].ID != p.ID {
		t.Fatalf("pending entry lost: %+v", got)
	}

	if err := s.ApproveRepair(p.ID); err != nil {
		t.Fatal(err)
	}
	var repairs, supports int
	for _, a := range s.AUVSnapshots() {
		switch a.Mission {
		case "repair":
			repairs++
		case "support":
			supports++
		}
	}
	if repairs != 1 || supports != 1 {
		t.Errorf("multi-AUV dispatch: %d repair, %d support", repairs, supports)
	}
	if !s.isolation.IsIsolated("gas", 705) {
		t.Errorf("segment not isolated on approval")
	}
	if err := s.ApproveRepair(p.ID); !errors.Is(err, ErrPendingNotFound) {
		t.Errorf("double approval error = %v", err)
	}
}

func TestEscalateShutdownIsolatesWithoutRepair(t *testing.T) {
	s := newTestSimulation(1)
	p := queueCriticalApproval(t, s, "crude", 400)

	if err := s.EscalateShutdown(p.ID); err != nil {
		t.Fatal(err)
	}
	if !s.isolation.IsIsolated("crude", 400) {
		t.Errorf("segment not isolated on shutdown")
	}
	for _, a := range s.AUVSnapshots() {
		if a.Mission == "repair" || a.Mission == "support" {
			t.Errorf("shutdown launched a repair: %+v", a)
		}
	}
	if s.approvals.Len() != 0 {
		t.Errorf("pending entry not consumed")
	}
}

func TestManualOverrideResumesMonitoring(t *testing.T) {
	s := newTestSimulation(1)
	p := queueCriticalApproval(t, s, "condensate", 1200)

	if err := s.ManualOverride(p.ID); err != nil {
		t.Fatal(err)
	}
	seg, _ := s.world.Segment("condensate", 1200)
	if seg.Health != model.HealthHealthy {
		t.Errorf("overridden segment health = %s, want healthy", seg.Health)
	}
	if s.isolation.IsIsolated("condensate", 1200) {
		t.Errorf("override must not isolate")
	}
}

func TestMinorAssessmentResumesMonitoring(t *testing.T) {
	s := newTestSimulation(1)
	seg, _ := s.world.Segment("fiber", 300)
	seg.Uncertainty = 0.1 // minor band, no repair
	seg.Health = model.HealthCriticalRisk

	scout := s.missions.Acquire(model.Sectors[0])
	s.handleAssessment(0, scout, seg)

	if seg.Health != model.HealthHealthy {
		t.Errorf("minor anomaly health = %s, want healthy", seg.Health)
	}
	if !seg.IntegrityAssessed || seg.Integrity < 86 {
		t.Errorf("integrity not recorded: %v", seg.Integrity)
	}
	if s.approvals.Len() != 0 {
		t.Errorf("minor assessment queued an approval")
	}
}

func TestFullRepairCycle(t *testing.T) {
	s := newTestSimulation(1)
	if err := s.SetTimeDilation(100); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InjectHazard("gas_leak", "gas", 705, "moderate"); err != nil {
		t.Fatal(err)
	}

	seg, _ := s.world.Segment("gas", 705)
	seg.Uncertainty = 0.7 // severe band: isolation-structural, no approval
	seg.Health = model.HealthCriticalRisk

	scout := s.missions.Acquire(model.Sectors[1])
	s.handleAssessment(s.simTime, scout, seg)

	if seg.Health != model.HealthConfirmedAnomaly {
		t.Fatalf("health after assessment = %s", seg.Health)
	}
	if !s.isolation.IsIsolated("gas", 705) {
		t.Fatalf("severe repair did not isolate")
	}
	var repair AUVTelemetry
	for _, a := range s.AUVSnapshots() {
		if a.Mission == "repair" {
			repair = a
		}
	}
	if repair.ID == "" {
		t.Fatalf("no repair vehicle launched")
	}

	for i := 0; i < 300 && seg.Health != model.HealthRepaired; i++ {
		s.Step(1)
	}
	if seg.Health != model.HealthRepaired {
		t.Fatalf("repair never completed, health = %s", seg.Health)
	}
	if seg.Integrity <= repairCompleteIntegrity {
		t.Errorf("final integrity = %v", seg.Integrity)
	}
	if seg.Uncertainty != repairedUncertainty {
		t.Errorf("uncertainty = %v, want reset to %v", seg.Uncertainty, repairedUncertainty)
	}
	if len(s.HazardSnapshots()) != 0 {
		t.Errorf("in-radius hazard not cleared on repair")
	}

	// Pressure reintroduction follows; a spike mid-climb re-isolates and
	// is restarted so the test stays seed-independent.
	for i := 0; i < 300 && s.isolation.IsIsolated("gas", 705); i++ {
		s.Step(1)
		if seg.Isolation == model.IsolationIsolating {
			s.isolation.BeginReintroduction(s.simTime, "gas", 705)
		}
	}
	if s.isolation.IsIsolated("gas", 705) {
		t.Fatalf("reintroduction never released")
	}
	p := seg.Cluster.Channel(model.ChannelPressure)
	if p.Current != p.Baseline {
		t.Errorf("pressure = %v, want baseline %v", p.Current, p.Baseline)
	}

	// The fleet winds down to idle at its stations.
	for i := 0; i < 300 && s.missions.AnyMissionActive(); i++ {
		s.Step(1)
	}
	for _, a := range s.AUVSnapshots() {
		if a.State != model.StateIdle.String() && a.State != model.StateStranded.String() {
			t.Errorf("vehicle %s still %s", a.ID, a.State)
		}
	}
}

func TestRepairIncompleteBelowThreshold(t *testing.T) {
	s := newTestSimulation(1)
	seg, _ := s.world.Segment("crude", 100)
	seg.Integrity = 80
	seg.Health = model.HealthRepairPhase
	seg.RepairPhase = 6

	scout := s.missions.Acquire(model.Sectors[0])
	s.handleRepairComplete(0, scout, seg)

	if seg.Health != model.HealthRepairIncomplete {
		t.Errorf("health = %s, want repair-incomplete", seg.Health)
	}
	if seg.RepairPhase != 0 {
		t.Errorf("repair phase not cleared")
	}
}

func TestAbortAndRecoverCommands(t *testing.T) {
	s := newTestSimulation(1)

	if err := s.AbortMission("auv-z-1"); !errors.Is(err, ErrUnknownAUV) {
		t.Errorf("abort unknown error = %v", err)
	}
	if err := s.RecoverAUV("auv-z-1"); !errors.Is(err, ErrUnknownAUV) {
		t.Errorf("recover unknown error = %v", err)
	}

	id, err := s.DispatchInvestigation("gas", 500)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecoverAUV(id); !errors.Is(err, ErrAUVNotStranded) {
		t.Errorf("recover active error = %v", err)
	}
	if err := s.AbortMission(id); err != nil {
		t.Fatal(err)
	}
	a, _ := s.missions.AUV(id)
	if a.Mission != model.MissionAbort {
		t.Errorf("mission = %s after abort command", a.Mission)
	}
}

type recordingMetrics struct {
	worldTicks, missionTicks int
	commands                 []string
	gaugeCalls               int
}

func (m *recordingMetrics) ObserveWorldTick(float64)      { m.worldTicks++ }
func (m *recordingMetrics) ObserveMissionTick(float64)    { m.missionTicks++ }
func (m *recordingMetrics) SetWorldGauges(_, _, _, _ int) { m.gaugeCalls++ }
func (m *recordingMetrics) SetAUVBattery(string, float64) {}
func (m *recordingMetrics) IncEvent(string)               {}
func (m *recordingMetrics) IncCommand(name, outcome string) {
	m.commands = append(m.commands, name+":"+outcome)
}

func TestMetricsRecorderWiring(t *testing.T) {
	rec := &recordingMetrics{}
	s := NewSimulation(Config{Seed: 1, Metrics: rec})

	s.Step(1)
	if rec.worldTicks != 1 || rec.missionTicks != MissionTicksPerWorldTick {
		t.Errorf("tick observations = %d world, %d mission", rec.worldTicks, rec.missionTicks)
	}
	if rec.gaugeCalls != 1 {
		t.Errorf("gauge updates = %d", rec.gaugeCalls)
	}

	if _, err := s.InjectHazard("gas_leak", "helium", 10, "low"); err == nil {
		t.Fatal("expected rejection")
	}
	if _, err := s.InjectHazard("gas_leak", "gas", 10, "low"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(rec.commands, ",")
	if !strings.Contains(joined, "inject_hazard:rejected") || !strings.Contains(joined, "inject_hazard:ok") {
		t.Errorf("command outcomes = %v", rec.commands)
	}
}
