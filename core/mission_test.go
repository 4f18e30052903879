package core

import (
	"errors"
	"testing"

	"github.com/subseaworks/corridor-simulator/model"
)

func newTestMissionEngine() (*World, *MissionEngine, *EventLog) {
	w := newTestWorld()
	events := NewEventLog(256, nil)
	return w, NewMissionEngine(w, NewSyntheticBathymetry(), events), events
}

func TestAcquireCreatesAndReuses(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	sectorB := model.Sectors[1]

	a := e.Acquire(sectorB)
	if a.ID != "auv-b-1" {
		t.Errorf("first vehicle ID = %q", a.ID)
	}
	if a.HomeStationID != "station-b" || a.CurrentKP != 700 || a.DepthM != 0 {
		t.Errorf("vehicle not docked at station: %+v", a)
	}
	if a.BatteryJ != BatteryCapacityJ {
		t.Errorf("new vehicle not fully charged")
	}

	// Idle and charged: reused.
	if got := e.Acquire(sectorB); got != a {
		t.Errorf("idle vehicle not reused")
	}

	// Committed: a second vehicle is created.
	a.State = model.StateUndocking
	b := e.Acquire(sectorB)
	if b == a || b.ID != "auv-b-2" {
		t.Errorf("second vehicle = %+v", b)
	}

	// Low battery excludes a vehicle from reuse.
	a.State = model.StateIdle
	a.BatteryJ = BatteryCapacityJ * 0.2
	b.State = model.StateUndocking
	c := e.Acquire(sectorB)
	if c == a || c.ID != "auv-b-3" {
		t.Errorf("low-battery vehicle reused: %+v", c)
	}
}

func TestUndockTimingAndDraw(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	a := e.Acquire(model.Sectors[0])
	e.Launch(0, a, model.MissionInvestigation, "crude", 200)

	if a.State != model.StateUndocking {
		t.Fatalf("state after launch = %s", a.State)
	}

	e.Tick(0, 30)
	if a.State != model.StateUndocking {
		t.Errorf("undock finished early")
	}
	want := BatteryCapacityJ - (hotelLoadW+undockExtraW)*30
	if a.BatteryJ != want {
		t.Errorf("battery = %v, want %v", a.BatteryJ, want)
	}

	e.Tick(0, 30)
	if a.State != model.StateTransitVertical {
		t.Errorf("state after 60s = %s, want TRANSIT_VERTICAL", a.State)
	}
}

func TestVerticalTransitReachesSeabed(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	terrain := NewSyntheticBathymetry()
	a := e.Acquire(model.Sectors[1])
	e.Launch(0, a, model.MissionInvestigation, "gas", 710)
	e.Tick(0, 60) // undock

	seabed := terrain.DepthAt(a.CurrentKP)
	e.Tick(0, 10)
	if a.DepthM != 10 {
		t.Errorf("depth after 10s = %v, want 10", a.DepthM)
	}
	if a.VerticalSpeedMS != verticalSpeedMS {
		t.Errorf("vertical speed = %v", a.VerticalSpeedMS)
	}

	e.Tick(0, seabed*2)
	if a.DepthM != seabed {
		t.Errorf("depth = %v, want seabed %v", a.DepthM, seabed)
	}
	if a.State != model.StateTransitHorizontal {
		t.Errorf("state = %s, want TRANSIT_HORIZONTAL", a.State)
	}
}

// driveTo runs ticks until the AUV reaches the wanted state or the tick
// budget runs out.
func driveTo(t *testing.T, e *MissionEngine, a *model.AUVNode, want model.MissionState, dt float64, maxTicks int) {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		if a.State == want {
			return
		}
		e.Tick(0, dt)
	}
	if a.State != want {
		t.Fatalf("never reached %s, stuck in %s", want, a.State)
	}
}

func TestInvestigationArrivalAndScan(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	a := e.Acquire(model.Sectors[1])
	e.Launch(0, a, model.MissionInvestigation, "gas", 705)

	driveTo(t, e, a, model.StateOnSiteScan, 120, 60)
	if a.CurrentKP != 705 {
		t.Errorf("arrived at kp %v, want 705", a.CurrentKP)
	}

	driveTo(t, e, a, model.StateReporting, 120, 10)
	driveTo(t, e, a, model.StateTransitHorizontal, 120, 10)
	if a.TargetKP != a.HomeKP {
		t.Errorf("reporting did not turn the vehicle home")
	}
}

func TestAssessmentHookFiresOnceForUnconfirmedSegment(t *testing.T) {
	w, e, _ := newTestMissionEngine()
	var calls int
	e.SetHooks(func(now float64, a *model.AUVNode, seg *model.SegmentNode) {
		calls++
		seg.Health = model.HealthConfirmedAnomaly
	}, nil)

	a := e.Acquire(model.Sectors[1])
	e.Launch(0, a, model.MissionInvestigation, "gas", 705)
	driveTo(t, e, a, model.StateIdle, 120, 120)

	if calls != 1 {
		t.Fatalf("assessment hook calls = %d, want 1", calls)
	}

	// A second investigation of the now-confirmed segment reports without
	// re-assessing.
	seg, _ := w.Segment("gas", 705)
	if seg.Health != model.HealthConfirmedAnomaly {
		t.Fatalf("segment health = %s", seg.Health)
	}
	a.BatteryJ = BatteryCapacityJ
	e.Launch(0, a, model.MissionInvestigation, "gas", 705)
	driveTo(t, e, a, model.StateIdle, 120, 120)
	if calls != 1 {
		t.Errorf("confirmed segment re-assessed")
	}
}

func TestIdleRechargeSaturates(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	a := e.Acquire(model.Sectors[2])
	a.BatteryJ = BatteryCapacityJ - 1000

	e.Tick(0, 1)
	if a.BatteryJ != BatteryCapacityJ {
		t.Errorf("battery = %v, want saturated at capacity", a.BatteryJ)
	}
}

func TestBatteryDepletionStrands(t *testing.T) {
	_, e, events := newTestMissionEngine()
	a := e.Acquire(model.Sectors[0])
	e.Launch(0, a, model.MissionInvestigation, "crude", 200)
	a.BatteryJ = 100

	e.Tick(0, 1)
	if a.State != model.StateStranded {
		t.Fatalf("state = %s, want STRANDED", a.State)
	}
	if a.BatteryJ != 0 {
		t.Errorf("battery = %v, want saturated at 0", a.BatteryJ)
	}

	// Stranded is terminal under ticks.
	e.Tick(0, 100)
	if a.State != model.StateStranded || a.BatteryJ != 0 {
		t.Errorf("stranded vehicle moved: %s battery %v", a.State, a.BatteryJ)
	}

	found := false
	for _, ev := range events.Recent(0) {
		if ev.Level == LevelCritical && ev.AUVID == a.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("no critical stranding event")
	}
}

func TestRecoverStranded(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	a := e.Acquire(model.Sectors[0])

	if err := e.RecoverStranded(0, a.ID); !errors.Is(err, ErrAUVNotStranded) {
		t.Errorf("recovering an idle vehicle: %v", err)
	}
	if err := e.RecoverStranded(0, "auv-x-9"); !errors.Is(err, ErrUnknownAUV) {
		t.Errorf("recovering unknown vehicle: %v", err)
	}

	e.Launch(0, a, model.MissionInvestigation, "crude", 340)
	a.BatteryJ = 1
	e.Tick(0, 1)

	if err := e.RecoverStranded(0, a.ID); err != nil {
		t.Fatal(err)
	}
	if a.State != model.StateIdle || a.CurrentKP != float64(a.HomeKP) || a.DepthM != 0 {
		t.Errorf("recovered vehicle not docked: %+v", a)
	}
	if got := a.BatteryPercent(); got < 19.99 || got > 20.01 {
		t.Errorf("recovered charge = %v%%, want 20%%", got)
	}
}

func TestAbortTurnsHomeImmediately(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	a := e.Acquire(model.Sectors[1])
	e.Launch(0, a, model.MissionInvestigation, "gas", 705)
	driveTo(t, e, a, model.StateOnSiteScan, 120, 60)

	a.Mission = model.MissionAbort
	e.Tick(0, 1)
	if a.State != model.StateTransitHorizontal || a.TargetKP != a.HomeKP {
		t.Fatalf("abort did not turn home: %s toward %d", a.State, a.TargetKP)
	}

	driveTo(t, e, a, model.StateIdle, 120, 60)
	if a.Mission != model.MissionNone {
		t.Errorf("mission = %s after docking", a.Mission)
	}
}

func TestRepairPhasesRaiseIntegrity(t *testing.T) {
	w, e, _ := newTestMissionEngine()
	var completed int
	e.SetHooks(nil, func(now float64, a *model.AUVNode, seg *model.SegmentNode) { completed++ })

	seg, _ := w.Segment("gas", 705)
	seg.Health = model.HealthConfirmedAnomaly
	seg.Integrity = 42
	seg.IntegrityAssessed = true

	a := e.Acquire(model.Sectors[1])
	e.Launch(0, a, model.MissionRepair, "gas", 705)
	driveTo(t, e, a, model.StateOnSiteRepair, 120, 60)

	if a.RepairPhase != 1 {
		t.Fatalf("repair phase = %d on arrival", a.RepairPhase)
	}

	// Mid-phase: the segment mirrors the vehicle's phase and climbs
	// toward the floor.
	e.Tick(0, 10)
	if seg.Health != model.HealthRepairPhase || seg.RepairPhase != a.RepairPhase {
		t.Errorf("segment not tracking repair: %s phase %d", seg.HealthLabel(), seg.RepairPhase)
	}
	e.Tick(0, 20) // phase 1 boundary
	if seg.Integrity < repairPhases[0].Floor {
		t.Errorf("integrity %v below phase 1 floor %v", seg.Integrity, repairPhases[0].Floor)
	}

	driveTo(t, e, a, model.StateReportingRepair, 10, 100)
	if seg.Integrity < repairPhases[5].Floor {
		t.Errorf("final integrity %v below last floor %v", seg.Integrity, repairPhases[5].Floor)
	}

	driveTo(t, e, a, model.StateTransitHorizontal, 10, 20)
	if completed != 1 {
		t.Errorf("completion hook calls = %d, want 1", completed)
	}
	driveTo(t, e, a, model.StateIdle, 120, 60)
}

func TestSupportReturnsWhenPrimaryDone(t *testing.T) {
	_, e, _ := newTestMissionEngine()
	sectorB := model.Sectors[1]

	primary := e.Acquire(sectorB)
	e.Launch(0, primary, model.MissionRepair, "gas", 705)
	support := e.Acquire(sectorB)
	e.Launch(0, support, model.MissionSupport, "gas", 705)

	driveTo(t, e, primary, model.StateOnSiteRepair, 120, 60)
	if support.State == model.StateIdle {
		t.Fatalf("support never launched")
	}

	// While the primary works the site, the support holds.
	e.Tick(0, 10)
	if support.State == model.StateTransitHorizontal && support.TargetKP == support.HomeKP {
		t.Fatalf("support left while primary still on site")
	}

	// Run the primary through completion and home; the support must then
	// turn back on its own.
	for i := 0; i < 300 && support.MissionActive(); i++ {
		e.Tick(0, 10)
	}
	if support.MissionActive() {
		t.Errorf("support never self-terminated: %s", support.State)
	}
}
