package core

import (
	"testing"

	"github.com/subseaworks/corridor-simulator/model"
)

func newTestHazard(kind model.HazardKind, assetID string, kp int, sev model.HazardSeverity) *model.ActiveHazard {
	profile, _ := model.ProfileFor(kind)
	return &model.ActiveHazard{
		ID:          "h-" + kind.String(),
		Kind:        kind,
		AssetID:     assetID,
		EpicentreKP: kp,
		Severity:    sev,
		Profile:     profile.Scaled(sev.Multiplier()),
	}
}

func TestPropagationDecaysWithDistance(t *testing.T) {
	w := newTestWorld()
	events := NewEventLog(16, nil)
	engine := NewHazardEngine(w, events, nil)

	w.AddHazard(newTestHazard(model.HazardGasLeak, "gas", 800, model.SeverityModerate))
	engine.Tick(0, false)

	segs, _ := w.Segments("gas")
	prev := segs[800].Uncertainty
	if prev <= 0 {
		t.Fatalf("epicentre unaffected")
	}
	for off := 1; off <= 25; off++ {
		u := segs[800+off].Uncertainty
		if u >= prev {
			t.Fatalf("uncertainty not strictly decreasing at offset %d: %v >= %v", off, u, prev)
		}
		prev = u
	}
	if segs[800+26].Uncertainty != 0 {
		t.Errorf("segment outside radius affected")
	}
	if segs[799].Uncertainty != segs[801].Uncertainty {
		t.Errorf("decay not symmetric around epicentre")
	}
}

func TestPropagationShiftsChannels(t *testing.T) {
	w := newTestWorld()
	engine := NewHazardEngine(w, NewEventLog(16, nil), nil)

	w.AddHazard(newTestHazard(model.HazardCrudeRupture, "crude", 500, model.SeverityHigh))
	engine.Tick(0, false)

	seg, _ := w.Segment("crude", 500)
	p := seg.Cluster.Channel(model.ChannelPressure)
	if p.Current == p.Baseline {
		t.Errorf("pressure unchanged at epicentre")
	}
	if p.Drift == 0 {
		t.Errorf("drift not recorded")
	}

	if got := w.DrainDirtyAssets(); len(got) != 1 || got[0] != "crude" {
		t.Errorf("dirty assets = %v, want [crude]", got)
	}
}

func TestPropagationClipsCorridorEdge(t *testing.T) {
	w := newTestWorld()
	engine := NewHazardEngine(w, NewEventLog(16, nil), nil)

	w.AddHazard(newTestHazard(model.HazardSeismicEvent, "fiber", 5, model.SeverityModerate))
	// Must not panic on the negative-KP side of the radius.
	engine.Tick(0, false)

	seg, _ := w.Segment("fiber", 0)
	if seg.Uncertainty <= 0 {
		t.Errorf("edge segment inside radius unaffected")
	}
}

func TestUncertaintyClampedToUnit(t *testing.T) {
	w := newTestWorld()
	engine := NewHazardEngine(w, NewEventLog(16, nil), nil)
	w.AddHazard(newTestHazard(model.HazardCableFault, "fiber", 300, model.SeverityCriticalLevel))

	seg, _ := w.Segment("fiber", 300)
	seg.Health = model.HealthCriticalRisk // keep escalation out of the way
	for i := 0; i < 2000; i++ {
		engine.Tick(0, true)
	}
	if seg.Uncertainty != 1 {
		t.Errorf("uncertainty = %v, want clamped to 1", seg.Uncertainty)
	}
}

func TestEscalationDispatchesOnce(t *testing.T) {
	w := newTestWorld()
	events := NewEventLog(64, nil)
	var dispatched []string
	engine := NewHazardEngine(w, events, func(assetID string, kp int) {
		dispatched = append(dispatched, assetID)
	})

	// Two hazards on different assets, both pushed past the threshold
	// before any tick runs, so both escalate on the same tick.
	w.AddHazard(newTestHazard(model.HazardCrudeRupture, "crude", 700, model.SeverityCriticalLevel))
	w.AddHazard(newTestHazard(model.HazardGasLeak, "gas", 900, model.SeverityCriticalLevel))
	crude, _ := w.Segment("crude", 700)
	gasSeg, _ := w.Segment("gas", 900)
	crude.Uncertainty = 0.849
	gasSeg.Uncertainty = 0.849

	engine.Tick(0, false)

	if crude.Health != model.HealthCriticalRisk || gasSeg.Health != model.HealthCriticalRisk {
		t.Fatalf("segments not escalated: %s / %s", crude.Health, gasSeg.Health)
	}
	if len(dispatched) != 1 {
		t.Errorf("dispatch count = %d, want exactly 1", len(dispatched))
	}

	critical := 0
	for _, ev := range events.Recent(0) {
		if ev.Level == LevelCritical {
			critical++
		}
	}
	if critical < 2 {
		t.Errorf("critical events = %d, want one per escalated epicentre", critical)
	}
}

func TestEscalationSuppressedByActiveMission(t *testing.T) {
	w := newTestWorld()
	var dispatched int
	engine := NewHazardEngine(w, NewEventLog(16, nil), func(string, int) { dispatched++ })

	w.AddHazard(newTestHazard(model.HazardTrawlImpact, "condensate", 1200, model.SeverityCriticalLevel))
	seg, _ := w.Segment("condensate", 1200)
	seg.Uncertainty = 0.849

	engine.Tick(0, true)

	if seg.Health != model.HealthCriticalRisk {
		t.Errorf("escalation itself must still happen")
	}
	if dispatched != 0 {
		t.Errorf("dispatch fired despite active mission")
	}
}

func TestEscalationOnlyFromHealthy(t *testing.T) {
	w := newTestWorld()
	var dispatched int
	engine := NewHazardEngine(w, NewEventLog(16, nil), func(string, int) { dispatched++ })

	w.AddHazard(newTestHazard(model.HazardCorrosionBreach, "crude", 50, model.SeverityCriticalLevel))
	seg, _ := w.Segment("crude", 50)
	seg.Uncertainty = 0.9
	seg.Health = model.HealthConfirmedAnomaly

	engine.Tick(0, false)

	if seg.Health != model.HealthConfirmedAnomaly {
		t.Errorf("confirmed segment must not regress to critical-risk")
	}
	if dispatched != 0 {
		t.Errorf("dispatch fired for a non-healthy segment")
	}
}
