package core

import (
	"math/rand"
	"sort"

	"github.com/subseaworks/corridor-simulator/internal/logging"
	"github.com/subseaworks/corridor-simulator/model"
)

// Isolation dynamics in pressure units (bar) per simulated second, plus
// the per-tick chance of an abnormal spike during reintroduction.
const (
	isolationDecayRate = 1.5
	reintroClimbRate   = 0.8
	reintroSpikeProb   = 0.004
)

// isolationEntry tracks one isolated segment's valve sub-machine.
type isolationEntry struct {
	assetID  string
	kp       int
	baseline float64
}

// IsolationManager simulates valve isolation and pressure reintroduction
// per segment. It mutates only the segment's pressure channel and the
// isolation sub-state; the owning Simulation drives Tick inside the world
// tick, before hazard propagation.
type IsolationManager struct {
	world  *World
	events *EventLog
	rng    *rand.Rand

	active map[string]*isolationEntry
}

// NewIsolationManager creates a manager with a dedicated RNG stream for
// spike rolls.
func NewIsolationManager(w *World, events *EventLog, seed int64) *IsolationManager {
	return &IsolationManager{
		world:  w,
		events: events,
		rng:    rand.New(rand.NewSource(seed)),
		active: make(map[string]*isolationEntry),
	}
}

// Isolate begins valve closure for a segment. Re-isolating an already
// active segment resets it to the isolating phase.
func (m *IsolationManager) Isolate(now float64, assetID string, kp int) error {
	seg, err := m.world.Segment(assetID, kp)
	if err != nil {
		return err
	}
	key := seg.Key()
	if _, ok := m.active[key]; !ok {
		m.active[key] = &isolationEntry{
			assetID:  assetID,
			kp:       kp,
			baseline: seg.Cluster.Channel(model.ChannelPressure).Baseline,
		}
	}
	seg.Isolation = model.IsolationIsolating
	m.events.Append(now, LevelWarning, "isolation", "segment isolation engaged",
		logging.String("asset", assetID), logging.Int("kp", kp))
	return nil
}

// BeginReintroduction switches an isolated segment to pressure climb.
// A segment that was never isolated is ignored.
func (m *IsolationManager) BeginReintroduction(now float64, assetID string, kp int) {
	seg, err := m.world.Segment(assetID, kp)
	if err != nil {
		return
	}
	if _, ok := m.active[seg.Key()]; !ok {
		return
	}
	seg.Isolation = model.IsolationReintroducing
	m.events.Append(now, LevelInfo, "isolation", "pressure reintroduction started",
		logging.String("asset", assetID), logging.Int("kp", kp))
}

// IsIsolated reports whether a segment is in the active-isolations set.
func (m *IsolationManager) IsIsolated(assetID string, kp int) bool {
	seg, err := m.world.Segment(assetID, kp)
	if err != nil {
		return false
	}
	_, ok := m.active[seg.Key()]
	return ok
}

// ActiveCount returns the number of segments currently isolated.
func (m *IsolationManager) ActiveCount() int { return len(m.active) }

// Tick advances every active isolation by dtSim simulated seconds.
func (m *IsolationManager) Tick(now, dtSim float64) {
	// Deterministic iteration order so spike rolls reproduce per seed.
	keys := make([]string, 0, len(m.active))
	for k := range m.active {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry := m.active[key]
		seg, err := m.world.Segment(entry.assetID, entry.kp)
		if err != nil {
			delete(m.active, key)
			continue
		}
		pressure := seg.Cluster.Channel(model.ChannelPressure)

		switch seg.Isolation {
		case model.IsolationIsolating:
			pressure.Current -= isolationDecayRate * dtSim
			if pressure.Current < 0 {
				pressure.Current = 0
			}

		case model.IsolationReintroducing:
			if m.rng.Float64() < reintroSpikeProb {
				// Abnormal spike: abort reintroduction and close the
				// valves again.
				pressure.Current = entry.baseline * 1.18
				seg.Isolation = model.IsolationIsolating
				m.events.Append(now, LevelWarning, "isolation",
					"abnormal pressure spike, re-isolating",
					logging.String("asset", entry.assetID), logging.Int("kp", entry.kp))
				continue
			}
			pressure.Current += reintroClimbRate * dtSim
			if pressure.Current >= entry.baseline {
				pressure.Current = entry.baseline
				seg.Isolation = model.IsolationNone
				delete(m.active, key)
				m.events.Append(now, LevelInfo, "isolation",
					"pressure restored to baseline, isolation released",
					logging.String("asset", entry.assetID), logging.Int("kp", entry.kp))
			}

		default:
			// Segment left the sub-machine through external state; drop it.
			delete(m.active, key)
		}
	}
}
