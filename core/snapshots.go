package core

import (
	"math"

	"github.com/subseaworks/corridor-simulator/model"
)

// ChannelSnapshot is one sensor channel's current readings.
type ChannelSnapshot struct {
	Name     string  `json:"name"`
	Baseline float64 `json:"baseline"`
	Current  float64 `json:"current"`
	Noise    float64 `json:"noise"`
	Drift    float64 `json:"drift"`
}

// SegmentSnapshot is the read-only per-segment view served to the
// rendering and UI layers.
type SegmentSnapshot struct {
	AssetID     string            `json:"asset_id"`
	AssetClass  string            `json:"asset_class"`
	KP          int               `json:"kp"`
	LatDeg      float64           `json:"lat_deg"`
	LonDeg      float64           `json:"lon_deg"`
	DepthM      float64           `json:"depth_m"`
	Health      string            `json:"health"`
	Uncertainty float64           `json:"uncertainty"`
	Integrity   *float64          `json:"integrity,omitempty"`
	Isolation   string            `json:"isolation,omitempty"`
	Sensors     []ChannelSnapshot `json:"sensors"`
}

// SectorSnapshot is the derived per-sector view.
type SectorSnapshot struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	KPFrom             int     `json:"kp_from"`
	KPTo               int     `json:"kp_to"`
	StationID          string  `json:"station_id"`
	StabilityIndex     float64 `json:"stability_index"`
	AggregatedVariance float64 `json:"aggregated_variance"`
}

// AUVTelemetry is the per-vehicle observation record, including derived
// distance and ETA to the current target.
type AUVTelemetry struct {
	ID                string  `json:"id"`
	StationID         string  `json:"station_id"`
	State             string  `json:"state"`
	Mission           string  `json:"mission"`
	RepairPhase       int     `json:"repair_phase,omitempty"`
	BatteryPercent    float64 `json:"battery_percent"`
	CurrentKP         float64 `json:"current_kp"`
	TargetKP          int     `json:"target_kp"`
	TargetAssetID     string  `json:"target_asset_id,omitempty"`
	DepthM            float64 `json:"depth_m"`
	SpeedMS           float64 `json:"speed_ms"`
	DistanceToTargetM float64 `json:"distance_to_target_m"`
	ETASeconds        float64 `json:"eta_seconds"`
}

// ApprovalSnapshot is one pending decision for the operator UI.
type ApprovalSnapshot struct {
	ID                string   `json:"id"`
	AssetID           string   `json:"asset_id"`
	KP                int      `json:"kp"`
	Severity          string   `json:"severity"`
	Repair            string   `json:"repair"`
	RequiresIsolation bool     `json:"requires_isolation"`
	Tools             []string `json:"tools,omitempty"`
	EstimatedDuration float64  `json:"estimated_duration_s"`
	PendingSince      float64  `json:"pending_since"`
}

// HazardSnapshot is one active hazard.
type HazardSnapshot struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	AssetID     string  `json:"asset_id"`
	EpicentreKP int     `json:"epicentre_kp"`
	Severity    string  `json:"severity"`
	RadiusKP    int     `json:"radius_kp"`
	InjectedAt  float64 `json:"injected_at"`
}

// SegmentSnapshots returns snapshots for one asset in [from, to). The
// range is clipped to the corridor.
func (s *Simulation) SegmentSnapshots(assetID string, from, to int) ([]SegmentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	segs, err := s.world.Segments(assetID)
	if err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}
	if to <= 0 || to > CorridorLengthKP {
		to = CorridorLengthKP
	}
	if from >= to {
		return []SegmentSnapshot{}, nil
	}

	out := make([]SegmentSnapshot, 0, to-from)
	for kp := from; kp < to; kp++ {
		out = append(out, snapshotSegment(segs[kp]))
	}
	return out, nil
}

// SegmentSnapshot returns the snapshot of a single segment.
func (s *Simulation) SegmentSnapshot(assetID string, kp int) (SegmentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, err := s.world.Segment(assetID, kp)
	if err != nil {
		return SegmentSnapshot{}, err
	}
	return snapshotSegment(seg), nil
}

func snapshotSegment(seg *model.SegmentNode) SegmentSnapshot {
	snap := SegmentSnapshot{
		AssetID:     seg.AssetID,
		AssetClass:  seg.AssetClass.String(),
		KP:          seg.KPStart,
		LatDeg:      seg.Position.LatDeg,
		LonDeg:      seg.Position.LonDeg,
		DepthM:      seg.DepthM,
		Health:      seg.HealthLabel(),
		Uncertainty: seg.Uncertainty,
		Sensors:     make([]ChannelSnapshot, 0, model.NumChannels),
	}
	if seg.IntegrityAssessed {
		v := seg.Integrity
		snap.Integrity = &v
	}
	if seg.Isolation != model.IsolationNone {
		snap.Isolation = seg.Isolation.String()
	}
	for ch := 0; ch < model.NumChannels; ch++ {
		c := seg.Cluster.Channels[ch]
		snap.Sensors = append(snap.Sensors, ChannelSnapshot{
			Name:     model.ChannelKind(ch).String(),
			Baseline: c.Baseline,
			Current:  c.Current,
			Noise:    c.Noise,
			Drift:    c.Drift,
		})
	}
	return snap
}

// SectorSnapshots returns the four derived sector views.
func (s *Simulation) SectorSnapshots() []SectorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.world.SectorData()
	out := make([]SectorSnapshot, 0, len(data))
	for _, sec := range data {
		out = append(out, SectorSnapshot{
			ID:                 sec.ID,
			Name:               sec.Name,
			KPFrom:             sec.KPFrom,
			KPTo:               sec.KPTo,
			StationID:          sec.StationID,
			StabilityIndex:     sec.StabilityIndex,
			AggregatedVariance: sec.AggregatedVariance,
		})
	}
	return out
}

// AUVSnapshots returns fleet telemetry sorted by vehicle ID.
func (s *Simulation) AUVSnapshots() []AUVTelemetry {
	s.mu.Lock()
	defer s.mu.Unlock()

	auvs := s.missions.AUVs()
	out := make([]AUVTelemetry, 0, len(auvs))
	for _, a := range auvs {
		t := AUVTelemetry{
			ID:             a.ID,
			StationID:      a.HomeStationID,
			State:          a.State.String(),
			Mission:        a.Mission.String(),
			RepairPhase:    a.RepairPhase,
			BatteryPercent: a.BatteryPercent(),
			CurrentKP:      a.CurrentKP,
			TargetKP:       a.TargetKP,
			TargetAssetID:  a.TargetAssetID,
			DepthM:         a.DepthM,
			SpeedMS:        a.HorizontalSpeedMS,
		}
		if a.MissionActive() {
			t.DistanceToTargetM = math.Abs(float64(a.TargetKP)-a.CurrentKP) * 1000
			if t.DistanceToTargetM > 0 {
				t.ETASeconds = t.DistanceToTargetM / cruiseSpeedMS
			}
		}
		out = append(out, t)
	}
	return out
}

// PendingApprovals returns the approval queue ordered by age.
func (s *Simulation) PendingApprovals() []ApprovalSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.approvals.List()
	out := make([]ApprovalSnapshot, 0, len(pending))
	for _, p := range pending {
		out = append(out, ApprovalSnapshot{
			ID:                p.ID,
			AssetID:           p.AssetID,
			KP:                p.KP,
			Severity:          p.Recommendation.Severity.String(),
			Repair:            p.Recommendation.Repair.String(),
			RequiresIsolation: p.Recommendation.RequiresIsolation,
			Tools:             p.Recommendation.Tools,
			EstimatedDuration: p.Recommendation.EstimatedDuration,
			PendingSince:      p.PendingSince,
		})
	}
	return out
}

// HazardSnapshots returns the active hazards ordered by injection time.
func (s *Simulation) HazardSnapshots() []HazardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hazards := s.world.Hazards()
	out := make([]HazardSnapshot, 0, len(hazards))
	for _, h := range hazards {
		out = append(out, HazardSnapshot{
			ID:          h.ID,
			Kind:        h.Kind.String(),
			AssetID:     h.AssetID,
			EpicentreKP: h.EpicentreKP,
			Severity:    h.Severity.String(),
			RadiusKP:    h.Profile.RadiusKP,
			InjectedAt:  h.InjectedAt,
		})
	}
	return out
}

// DirtyAssets drains and returns the renderer's dirty-asset set.
func (s *Simulation) DirtyAssets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.DrainDirtyAssets()
}

// AssetIDs returns the fixed corridor asset identifiers.
func (s *Simulation) AssetIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.AssetIDs()
}
