package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/subseaworks/corridor-simulator/model"
)

// CorridorLengthKP is the corridor length in kilometre-points. Segments
// are indexed 0..CorridorLengthKP-1.
const CorridorLengthKP = 1900

// Sentinel errors for command validation. The API layer maps these to
// transport status codes.
var (
	ErrUnknownAsset    = errors.New("unknown asset")
	ErrKPOutOfRange    = errors.New("kilometre-point out of corridor range")
	ErrUnknownHazard   = errors.New("unknown hazard")
	ErrUnknownAUV      = errors.New("unknown AUV")
	ErrPendingNotFound = errors.New("pending approval not found")
	ErrAUVNotStranded  = errors.New("AUV is not stranded")
	ErrInvalidDilation = errors.New("time dilation factor must be positive")
)

// assetDef describes one of the five corridor assets.
type assetDef struct {
	ID    string
	Class model.AssetClass
}

// corridorAssets is the fixed asset set: three pipelines, two cables.
var corridorAssets = []assetDef{
	{ID: "crude", Class: model.AssetPipeline},
	{ID: "gas", Class: model.AssetPipeline},
	{ID: "condensate", Class: model.AssetPipeline},
	{ID: "power", Class: model.AssetCable},
	{ID: "fiber", Class: model.AssetCable},
}

// channelBaselines gives per-class sensor baselines in channel order:
// pressure (bar), flow (m3/h), acoustic (dB), temperature (C), strain
// (microstrain), tilt (deg).
var channelBaselines = map[model.AssetClass][model.NumChannels]float64{
	model.AssetPipeline: {180, 3200, 38, 12, 120, 0.4},
	model.AssetCable:    {0, 0, 31, 8, 85, 0.2},
}

// corridor route endpoints; positions are linearly interpolated along KP.
var (
	routeStart = model.GeoPosition{LatDeg: 61.2, LonDeg: 2.3}
	routeEnd   = model.GeoPosition{LatDeg: 53.6, LonDeg: 6.1}
)

// World is the authoritative mutable state of the corridor twin: all
// segments, active hazards, derived sector data, and the dirty-asset set
// the renderer drains. World itself carries no locking; the owning
// Simulation serialises all access so that every tick is atomic.
type World struct {
	segments map[string][]*model.SegmentNode
	hazards  map[string]*model.ActiveHazard
	sectors  [len(model.Sectors)]model.SectorDataNode

	dirtyAssets map[string]struct{}
}

// NewWorld builds the full segment population: one segment per KP per
// asset, with class baselines and terrain-supplied depth and position.
func NewWorld(terrain TerrainProfile) *World {
	w := &World{
		segments:    make(map[string][]*model.SegmentNode, len(corridorAssets)),
		hazards:     make(map[string]*model.ActiveHazard),
		dirtyAssets: make(map[string]struct{}),
	}
	for _, a := range corridorAssets {
		segs := make([]*model.SegmentNode, CorridorLengthKP)
		for kp := 0; kp < CorridorLengthKP; kp++ {
			seg := &model.SegmentNode{
				AssetID:    a.ID,
				AssetClass: a.Class,
				KPStart:    kp,
				KPEnd:      kp + 1,
				Position:   positionAt(kp),
				DepthM:     terrain.DepthAt(float64(kp)),
				Health:     model.HealthHealthy,
			}
			base := channelBaselines[a.Class]
			for ch := 0; ch < model.NumChannels; ch++ {
				seg.Cluster.Channels[ch] = model.SensorChannel{
					Baseline: base[ch],
					Current:  base[ch],
					Noise:    base[ch] * 0.004,
				}
			}
			segs[kp] = seg
		}
		w.segments[a.ID] = segs
	}
	for i, s := range model.Sectors {
		w.sectors[i] = model.SectorDataNode{Sector: s, StabilityIndex: 100}
	}
	return w
}

func positionAt(kp int) model.GeoPosition {
	t := float64(kp) / float64(CorridorLengthKP)
	return model.GeoPosition{
		LatDeg: routeStart.LatDeg + (routeEnd.LatDeg-routeStart.LatDeg)*t,
		LonDeg: routeStart.LonDeg + (routeEnd.LonDeg-routeStart.LonDeg)*t,
	}
}

// AssetIDs returns the fixed asset identifiers in declaration order.
func (w *World) AssetIDs() []string {
	ids := make([]string, 0, len(corridorAssets))
	for _, a := range corridorAssets {
		ids = append(ids, a.ID)
	}
	return ids
}

// ValidateKP rejects kilometre-points outside the corridor.
func (w *World) ValidateKP(kp int) error {
	if kp < 0 || kp >= CorridorLengthKP {
		return fmt.Errorf("%w: kp %d not in [0,%d)", ErrKPOutOfRange, kp, CorridorLengthKP)
	}
	return nil
}

// Segment returns the segment of an asset at a kilometre-point.
func (w *World) Segment(assetID string, kp int) (*model.SegmentNode, error) {
	segs, ok := w.segments[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAsset, assetID)
	}
	if err := w.ValidateKP(kp); err != nil {
		return nil, err
	}
	return segs[kp], nil
}

// Segments returns the full per-KP slice for an asset.
func (w *World) Segments(assetID string) ([]*model.SegmentNode, error) {
	segs, ok := w.segments[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAsset, assetID)
	}
	return segs, nil
}

// EachSegmentInRange visits every asset's segments within [from, to).
// The range is clipped to the corridor bounds.
func (w *World) EachSegmentInRange(from, to int, fn func(*model.SegmentNode)) {
	if from < 0 {
		from = 0
	}
	if to > CorridorLengthKP {
		to = CorridorLengthKP
	}
	for _, a := range corridorAssets {
		segs := w.segments[a.ID]
		for kp := from; kp < to; kp++ {
			fn(segs[kp])
		}
	}
}

// AddHazard registers an active hazard.
func (w *World) AddHazard(h *model.ActiveHazard) {
	w.hazards[h.ID] = h
}

// RemoveHazard drops a hazard by ID.
func (w *World) RemoveHazard(id string) {
	delete(w.hazards, id)
}

// Hazards returns the active hazards ordered by injection time.
func (w *World) Hazards() []*model.ActiveHazard {
	out := make([]*model.ActiveHazard, 0, len(w.hazards))
	for _, h := range w.hazards {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InjectedAt == out[j].InjectedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].InjectedAt < out[j].InjectedAt
	})
	return out
}

// SectorData returns the derived sector nodes; the aggregator overwrites
// them in place each world tick.
func (w *World) SectorData() *[len(model.Sectors)]model.SectorDataNode {
	return &w.sectors
}

// MarkAssetDirty flags an asset's mesh for the external renderer.
func (w *World) MarkAssetDirty(assetID string) {
	w.dirtyAssets[assetID] = struct{}{}
}

// DrainDirtyAssets returns and clears the dirty-asset set.
func (w *World) DrainDirtyAssets() []string {
	out := make([]string, 0, len(w.dirtyAssets))
	for id := range w.dirtyAssets {
		out = append(out, id)
	}
	sort.Strings(out)
	w.dirtyAssets = make(map[string]struct{})
	return out
}
