package core

import (
	"fmt"

	"github.com/subseaworks/corridor-simulator/internal/logging"
	"github.com/subseaworks/corridor-simulator/model"
)

// Stability thresholds for sector notifications, with a re-arm band so a
// sector hovering on a boundary does not emit every tick.
const (
	stabilityWarnBelow = 70.0
	stabilityCritBelow = 40.0
	stabilityRearmBand = 5.0
)

// SectorAggregator recomputes every sector's stability index and variance
// from segment uncertainty each world tick. The computation is a pure
// function of segment state; the only retained state is the notification
// latch per sector.
type SectorAggregator struct {
	world  *World
	events *EventLog

	// alertLevel latches the last notified level per sector:
	// 0 nominal, 1 warning, 2 critical.
	alertLevel [len(model.Sectors)]int

	// requestInvestigation fires on a critical crossing when no mission
	// is active; it targets the worst segment of the sector.
	requestInvestigation func(assetID string, kp int)
}

// NewSectorAggregator builds the aggregator; the dispatch hook may be nil.
func NewSectorAggregator(w *World, events *EventLog, dispatch func(assetID string, kp int)) *SectorAggregator {
	return &SectorAggregator{world: w, events: events, requestInvestigation: dispatch}
}

// Tick recomputes all four sectors. It is idempotent with respect to
// segment state: running it twice in a row yields identical sector data.
func (a *SectorAggregator) Tick(now float64, missionActive bool) {
	data := a.world.SectorData()
	for i := range data {
		sec := &data[i]

		var sum float64
		var count int
		var worst *model.SegmentNode
		a.world.EachSegmentInRange(sec.KPFrom, sec.KPTo, func(seg *model.SegmentNode) {
			sum += seg.Uncertainty
			count++
			if worst == nil || seg.Uncertainty > worst.Uncertainty {
				worst = seg
			}
		})
		if count == 0 {
			continue
		}

		sec.AggregatedVariance = sum / float64(count)
		sec.StabilityIndex = model.Clamp(100-sec.AggregatedVariance*100, 0, 100)

		a.notify(now, i, sec, worst, &missionActive)
	}
}

func (a *SectorAggregator) notify(now float64, idx int, sec *model.SectorDataNode, worst *model.SegmentNode, missionActive *bool) {
	level := 0
	switch {
	case sec.StabilityIndex < stabilityCritBelow:
		level = 2
	case sec.StabilityIndex < stabilityWarnBelow:
		level = 1
	}

	// Re-arm only after the index recovers past the band.
	if level < a.alertLevel[idx] {
		rearm := stabilityWarnBelow
		if a.alertLevel[idx] == 2 {
			rearm = stabilityCritBelow
		}
		if sec.StabilityIndex < rearm+stabilityRearmBand {
			return
		}
		a.alertLevel[idx] = level
		a.events.Append(now, LevelInfo, "sector",
			fmt.Sprintf("sector %s stability recovered to %.1f", sec.ID, sec.StabilityIndex))
		return
	}
	if level == a.alertLevel[idx] {
		return
	}
	a.alertLevel[idx] = level

	switch level {
	case 1:
		a.events.Append(now, LevelWarning, "sector",
			fmt.Sprintf("sector %s stability degraded to %.1f", sec.ID, sec.StabilityIndex))
	case 2:
		a.events.Append(now, LevelCritical, "sector",
			fmt.Sprintf("sector %s stability critical at %.1f", sec.ID, sec.StabilityIndex),
			logging.String("asset", worst.AssetID),
			logging.Int("kp", worst.KPStart),
		)
		if !*missionActive && a.requestInvestigation != nil {
			a.requestInvestigation(worst.AssetID, worst.KPStart)
			*missionActive = true
		}
	}
}
