package timectrl

import (
	"context"
	"time"
)

// Target is the simulation surface the scheduler drives. The scheduler
// calls both tick methods from a single goroutine so they never overlap.
type Target interface {
	WorldTick()
	MissionTick()
}

// Mode describes how the Scheduler advances the simulation.
type Mode int

const (
	// RealTime paces ticks against wall-clock time at the configured rates.
	RealTime Mode = iota
	// Accelerated runs the tick interleave as fast as the loop allows
	// while preserving the mission:world ratio.
	Accelerated
)

// Scheduler interleaves the mission and world tick cycles over one
// simulation target: a world tick fires after every ratio mission ticks,
// where ratio is worldInterval / missionInterval.
type Scheduler struct {
	target          Target
	missionInterval time.Duration
	worldInterval   time.Duration
	mode            Mode
}

// NewScheduler constructs a scheduler. Non-positive intervals fall back
// to the nominal 10 Hz mission / 2 Hz world rates.
func NewScheduler(target Target, missionInterval, worldInterval time.Duration, mode Mode) *Scheduler {
	if missionInterval <= 0 {
		missionInterval = 100 * time.Millisecond
	}
	if worldInterval <= missionInterval {
		worldInterval = 5 * missionInterval
	}
	return &Scheduler{
		target:          target,
		missionInterval: missionInterval,
		worldInterval:   worldInterval,
		mode:            mode,
	}
}

// ratio is the number of mission ticks per world tick.
func (s *Scheduler) ratio() int {
	r := int(s.worldInterval / s.missionInterval)
	if r < 1 {
		r = 1
	}
	return r
}

// Step advances n world-tick periods synchronously, interleaving mission
// ticks at the configured ratio. Tests and headless batch runs use this
// for deterministic execution.
func (s *Scheduler) Step(n int) {
	ratio := s.ratio()
	for i := 0; i < n; i++ {
		for j := 0; j < ratio; j++ {
			s.target.MissionTick()
		}
		s.target.WorldTick()
	}
}

// Run drives the simulation until the context is cancelled. It returns a
// channel closed when the loop has fully stopped.
func (s *Scheduler) Run(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		if s.mode == Accelerated {
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				s.Step(1)
			}
		}

		ticker := time.NewTicker(s.missionInterval)
		defer ticker.Stop()

		ratio := s.ratio()
		count := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.target.MissionTick()
				count++
				if count >= ratio {
					count = 0
					s.target.WorldTick()
				}
			}
		}
	}()
	return done
}
