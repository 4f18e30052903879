package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation core. It
// implements core.MetricsRecorder so the simulation can drive gauges
// directly from its tick loop.
type SimCollector struct {
	gatherer prometheus.Gatherer

	WorldTickDuration   prometheus.Histogram
	MissionTickDuration prometheus.Histogram

	CriticalSegments prometheus.Gauge
	ActiveHazards    prometheus.Gauge
	PendingApprovals prometheus.Gauge
	ActiveIsolations prometheus.Gauge
	AUVBattery       *prometheus.GaugeVec

	EventsTotal   *prometheus.CounterVec
	CommandsTotal *prometheus.CounterVec
}

// NewSimCollector registers the simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickBuckets := []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

	worldTick, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_world_tick_duration_seconds",
		Help:    "Wall-clock duration of one world tick (isolation, hazard propagation, sector aggregation).",
		Buckets: tickBuckets,
	}), "sim_world_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	missionTick, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_mission_tick_duration_seconds",
		Help:    "Wall-clock duration of one mission tick (AUV physics and state machines).",
		Buckets: tickBuckets,
	}), "sim_mission_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	critical, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_segments_critical",
		Help: "Segments currently at critical-risk or confirmed-anomaly.",
	}), "sim_segments_critical")
	if err != nil {
		return nil, err
	}
	hazards, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_hazards_active",
		Help: "Active hazards in the world.",
	}), "sim_hazards_active")
	if err != nil {
		return nil, err
	}
	approvals, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_approvals_pending",
		Help: "Repair recommendations awaiting human decision.",
	}), "sim_approvals_pending")
	if err != nil {
		return nil, err
	}
	isolations, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_isolations_active",
		Help: "Segments currently in the valve isolation sub-machine.",
	}), "sim_isolations_active")
	if err != nil {
		return nil, err
	}

	battery := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_auv_battery_percent",
		Help: "AUV battery charge as a percentage of capacity.",
	}, []string{"auv"})
	battery, err = registerGaugeVec(reg, battery, "sim_auv_battery_percent")
	if err != nil {
		return nil, err
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_events_total",
		Help: "Event log entries emitted, labeled by level.",
	}, []string{"level"})
	events, err = registerCounterVec(reg, events, "sim_events_total")
	if err != nil {
		return nil, err
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_commands_total",
		Help: "Commands applied to the simulation, labeled by command and outcome.",
	}, []string{"command", "outcome"})
	commands, err = registerCounterVec(reg, commands, "sim_commands_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:            gatherer,
		WorldTickDuration:   worldTick,
		MissionTickDuration: missionTick,
		CriticalSegments:    critical,
		ActiveHazards:       hazards,
		PendingApprovals:    approvals,
		ActiveIsolations:    isolations,
		AUVBattery:          battery,
		EventsTotal:         events,
		CommandsTotal:       commands,
	}, nil
}

// ObserveWorldTick satisfies core.MetricsRecorder.
func (c *SimCollector) ObserveWorldTick(seconds float64) {
	if c == nil || c.WorldTickDuration == nil {
		return
	}
	c.WorldTickDuration.Observe(seconds)
}

// ObserveMissionTick satisfies core.MetricsRecorder.
func (c *SimCollector) ObserveMissionTick(seconds float64) {
	if c == nil || c.MissionTickDuration == nil {
		return
	}
	c.MissionTickDuration.Observe(seconds)
}

// SetWorldGauges satisfies core.MetricsRecorder.
func (c *SimCollector) SetWorldGauges(criticalSegments, activeHazards, pendingApprovals, activeIsolations int) {
	if c == nil {
		return
	}
	c.CriticalSegments.Set(float64(criticalSegments))
	c.ActiveHazards.Set(float64(activeHazards))
	c.PendingApprovals.Set(float64(pendingApprovals))
	c.ActiveIsolations.Set(float64(activeIsolations))
}

// SetAUVBattery satisfies core.MetricsRecorder.
func (c *SimCollector) SetAUVBattery(id string, percent float64) {
	if c == nil || c.AUVBattery == nil {
		return
	}
	c.AUVBattery.WithLabelValues(id).Set(percent)
}

// IncEvent satisfies core.MetricsRecorder.
func (c *SimCollector) IncEvent(level string) {
	if c == nil || c.EventsTotal == nil {
		return
	}
	c.EventsTotal.WithLabelValues(level).Inc()
}

// IncCommand satisfies core.MetricsRecorder.
func (c *SimCollector) IncCommand(name, outcome string) {
	if c == nil || c.CommandsTotal == nil {
		return
	}
	c.CommandsTotal.WithLabelValues(name, outcome).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
