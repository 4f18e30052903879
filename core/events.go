package core

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/subseaworks/corridor-simulator/internal/logging"
)

// EventLevel grades an event entry.
type EventLevel int

const (
	LevelInfo EventLevel = iota
	LevelWarning
	LevelCritical
)

func (l EventLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "info"
	}
}

// Event is one ordered entry of the telemetry stream consumed by the UI
// and the operator log.
type Event struct {
	Seq      uint64     `json:"seq"`
	ID       string     `json:"id"`
	SimTime  float64    `json:"sim_time"`
	Level    EventLevel `json:"-"`
	LevelStr string     `json:"level"`
	Category string     `json:"category"`
	Message  string     `json:"message"`
	AssetID  string     `json:"asset_id,omitempty"`
	KP       int        `json:"kp,omitempty"`
	AUVID    string     `json:"auv_id,omitempty"`
}

// EventLog keeps an ordered ring of recent events and fans new entries
// out to subscribers. It has its own lock because the API layer reads it
// outside the simulation mutex; appends only happen inside ticks or
// command application.
type EventLog struct {
	mu      sync.Mutex
	ring    []Event
	nextSeq uint64
	limit   int

	subs   map[int]chan Event
	nextID int

	log     logging.Logger
	counter func(level string)
}

// NewEventLog creates a log retaining at most limit entries.
func NewEventLog(limit int, log logging.Logger) *EventLog {
	if log == nil {
		log = logging.Noop()
	}
	if limit <= 0 {
		limit = 512
	}
	return &EventLog{
		ring:  make([]Event, 0, limit),
		limit: limit,
		subs:  make(map[int]chan Event),
		log:   log,
	}
}

// SetCounter attaches an optional per-level counter hook (metrics).
func (e *EventLog) SetCounter(fn func(level string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counter = fn
}

// Append records an event, logs it, and notifies subscribers. Slow
// subscribers are skipped rather than blocking a tick.
func (e *EventLog) Append(simTime float64, level EventLevel, category, message string, fields ...logging.Field) Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextSeq++
	ev := Event{
		Seq:      e.nextSeq,
		ID:       uuid.NewString(),
		SimTime:  simTime,
		Level:    level,
		LevelStr: level.String(),
		Category: category,
		Message:  message,
	}
	for _, f := range fields {
		switch f.Key {
		case "asset":
			if s, ok := f.Value.(string); ok {
				ev.AssetID = s
			}
		case "kp":
			if n, ok := f.Value.(int); ok {
				ev.KP = n
			}
		case "auv":
			if s, ok := f.Value.(string); ok {
				ev.AUVID = s
			}
		}
	}

	if len(e.ring) == e.limit {
		e.ring = e.ring[1:]
	}
	e.ring = append(e.ring, ev)

	ctx := context.Background()
	args := append([]logging.Field{
		logging.String("category", category),
		logging.Any("sim_time", simTime),
	}, fields...)
	switch level {
	case LevelCritical:
		e.log.Error(ctx, message, args...)
	case LevelWarning:
		e.log.Warn(ctx, message, args...)
	default:
		e.log.Info(ctx, message, args...)
	}
	if e.counter != nil {
		e.counter(level.String())
	}

	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Recent returns up to n of the newest entries, oldest first.
func (e *EventLog) Recent(n int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n <= 0 || n > len(e.ring) {
		n = len(e.ring)
	}
	out := make([]Event, n)
	copy(out, e.ring[len(e.ring)-n:])
	return out
}

// Subscribe registers a buffered event channel. The returned cancel
// function must be called to release the subscription.
func (e *EventLog) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	ch := make(chan Event, 64)
	e.subs[id] = ch
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
}
