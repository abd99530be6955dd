// Package events carries domain events from aggregates to a dispatcher.
// Aggregates accumulate events as they transition; the owning service drains
// them with TakeEvents after a successful save and hands them to the
// dispatcher. No global bus exists.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a fact about a completed aggregate transition.
type Event struct {
	Name        string                 `json:"name"`
	AggregateID uuid.UUID              `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Recorder is embedded in aggregate roots to accumulate events.
type Recorder struct {
	events []Event
}

// Record appends an event for the aggregate.
func (r *Recorder) Record(name string, aggregateID uuid.UUID, data map[string]interface{}) {
	r.events = append(r.events, Event{
		Name:        name,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	})
}

// TakeEvents returns the accumulated events and clears the recorder.
func (r *Recorder) TakeEvents() []Event {
	evts := r.events
	r.events = nil
	return evts
}

// Dispatcher receives events drained from an aggregate after save.
type Dispatcher interface {
	Dispatch(ctx context.Context, evts []Event)
}

// LogDispatcher writes each event to the structured log. It stands in for a
// real outbox or message broker.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(_ context.Context, evts []Event) {
	for _, e := range evts {
		d.log.Info().
			Str("event", e.Name).
			Str("aggregate_id", e.AggregateID.String()).
			Time("occurred_at", e.OccurredAt).
			Fields(e.Data).
			Msg("domain event")
	}
}
