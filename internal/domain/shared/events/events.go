// Package events lets aggregates buffer what happened to them until the
// command handler hands the events to the outbox.
package events

import "time"

// DomainEvent is one fact about a stay, named like "stay.revised".
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates. The zero value is ready to use.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event != nil {
		r.pending = append(r.pending, event)
	}
}

// PendingEvents returns a copy of the buffered events in recording order.
func (r *EventRecorder) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), r.pending...)
}

// DrainEvents returns the buffered events and empties the buffer.
func (r *EventRecorder) DrainEvents() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

// BaseEvent is a generic event for callers without a typed payload.
type BaseEvent struct {
	Name      string
	Aggregate string
	Time      time.Time
}

func (e BaseEvent) EventName() string     { return e.Name }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }
func (e BaseEvent) OccurredAt() time.Time { return e.Time }
