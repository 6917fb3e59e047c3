// Package events carries lead lifecycle notifications between modules
// without direct coupling: intake announces arrivals, the orchestrator
// announces contact, the call ingestor announces call state changes.
// This is part of the platform layer and contains no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every notification that crosses a module
// boundary.
type Event interface {
	// EventName returns a unique identifier for the event type.
	EventName() string
	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events. Concrete events
// embed it and add their own fields.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers. Publication must never
// block or fail the publishing flow; a lead response proceeds whether or
// not anyone is listening.
type Bus interface {
	// Publish fans the event out to registered handlers asynchronously.
	Publish(ctx context.Context, event Event)

	// PublishSync fans the event out and waits for every handler,
	// returning the first handler error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler keyed by Event.EventName().
	Subscribe(eventName string, handler Handler)
}
