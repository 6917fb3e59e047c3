// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadrelay_backend/platform/events"
	"leadrelay_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Response Events
// =============================================================================

// LeadReceived is published when a new lead intake event arrives.
type LeadReceived struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source"`
}

func (e LeadReceived) EventName() string { return "leads.received" }

// LeadContacted is published exactly once per intake event, when the first
// successful channel attempt wins the contacted transition.
type LeadContacted struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	Channel     string    `json:"channel"`
	ExternalRef string    `json:"externalRef,omitempty"`
}

func (e LeadContacted) EventName() string { return "leads.contacted" }

// ResponseExhausted is published when retries are exhausted without contact.
type ResponseExhausted struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Attempts int       `json:"attempts"`
}

func (e ResponseExhausted) EventName() string { return "leads.response.exhausted" }

// =============================================================================
// Call Events
// =============================================================================

// CallStatusChanged is published when a provider webhook moves a call
// session to a new status.
type CallStatusChanged struct {
	BaseEvent
	ExternalRef string `json:"externalRef"`
	Status      string `json:"status"`
}

func (e CallStatusChanged) EventName() string { return "calls.status.changed" }

// RelayClosed is published when a media relay reaches its terminal state.
type RelayClosed struct {
	BaseEvent
	CallRef string `json:"callRef"`
	Reason  string `json:"reason,omitempty"`
}

func (e RelayClosed) EventName() string { return "calls.relay.closed" }
