// Package response implements the inbound-lead response core: channel
// selection, concurrent dispatch against an SLA deadline, the at-most-once
// contacted transition, and retry scheduling.
package response

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Channel identifies a communication medium.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// LeadIntakeEvent is the immutable description of an arriving lead.
type LeadIntakeEvent struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Company     string    `json:"company,omitempty"`
	Source      string    `json:"source"`
	Message     string    `json:"message,omitempty"`
	ArrivalTime time.Time `json:"arrivalTime"`
}

// AttemptOutcome is the terminal state of one channel attempt.
type AttemptOutcome string

const (
	OutcomePending AttemptOutcome = "pending"
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"
)

// ResponseAttempt records one channel's dispatch for one intake event.
// It is owned by the dispatching adapter goroutine and never shared.
type ResponseAttempt struct {
	Channel     Channel
	StartedAt   time.Time
	Deadline    time.Time
	Outcome     AttemptOutcome
	ExternalRef string
	Err         error
}

// Dispatch is the successful result of one adapter call. ExternalRef is
// the provider-side reference (call SID, message SID, queue message id).
type Dispatch struct {
	ExternalRef string
}

// Adapter encapsulates one communication medium's dispatch logic.
// Dispatch must be safe to call concurrently with other adapters for the
// same event; adapters own no shared state. Implementations live in the
// channel subpackage.
type Adapter interface {
	Channel() Channel
	Dispatch(ctx context.Context, event LeadIntakeEvent) (Dispatch, error)
}

// Status is the orchestrator's overall decision for an intake event.
type Status string

const (
	StatusContacted      Status = "contacted"
	StatusQueuedForRetry Status = "queued_for_retry"
	// StatusFailed is the terminal outcome of a round that exhausted its
	// channels with no retry scheduler configured.
	StatusFailed Status = "failed"
)

// Result is returned by the orchestrator for each respond call.
type Result struct {
	Status  Status
	Elapsed time.Duration
}

// Error taxonomy. Per-channel failures stay local to the attempt; only
// ErrChannelUnavailable propagates to the orchestrator's caller.
var (
	// ErrChannelUnavailable means no usable channel exists for the lead.
	ErrChannelUnavailable = errors.New("no usable response channel for lead")

	// ErrResponseWindowExceeded is an attempt-local failure raised before
	// any side effect when the SLA deadline has already passed.
	ErrResponseWindowExceeded = errors.New("response window exceeded before dispatch")

	// ErrExhaustedRetries marks the terminal retry record.
	ErrExhaustedRetries = errors.New("retry attempts exhausted")
)

// ExternalDispatchError wraps a provider-side rejection so adapters can
// surface the failing channel without losing the cause.
type ExternalDispatchError struct {
	Channel Channel
	Err     error
}

func (e *ExternalDispatchError) Error() string {
	return string(e.Channel) + " dispatch failed: " + e.Err.Error()
}

func (e *ExternalDispatchError) Unwrap() error { return e.Err }
