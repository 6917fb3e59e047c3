package calls

import (
	"context"
	"strings"

	"leadrelay_backend/internal/events"
	"leadrelay_backend/platform/logger"
)

// vendorStatus is the fixed lookup table from provider status strings onto
// the call state machine. Anything unrecognized maps to FAILED; a vendor
// adding a status must never silently drop a call into limbo.
var vendorStatus = map[string]Status{
	"queued":      StatusQueued,
	"initiated":   StatusQueued,
	"ringing":     StatusRinging,
	"in-progress": StatusInProgress,
	"answered":    StatusInProgress,
	"completed":   StatusCompleted,
	"busy":        StatusBusy,
	"no-answer":   StatusNoAnswer,
	"failed":      StatusFailed,
	"canceled":    StatusCanceled,
}

// MapVendorStatus translates a provider status string. Unknown strings map
// to FAILED, never dropped.
func MapVendorStatus(vendor string) Status {
	if status, ok := vendorStatus[strings.ToLower(strings.TrimSpace(vendor))]; ok {
		return status
	}
	return StatusFailed
}

// StatusCallback is a provider call-status webhook payload.
type StatusCallback struct {
	ExternalRef  string
	VendorStatus string
	DurationSec  *int
}

// RecordingCallback is a provider recording-available webhook payload.
type RecordingCallback struct {
	ExternalRef  string
	RecordingURL string
}

// TranscriptionCallback is a provider transcription-available webhook payload.
type TranscriptionCallback struct {
	ExternalRef   string
	TranscriptRef string
}

// Ingestor maps asynchronous provider webhooks onto call session updates.
// It runs independently of the response orchestrator.
type Ingestor struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

// NewIngestor creates a call status ingestor.
func NewIngestor(store Store, bus events.Bus, log *logger.Logger) *Ingestor {
	return &Ingestor{store: store, bus: bus, log: log}
}

// IngestStatus applies one status callback. Duplicate and out-of-order
// callbacks are tolerated; the update is an idempotent set.
func (i *Ingestor) IngestStatus(ctx context.Context, cb StatusCallback) error {
	status := MapVendorStatus(cb.VendorStatus)

	if err := i.store.SetStatus(ctx, cb.ExternalRef, status, cb.DurationSec); err != nil {
		i.log.DatabaseError("calls.set_status", err)
		return err
	}

	i.log.Info("call status updated",
		"call_ref", cb.ExternalRef,
		"vendor_status", cb.VendorStatus,
		"status", string(status))

	if i.bus != nil {
		i.bus.Publish(ctx, events.CallStatusChanged{
			BaseEvent:   events.NewBaseEvent(),
			ExternalRef: cb.ExternalRef,
			Status:      string(status),
		})
	}
	return nil
}

// IngestRecording stores the recording reference from a provider callback.
func (i *Ingestor) IngestRecording(ctx context.Context, cb RecordingCallback) error {
	if err := i.store.AttachRecording(ctx, cb.ExternalRef, cb.RecordingURL); err != nil {
		i.log.DatabaseError("calls.attach_recording", err)
		return err
	}
	return nil
}

// IngestTranscription stores the transcript reference from a provider callback.
func (i *Ingestor) IngestTranscription(ctx context.Context, cb TranscriptionCallback) error {
	if err := i.store.AttachTranscript(ctx, cb.ExternalRef, cb.TranscriptRef); err != nil {
		i.log.DatabaseError("calls.attach_transcript", err)
		return err
	}
	return nil
}
