package calls

import (
	"context"
	"testing"

	"leadrelay_backend/platform/logger"
)

func TestMapVendorStatus(t *testing.T) {
	tests := []struct {
		vendor string
		want   Status
	}{
		{"queued", StatusQueued},
		{"initiated", StatusQueued},
		{"ringing", StatusRinging},
		{"in-progress", StatusInProgress},
		{"answered", StatusInProgress},
		{"completed", StatusCompleted},
		{"busy", StatusBusy},
		{"no-answer", StatusNoAnswer},
		{"failed", StatusFailed},
		{"canceled", StatusCanceled},
		{"BUSY", StatusBusy},
		{" completed ", StatusCompleted},
		{"xyz-unknown", StatusFailed},
		{"", StatusFailed},
	}

	for _, tt := range tests {
		if got := MapVendorStatus(tt.vendor); got != tt.want {
			t.Errorf("MapVendorStatus(%q) = %s, want %s", tt.vendor, got, tt.want)
		}
	}
}

func TestIngestStatusUpdatesSession(t *testing.T) {
	store := NewMemoryStore()
	ing := NewIngestor(store, nil, logger.New("development"))

	duration := 42
	err := ing.IngestStatus(context.Background(), StatusCallback{
		ExternalRef:  "CA100",
		VendorStatus: "completed",
		DurationSec:  &duration,
	})
	if err != nil {
		t.Fatalf("IngestStatus: %v", err)
	}

	sess, ok := store.Get("CA100")
	if !ok {
		t.Fatal("session not created")
	}
	if sess.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", sess.Status, StatusCompleted)
	}
	if sess.DurationSec == nil || *sess.DurationSec != 42 {
		t.Errorf("duration = %v, want 42", sess.DurationSec)
	}
	if sess.EndedAt == nil {
		t.Error("terminal status should set ended_at")
	}
}

func TestIngestStatusDuplicatesAreIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ing := NewIngestor(store, nil, logger.New("development"))

	for i := 0; i < 3; i++ {
		if err := ing.IngestStatus(context.Background(), StatusCallback{
			ExternalRef:  "CA200",
			VendorStatus: "busy",
		}); err != nil {
			t.Fatalf("IngestStatus round %d: %v", i, err)
		}
	}

	sess, _ := store.Get("CA200")
	if sess.Status != StatusBusy {
		t.Errorf("status = %s, want %s", sess.Status, StatusBusy)
	}
}

func TestIngestRecordingAndTranscription(t *testing.T) {
	store := NewMemoryStore()
	ing := NewIngestor(store, nil, logger.New("development"))

	if err := ing.IngestRecording(context.Background(), RecordingCallback{
		ExternalRef:  "CA300",
		RecordingURL: "https://recordings.example.com/CA300",
	}); err != nil {
		t.Fatalf("IngestRecording: %v", err)
	}
	if err := ing.IngestTranscription(context.Background(), TranscriptionCallback{
		ExternalRef:   "CA300",
		TranscriptRef: "TR300",
	}); err != nil {
		t.Fatalf("IngestTranscription: %v", err)
	}

	sess, _ := store.Get("CA300")
	if sess.RecordingURL != "https://recordings.example.com/CA300" {
		t.Errorf("recording url = %q", sess.RecordingURL)
	}
	if sess.TranscriptRef != "TR300" {
		t.Errorf("transcript ref = %q", sess.TranscriptRef)
	}
}
