// Package calls owns call session records and the webhook-driven call
// state machine.
package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the call session state, driven by provider webhooks.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusRinging    Status = "RINGING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusBusy       Status = "BUSY"
	StatusNoAnswer   Status = "NO_ANSWER"
	StatusFailed     Status = "FAILED"
	StatusCanceled   Status = "CANCELED"
)

// Directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Session is one telephony call tied to a lead. Rows are created at
// dispatch time and mutated only through the ingestor; they are never
// deleted.
type Session struct {
	ID            uuid.UUID
	ExternalRef   string
	LeadID        uuid.UUID
	Direction     string
	Status        Status
	StartedAt     time.Time
	EndedAt       *time.Time
	DurationSec   *int
	RecordingURL  string
	TranscriptRef string
}

// Store persists call sessions. Updates are last-write-wins keyed on the
// external call reference; duplicate and out-of-order webhooks are safe.
type Store interface {
	CreateDispatched(ctx context.Context, session Session) error
	SetStatus(ctx context.Context, externalRef string, status Status, durationSec *int) error
	AttachRecording(ctx context.Context, externalRef, recordingURL string) error
	AttachTranscript(ctx context.Context, externalRef, transcriptRef string) error
}

// MemoryStore keeps sessions in memory, keyed by external reference.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory call store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) CreateDispatched(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := session
	s.sessions[session.ExternalRef] = &copied
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, externalRef string, status Status, durationSec *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.upsert(externalRef)
	sess.Status = status
	if durationSec != nil {
		sess.DurationSec = durationSec
	}
	if isTerminal(status) && sess.EndedAt == nil {
		now := time.Now()
		sess.EndedAt = &now
	}
	return nil
}

func (s *MemoryStore) AttachRecording(_ context.Context, externalRef, recordingURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(externalRef).RecordingURL = recordingURL
	return nil
}

func (s *MemoryStore) AttachTranscript(_ context.Context, externalRef, transcriptRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(externalRef).TranscriptRef = transcriptRef
	return nil
}

// Get returns a copy of the session for the external reference.
func (s *MemoryStore) Get(externalRef string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[externalRef]; ok {
		return *sess, true
	}
	return Session{}, false
}

// upsert tolerates webhooks that arrive before the dispatch row exists.
func (s *MemoryStore) upsert(externalRef string) *Session {
	if sess, ok := s.sessions[externalRef]; ok {
		return sess
	}
	sess := &Session{ID: uuid.New(), ExternalRef: externalRef, Status: StatusQueued, StartedAt: time.Now()}
	s.sessions[externalRef] = sess
	return sess
}

func isTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusBusy, StatusNoAnswer, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Compile-time check.
var _ Store = (*MemoryStore)(nil)
