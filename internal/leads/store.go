// Package leads owns lead persistence and the NEW -> CONTACTED status
// transition. The transition is a compare-and-swap keyed on the current
// status so concurrent channel attempts commute: the first writer wins and
// every later attempt is a no-op.
package leads

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Lead statuses relevant to the response core. Other stages of the lead
// lifecycle are owned elsewhere and never touched here.
const (
	StatusNew       = "NEW"
	StatusContacted = "CONTACTED"
)

// Record is the subset of lead fields this service stores.
type Record struct {
	ID      uuid.UUID
	Name    string
	Phone   string
	Email   string
	Company string
	Source  string
	Message string
	Status  string
}

// StatusStore is the single piece of shared mutable state across concurrent
// channel attempts.
type StatusStore interface {
	// MarkContacted transitions the lead NEW -> CONTACTED. Returns true only
	// for the caller that performed the transition; false when the lead was
	// already contacted (or unknown). Safe under concurrent callers.
	MarkContacted(ctx context.Context, leadID uuid.UUID) (bool, error)
}

// Store adds creation on top of StatusStore for the intake surface.
type Store interface {
	StatusStore
	Create(ctx context.Context, rec Record) error
}

// MemoryStore is an in-memory Store for tests and broker-less development.
type MemoryStore struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]*Record
	transitions map[uuid.UUID]int
}

// NewMemoryStore creates an empty in-memory lead store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:       make(map[uuid.UUID]*Record),
		transitions: make(map[uuid.UUID]int),
	}
}

// Register creates a bare NEW lead by id.
func (s *MemoryStore) Register(leadID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[leadID] = &Record{ID: leadID, Status: StatusNew}
}

// Create stores a new lead with status NEW.
func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Status == "" {
		rec.Status = StatusNew
	}
	s.leads[rec.ID] = &rec
	return nil
}

// MarkContacted performs the CAS under the store lock.
func (s *MemoryStore) MarkContacted(_ context.Context, leadID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.leads[leadID]
	if !ok {
		// Unknown leads are auto-registered so orchestration tests can run
		// without a prior Create.
		s.leads[leadID] = &Record{ID: leadID, Status: StatusContacted}
		s.transitions[leadID]++
		return true, nil
	}
	if rec.Status != StatusNew {
		return false, nil
	}
	rec.Status = StatusContacted
	s.transitions[leadID]++
	return true, nil
}

// Transitions reports how many times the lead's CAS actually swapped.
func (s *MemoryStore) Transitions(leadID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitions[leadID]
}

// Status returns the current status of a lead, or "" if unknown.
func (s *MemoryStore) Status(leadID uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.leads[leadID]; ok {
		return rec.Status
	}
	return ""
}
