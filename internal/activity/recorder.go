// Package activity provides the append-only log of orchestration decisions
// and channel attempt outcomes.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry kinds.
const (
	KindAttempt  = "attempt"  // one per channel attempt outcome
	KindDecision = "decision" // one per orchestrator respond call
	KindRetry    = "retry"    // retry enqueued or exhausted
)

// Entry is a single immutable activity record.
type Entry struct {
	LeadID      uuid.UUID
	Kind        string
	Channel     string
	Outcome     string
	ExternalRef string
	Detail      string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// Recorder appends entries to the activity log. Implementations must be
// safe for concurrent callers; entries are never mutated after Record.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// MemoryRecorder keeps entries in memory. Used in tests and as a fallback
// when no database is configured.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends the entry.
func (r *MemoryRecorder) Record(_ context.Context, entry Entry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns a copy of all recorded entries.
func (r *MemoryRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// ByKind returns recorded entries of the given kind.
func (r *MemoryRecorder) ByKind(kind string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Compile-time check.
var _ Recorder = (*MemoryRecorder)(nil)
