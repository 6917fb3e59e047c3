package calls

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the postgres-backed call session store. All mutations are
// idempotent sets keyed on external_ref, so replayed webhooks are harmless.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a postgres call store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateDispatched inserts the session row created at dispatch time.
// A conflicting external_ref means the dispatch was replayed; the existing
// row wins.
func (r *Repository) CreateDispatched(ctx context.Context, session Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_sessions (id, external_ref, lead_id, direction, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_ref) DO NOTHING`,
		session.ID, session.ExternalRef, session.LeadID, session.Direction, session.Status, session.StartedAt,
	)
	return err
}

// SetStatus applies a last-write-wins status update. Webhooks may arrive
// before the dispatch insert has landed, so missing rows are created.
func (r *Repository) SetStatus(ctx context.Context, externalRef string, status Status, durationSec *int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_sessions (external_ref, status, started_at)
		VALUES ($1, $2, now())
		ON CONFLICT (external_ref) DO UPDATE SET
			status = EXCLUDED.status,
			duration_sec = COALESCE($3, call_sessions.duration_sec),
			ended_at = CASE
				WHEN EXCLUDED.status IN ('COMPLETED', 'BUSY', 'NO_ANSWER', 'FAILED', 'CANCELED')
					THEN COALESCE(call_sessions.ended_at, now())
				ELSE call_sessions.ended_at
			END`,
		externalRef, status, durationSec,
	)
	return err
}

// AttachRecording stores the recording reference for the call.
func (r *Repository) AttachRecording(ctx context.Context, externalRef, recordingURL string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE call_sessions SET recording_url = $2 WHERE external_ref = $1`,
		externalRef, recordingURL,
	)
	return err
}

// AttachTranscript stores the transcript reference for the call.
func (r *Repository) AttachTranscript(ctx context.Context, externalRef, transcriptRef string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE call_sessions SET transcript_ref = $2 WHERE external_ref = $1`,
		externalRef, transcriptRef,
	)
	return err
}

// Compile-time check.
var _ Store = (*Repository)(nil)
