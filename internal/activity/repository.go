package activity

import (
	"context"
	"encoding/json"
	"time"

	"leadrelay_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists activity entries to postgres. Inserts are append-only;
// rows are never updated or deleted.
type Repository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewRepository creates a postgres-backed activity recorder.
func NewRepository(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

// Record inserts one activity row.
func (r *Repository) Record(ctx context.Context, entry Entry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			r.log.DatabaseError("activity.marshal_metadata", err)
			metadata = nil
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO response_activity
			(lead_id, kind, channel, outcome, external_ref, detail, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.LeadID, entry.Kind, entry.Channel, entry.Outcome,
		entry.ExternalRef, entry.Detail, metadata, entry.OccurredAt,
	)
	if err != nil {
		r.log.DatabaseError("activity.record", err)
	}
	return err
}

// Compile-time check.
var _ Recorder = (*Repository)(nil)
