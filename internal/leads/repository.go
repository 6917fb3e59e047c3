package leads

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the postgres-backed lead store. The contacted transition
// runs as a single conditional UPDATE so the database is the arbiter under
// concurrent writers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a postgres lead store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new lead with status NEW. Duplicate ids are rejected by
// the primary key; intake treats that as a replayed webhook.
func (r *Repository) Create(ctx context.Context, rec Record) error {
	status := rec.Status
	if status == "" {
		status = StatusNew
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (id, name, phone, email, company, source, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Name, rec.Phone, rec.Email, rec.Company, rec.Source, rec.Message, status,
	)
	return err
}

// MarkContacted performs the NEW -> CONTACTED compare-and-swap.
func (r *Repository) MarkContacted(ctx context.Context, leadID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $1, contacted_at = now()
		WHERE id = $2 AND status = $3`,
		StatusContacted, leadID, StatusNew,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Compile-time check.
var _ Store = (*Repository)(nil)
