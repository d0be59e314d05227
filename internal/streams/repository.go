package streams

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// Repository handles streams persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a streams repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const streamColumns = `id, title, status, peak_viewers, started_at, ended_at, created_at`

func scanStream(row pgx.Row) (*models.Stream, error) {
	var s models.Stream
	if err := row.Scan(&s.ID, &s.Title, &s.Status, &s.PeakViewers, &s.StartedAt, &s.EndedAt, &s.CreatedAt); err != nil {
		return nil, database.Translate(err)
	}
	return &s, nil
}

// Create inserts a new offline stream.
func (r *Repository) Create(ctx context.Context, title string) (*models.Stream, error) {
	return scanStream(r.pool.QueryRow(ctx,
		`INSERT INTO streams (title) VALUES ($1) RETURNING `+streamColumns, title))
}

// GetByID returns a stream by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	return scanStream(r.pool.QueryRow(ctx, `SELECT `+streamColumns+` FROM streams WHERE id = $1`, id))
}

// List returns all streams, oldest first.
func (r *Repository) List(ctx context.Context) ([]models.Stream, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+streamColumns+` FROM streams ORDER BY created_at`)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	list := []models.Stream{}
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, database.Translate(rows.Err())
}

// SetStatus changes the broadcast status. Going live stamps started_at, ending stamps ended_at.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.StreamStatus) (*models.Stream, error) {
	const q = `UPDATE streams SET status = $2,
		started_at = CASE WHEN $2 = 'live' THEN NOW() ELSE started_at END,
		ended_at = CASE WHEN $2 = 'ended' THEN NOW() WHEN $2 = 'live' THEN NULL ELSE ended_at END
		WHERE id = $1 RETURNING ` + streamColumns
	return scanStream(r.pool.QueryRow(ctx, q, id, status))
}

// UpdatePeakViewers raises peak_viewers when count exceeds it.
func (r *Repository) UpdatePeakViewers(ctx context.Context, id uuid.UUID, count int) error {
	const q = `UPDATE streams SET peak_viewers = $1 WHERE id = $2 AND $1 > peak_viewers`
	_, err := r.pool.Exec(ctx, q, count, id)
	return database.Translate(err)
}
