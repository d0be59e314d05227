package media

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// Repository handles media_items persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a media repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const mediaColumns = `id, stream_id, file_url, file_type, file_size, COALESCE(s3_key, ''), COALESCE(source_url, ''), status, created_at`

func scanMedia(row pgx.Row) (*models.MediaItem, error) {
	var m models.MediaItem
	err := row.Scan(&m.ID, &m.StreamID, &m.FileURL, &m.FileType, &m.FileSize, &m.S3Key, &m.SourceURL, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &m, nil
}

// Create inserts a media item.
func (r *Repository) Create(ctx context.Context, m *models.MediaItem) error {
	const q = `INSERT INTO media_items (stream_id, file_url, file_type, file_size, s3_key, source_url, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, m.StreamID, m.FileURL, m.FileType, m.FileSize, m.S3Key, m.SourceURL, m.Status).
		Scan(&m.ID, &m.CreatedAt)
	return database.Translate(err)
}

// GetByID returns a media item by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	return scanMedia(r.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_items WHERE id = $1`, id))
}

// MarkReady records the stored object of an imported item.
func (r *Repository) MarkReady(ctx context.Context, id uuid.UUID, fileURL, s3Key, fileType string, size int64) (*models.MediaItem, error) {
	const q = `UPDATE media_items SET file_url = $2, s3_key = $3, file_type = $4, file_size = $5, status = 'ready'
		WHERE id = $1 RETURNING ` + mediaColumns
	return scanMedia(r.pool.QueryRow(ctx, q, id, fileURL, s3Key, fileType, size))
}

// MarkFailed flags an import that ran out of retries.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	return scanMedia(r.pool.QueryRow(ctx,
		`UPDATE media_items SET status = 'failed' WHERE id = $1 RETURNING `+mediaColumns, id))
}

// List returns media items newest first; a nil streamID lists every item.
func (r *Repository) List(ctx context.Context, streamID *uuid.UUID) ([]models.MediaItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+mediaColumns+` FROM media_items
		WHERE $1::uuid IS NULL OR stream_id = $1 ORDER BY created_at DESC`, streamID)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	list := []models.MediaItem{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, database.Translate(rows.Err())
}

// Delete removes a media item and returns it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.MediaItem, error) {
	return scanMedia(r.pool.QueryRow(ctx, `DELETE FROM media_items WHERE id = $1 RETURNING `+mediaColumns, id))
}
