package questions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// Repository handles question persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const questionColumns = `id, user_id, user_name, content, stream_id, displayed, filtered, created_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	err := row.Scan(&q.ID, &q.UserID, &q.UserName, &q.Content, &q.StreamID, &q.Displayed, &q.Filtered, &q.CreatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &q, nil
}

// Create inserts a new question.
func (r *Repository) Create(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (user_id, user_name, content, stream_id, filtered)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, displayed, created_at`
	err := r.pool.QueryRow(ctx, query, q.UserID, q.UserName, q.Content, q.StreamID, q.Filtered).
		Scan(&q.ID, &q.Displayed, &q.CreatedAt)
	return database.Translate(err)
}

// GetByID returns a question by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// MarkDisplayed flags a question as shown on stream and returns it.
func (r *Repository) MarkDisplayed(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`UPDATE questions SET displayed = TRUE WHERE id = $1 RETURNING `+questionColumns, id))
}

// Delete removes a question and returns it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `DELETE FROM questions WHERE id = $1 RETURNING `+questionColumns, id))
}

// List returns questions newest first. A nil scope lists every scope.
func (r *Repository) List(ctx context.Context, scope *models.Scope, limit int) ([]models.Question, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if scope == nil {
		rows, err = r.pool.Query(ctx,
			`SELECT `+questionColumns+` FROM questions ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+questionColumns+` FROM questions WHERE stream_id IS NOT DISTINCT FROM $1
			 ORDER BY created_at DESC LIMIT $2`, scope.StreamRef(), limit)
	}
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	list := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *q)
	}
	return list, database.Translate(rows.Err())
}
