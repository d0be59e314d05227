package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// Repository handles chat message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `id, user_id, user_name, user_role, content, stream_id, state, filtered, highlighted, created_at`

func scanMessage(row pgx.Row) (*models.ChatMessage, error) {
	var m models.ChatMessage
	if err := row.Scan(&m.ID, &m.UserID, &m.UserName, &m.UserRole, &m.Content, &m.StreamID,
		&m.State, &m.Filtered, &m.Highlighted, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Approved = m.State == models.StateApproved
	return &m, nil
}

func collectMessages(rows pgx.Rows) ([]models.ChatMessage, error) {
	defer rows.Close()
	list := []models.ChatMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, *m)
	}
	return list, database.Translate(rows.Err())
}

// Create inserts a message. The server clock assigns created_at, which defines display order.
func (r *Repository) Create(ctx context.Context, m *models.ChatMessage) error {
	const query = `INSERT INTO messages (user_id, user_name, user_role, content, stream_id, state, filtered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, m.UserID, m.UserName, m.UserRole, m.Content, m.StreamID, m.State, m.Filtered).
		Scan(&m.ID, &m.CreatedAt)
	return database.Translate(err)
}

// GetByID returns a message by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		return nil, database.Translate(err)
	}
	return m, nil
}

// Approve moves a pending message to approved. It returns nil without error when the
// message exists but was not pending.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	return r.transition(ctx, id, models.StateApproved)
}

// Reject moves a pending message to rejected. The row is kept.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	return r.transition(ctx, id, models.StateRejected)
}

func (r *Repository) transition(ctx context.Context, id uuid.UUID, to models.ModerationState) (*models.ChatMessage, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`UPDATE messages SET state = $2 WHERE id = $1 AND state = 'pending' RETURNING `+messageColumns, id, to))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, database.Translate(err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, nil
}

// Delete removes a message and returns it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `DELETE FROM messages WHERE id = $1 RETURNING `+messageColumns, id))
	if err != nil {
		return nil, database.Translate(err)
	}
	return m, nil
}

// SetHighlighted pins or unpins a message.
func (r *Repository) SetHighlighted(ctx context.Context, id uuid.UUID, highlighted bool) (*models.ChatMessage, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`UPDATE messages SET highlighted = $2 WHERE id = $1 RETURNING `+messageColumns, id, highlighted))
	if err != nil {
		return nil, database.Translate(err)
	}
	return m, nil
}

// FindRecent returns the newest limit approved messages of scope (or of every scope when
// allScopes is set), in chronological order.
func (r *Repository) FindRecent(ctx context.Context, scope models.Scope, limit int, allScopes bool) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE state = 'approved' AND ($3 OR stream_id IS NOT DISTINCT FROM $1)
			ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at ASC`,
		scope.StreamRef(), limit, allScopes)
	if err != nil {
		return nil, database.Translate(err)
	}
	return collectMessages(rows)
}

// ListPending returns messages awaiting moderation, oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE state = 'pending' ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, database.Translate(err)
	}
	return collectMessages(rows)
}
