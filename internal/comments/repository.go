package comments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// dbtx is the part of *pgxpool.Pool the repository uses.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles comments and their reactions.
type Repository struct {
	pool dbtx
}

// NewRepository creates a comments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const commentColumns = `c.id, c.user_id, c.user_name, c.content, c.stream_id, c.state, c.filtered, c.created_at,
	(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = c.id AND r.type = 'like'),
	(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = c.id AND r.type = 'dislike')`

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.UserID, &c.UserName, &c.Content, &c.StreamID, &c.State, &c.Filtered, &c.CreatedAt,
		&c.Reactions.Likes, &c.Reactions.Dislikes); err != nil {
		return nil, err
	}
	c.Approved = c.State == models.StateApproved
	return &c, nil
}

func collectComments(rows pgx.Rows) ([]models.Comment, error) {
	defer rows.Close()
	list := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, *c)
	}
	return list, database.Translate(rows.Err())
}

// Create inserts a comment.
func (r *Repository) Create(ctx context.Context, c *models.Comment) error {
	const query = `INSERT INTO comments (user_id, user_name, content, stream_id, state, filtered)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, c.UserID, c.UserName, c.Content, c.StreamID, c.State, c.Filtered).
		Scan(&c.ID, &c.CreatedAt)
	return database.Translate(err)
}

// GetByID returns a comment with its reaction counts.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments c WHERE c.id = $1`, id))
	if err != nil {
		return nil, database.Translate(err)
	}
	return c, nil
}

// Approve moves a pending comment to approved; nil without error if it was not pending.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return r.transition(ctx, id, models.StateApproved)
}

// Reject moves a pending comment to rejected; nil without error if it was not pending.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return r.transition(ctx, id, models.StateRejected)
}

func (r *Repository) transition(ctx context.Context, id uuid.UUID, to models.ModerationState) (*models.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx,
		`UPDATE comments c SET state = $2 WHERE c.id = $1 AND c.state = 'pending' RETURNING `+commentColumns, id, to))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, database.Translate(err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, nil
}

// Delete removes a comment and its reactions and returns it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, err := scanComment(r.pool.QueryRow(ctx, `DELETE FROM comments c WHERE c.id = $1 RETURNING `+commentColumns, id))
	if err != nil {
		return nil, database.Translate(err)
	}
	return c, nil
}

// ListApproved returns the approved comments of scope, newest first.
func (r *Repository) ListApproved(ctx context.Context, scope models.Scope, limit int) ([]models.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commentColumns+` FROM comments c
		 WHERE c.state = 'approved' AND c.stream_id IS NOT DISTINCT FROM $1
		 ORDER BY c.created_at DESC LIMIT $2`, scope.StreamRef(), limit)
	if err != nil {
		return nil, database.Translate(err)
	}
	return collectComments(rows)
}

// ListPending returns comments awaiting moderation, oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]models.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commentColumns+` FROM comments c WHERE c.state = 'pending' ORDER BY c.created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, database.Translate(err)
	}
	return collectComments(rows)
}

// UpsertReaction records the user's reaction to a comment; a later reaction replaces an earlier one.
func (r *Repository) UpsertReaction(ctx context.Context, commentID, userID uuid.UUID, t models.ReactionType) (models.ReactionStats, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO comment_reactions (comment_id, user_id, type) VALUES ($1, $2, $3)
		 ON CONFLICT (comment_id, user_id) DO UPDATE SET type = EXCLUDED.type, updated_at = NOW()`,
		commentID, userID, t)
	if err != nil {
		return models.ReactionStats{}, database.Translate(err)
	}
	return r.ReactionCounts(ctx, commentID)
}

// RemoveReaction deletes the user's reaction to a comment, if any.
func (r *Repository) RemoveReaction(ctx context.Context, commentID, userID uuid.UUID) (models.ReactionStats, error) {
	_, err := r.pool.Exec(ctx, `DELETE FROM comment_reactions WHERE comment_id = $1 AND user_id = $2`, commentID, userID)
	if err != nil {
		return models.ReactionStats{}, database.Translate(err)
	}
	return r.ReactionCounts(ctx, commentID)
}

// ReactionCounts tallies likes and dislikes of a comment.
func (r *Repository) ReactionCounts(ctx context.Context, commentID uuid.UUID) (models.ReactionStats, error) {
	var s models.ReactionStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE type = 'like'), COUNT(*) FILTER (WHERE type = 'dislike')
		 FROM comment_reactions WHERE comment_id = $1`, commentID).Scan(&s.Likes, &s.Dislikes)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return s, database.Translate(err)
	}
	return s, nil
}
