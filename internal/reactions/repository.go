package reactions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// Repository persists stream reactions, one per (user, scope).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a stream reactions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert records the user's reaction in scope. The last write wins.
func (r *Repository) Upsert(ctx context.Context, userID uuid.UUID, scope models.Scope, t models.ReactionType) error {
	query := `INSERT INTO stream_reactions (user_id, stream_id, type) VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT ` + database.ReactionUniqueConstraint + `
		DO UPDATE SET type = EXCLUDED.type, updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query, userID, scope.StreamRef(), t)
	return database.Translate(err)
}

// Remove deletes the user's reaction in scope. Removing a missing reaction is not an error.
func (r *Repository) Remove(ctx context.Context, userID uuid.UUID, scope models.Scope) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM stream_reactions WHERE user_id = $1 AND stream_id IS NOT DISTINCT FROM $2`,
		userID, scope.StreamRef())
	return database.Translate(err)
}

// Stats tallies the reactions of scope.
func (r *Repository) Stats(ctx context.Context, scope models.Scope) (models.ReactionStats, error) {
	var s models.ReactionStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE type = 'like'), COUNT(*) FILTER (WHERE type = 'dislike')
		 FROM stream_reactions WHERE stream_id IS NOT DISTINCT FROM $1`, scope.StreamRef()).
		Scan(&s.Likes, &s.Dislikes)
	return s, database.Translate(err)
}

// UserReaction returns the user's current reaction in scope, or ErrNotFound.
func (r *Repository) UserReaction(ctx context.Context, userID uuid.UUID, scope models.Scope) (*models.Reaction, error) {
	var re models.Reaction
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, type, updated_at FROM stream_reactions
		 WHERE user_id = $1 AND stream_id IS NOT DISTINCT FROM $2`, userID, scope.StreamRef()).
		Scan(&re.UserID, &re.Type, &re.UpdatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &re, nil
}
