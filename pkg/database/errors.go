package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aura-live/backend/internal/models"
)

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Named constraints the repositories match on. They must stay in sync with migrations/.
const (
	PollVoteUniqueConstraint = "poll_votes_poll_user_key"
	ReactionUniqueConstraint = "stream_reactions_user_scope_key"
)

// IsUniqueViolation reports whether err is a unique constraint violation, optionally on a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Translate maps driver errors onto the domain taxonomy: missing rows and dangling
// references become ErrNotFound, unique violations ErrConstraintViolation, anything else ErrStorage.
// Domain errors pass through unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *models.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", models.ErrNotFound, pgErr.ConstraintName)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", models.ErrConstraintViolation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %w", models.ErrStorage, err)
}
