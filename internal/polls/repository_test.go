package polls

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

func TestVoteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"second vote hits the unique constraint",
			&pgconn.PgError{Code: "23505", ConstraintName: database.PollVoteUniqueConstraint}, models.ErrDuplicateVote},
		{"wrapped duplicate",
			fmt.Errorf("scan: %w", &pgconn.PgError{Code: "23505", ConstraintName: database.PollVoteUniqueConstraint}), models.ErrDuplicateVote},
		{"other unique constraint",
			&pgconn.PgError{Code: "23505", ConstraintName: "poll_options_poll_id_position_key"}, models.ErrConstraintViolation},
		{"poll not active", pgx.ErrNoRows, models.ErrPollNotActive},
		{"user deleted meanwhile",
			&pgconn.PgError{Code: "23503", ConstraintName: "poll_votes_user_id_fkey"}, models.ErrNotFound},
		{"connection lost", errors.New("conn closed"), models.ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, voteError(tt.err), tt.want)
		})
	}
	assert.NoError(t, voteError(nil))
}
