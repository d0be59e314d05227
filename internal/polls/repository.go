package polls

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// activationLockKey serializes poll activation across connections.
const activationLockKey = 7_302_001

// Repository handles poll persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pollColumns = `id, stream_id, question, status, show_results, created_at`

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var p models.Poll
	if err := row.Scan(&p.ID, &p.StreamID, &p.Question, &p.Status, &p.ShowResults, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.IsActive = p.Status == models.PollActive
	return &p, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadOptions(ctx context.Context, q querier, p *models.Poll) error {
	rows, err := q.Query(ctx,
		`SELECT id, label, position FROM poll_options WHERE poll_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	p.Options = []models.PollOption{}
	for rows.Next() {
		var o models.PollOption
		if err := rows.Scan(&o.ID, &o.Label, &o.Position); err != nil {
			return err
		}
		p.Options = append(p.Options, o)
	}
	return rows.Err()
}

// Create inserts a draft poll and its ordered options.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return database.Translate(err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO polls (stream_id, question, show_results) VALUES ($1, $2, $3)
		 RETURNING id, status, created_at`, p.StreamID, p.Question, p.ShowResults).
		Scan(&p.ID, &p.Status, &p.CreatedAt)
	if err != nil {
		return database.Translate(err)
	}
	for i := range p.Options {
		o := &p.Options[i]
		o.Position = i
		err := tx.QueryRow(ctx,
			`INSERT INTO poll_options (poll_id, label, position) VALUES ($1, $2, $3) RETURNING id`,
			p.ID, o.Label, o.Position).Scan(&o.ID)
		if err != nil {
			return database.Translate(err)
		}
	}
	p.IsActive = false
	return database.Translate(tx.Commit(ctx))
}

// GetByID returns a poll with its options.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id))
	if err != nil {
		return nil, database.Translate(err)
	}
	if err := loadOptions(ctx, r.pool, p); err != nil {
		return nil, database.Translate(err)
	}
	return p, nil
}

// List returns polls newest first; a nil scope lists all of them.
func (r *Repository) List(ctx context.Context, scope *models.Scope) ([]models.Poll, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if scope == nil {
		rows, err = r.pool.Query(ctx, `SELECT `+pollColumns+` FROM polls ORDER BY created_at DESC`)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+pollColumns+` FROM polls
			WHERE stream_id IS NOT DISTINCT FROM $1 ORDER BY created_at DESC`, scope.StreamRef())
	}
	if err != nil {
		return nil, database.Translate(err)
	}
	list, err := collectPolls(rows)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if err := loadOptions(ctx, r.pool, &list[i]); err != nil {
			return nil, database.Translate(err)
		}
	}
	return list, nil
}

func collectPolls(rows pgx.Rows) ([]models.Poll, error) {
	defer rows.Close()
	list := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, *p)
	}
	return list, database.Translate(rows.Err())
}

// FindActive returns the active poll a viewer of scope sees: one bound to the stream,
// else a global one. ErrNotFound when there is none.
func (r *Repository) FindActive(ctx context.Context, scope models.Scope) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls
		WHERE status = 'active' AND (stream_id IS NULL OR stream_id = $1)
		ORDER BY stream_id NULLS LAST, created_at DESC LIMIT 1`, scope.StreamRef()))
	if err != nil {
		return nil, database.Translate(err)
	}
	if err := loadOptions(ctx, r.pool, p); err != nil {
		return nil, database.Translate(err)
	}
	return p, nil
}

// Activate makes a poll active and closes every active poll competing for its audience:
// a stream poll competes with polls of the same stream and global polls, a global poll
// with all of them. It returns the activated poll and the ones it closed.
func (r *Repository) Activate(ctx context.Context, id uuid.UUID) (*models.Poll, []models.Poll, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, database.Translate(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, activationLockKey); err != nil {
		return nil, nil, database.Translate(err)
	}
	target, err := scanPoll(tx.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, nil, database.Translate(err)
	}

	rows, err := tx.Query(ctx, `UPDATE polls SET status = 'closed'
		WHERE status = 'active' AND id <> $1
		  AND ($2::uuid IS NULL OR stream_id IS NULL OR stream_id = $2)
		RETURNING `+pollColumns, id, target.StreamID)
	if err != nil {
		return nil, nil, database.Translate(err)
	}
	deactivated, err := collectPolls(rows)
	if err != nil {
		return nil, nil, err
	}

	activated, err := scanPoll(tx.QueryRow(ctx,
		`UPDATE polls SET status = 'active' WHERE id = $1 RETURNING `+pollColumns, id))
	if err != nil {
		return nil, nil, database.Translate(err)
	}
	if err := loadOptions(ctx, tx, activated); err != nil {
		return nil, nil, database.Translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, database.Translate(err)
	}
	return activated, deactivated, nil
}

// Close moves a poll to closed.
func (r *Repository) Close(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx,
		`UPDATE polls SET status = 'closed' WHERE id = $1 AND status = 'active' RETURNING `+pollColumns, id))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, database.Translate(err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, models.ErrPollNotActive
}

// SetShowResults toggles whether viewers see the tally.
func (r *Repository) SetShowResults(ctx context.Context, id uuid.UUID, show bool) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx,
		`UPDATE polls SET show_results = $2 WHERE id = $1 RETURNING `+pollColumns, id, show))
	if err != nil {
		return nil, database.Translate(err)
	}
	return p, nil
}

// Delete removes a poll with its options and votes and returns it as it was.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx, `DELETE FROM polls WHERE id = $1 RETURNING `+pollColumns, id))
	if err != nil {
		return nil, database.Translate(err)
	}
	return p, nil
}

// CreateVote records a vote. The insert only succeeds while the poll is active and the
// option belongs to it; the (poll, user) unique constraint rejects a second vote.
func (r *Repository) CreateVote(ctx context.Context, v *models.PollVote) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO poll_votes (poll_id, option_id, user_id)
		SELECT p.id, o.id, $3 FROM polls p JOIN poll_options o ON o.poll_id = p.id
		WHERE p.id = $1 AND o.id = $2 AND p.status = 'active'
		RETURNING id, created_at`, v.PollID, v.OptionID, v.UserID).Scan(&v.ID, &v.CreatedAt)
	return voteError(err)
}

// voteError maps the outcome of the vote insert. The unique constraint on (poll, user)
// is what rejects a second vote; no rows means the poll was not active.
func voteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return models.ErrPollNotActive
	case database.IsUniqueViolation(err, database.PollVoteUniqueConstraint):
		return models.ErrDuplicateVote
	}
	return database.Translate(err)
}

// UserVote returns the user's vote on a poll, or ErrNotFound.
func (r *Repository) UserVote(ctx context.Context, pollID, userID uuid.UUID) (*models.PollVote, error) {
	var v models.PollVote
	err := r.pool.QueryRow(ctx,
		`SELECT id, poll_id, option_id, user_id, created_at FROM poll_votes WHERE poll_id = $1 AND user_id = $2`,
		pollID, userID).Scan(&v.ID, &v.PollID, &v.OptionID, &v.UserID, &v.CreatedAt)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &v, nil
}

// Results tallies votes per option in option order.
func (r *Repository) Results(ctx context.Context, pollID uuid.UUID) (*models.PollResults, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.label, COUNT(v.id)
		FROM poll_options o LEFT JOIN poll_votes v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.label, o.position
		ORDER BY o.position`, pollID)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	res := &models.PollResults{Options: []models.OptionResult{}}
	for rows.Next() {
		var o models.OptionResult
		if err := rows.Scan(&o.OptionID, &o.Label, &o.Votes); err != nil {
			return nil, database.Translate(err)
		}
		res.Total += o.Votes
		res.Options = append(res.Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("poll results: %w", database.Translate(err))
	}
	return res, nil
}
