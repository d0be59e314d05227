package settings

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// Patch changes a subset of the settings. Nil fields are left as they are.
type Patch struct {
	ChatEnabled      *bool     `json:"chatEnabled"`
	PollsEnabled     *bool     `json:"pollsEnabled"`
	CommentsEnabled  *bool     `json:"commentsEnabled"`
	QuestionsEnabled *bool     `json:"questionsEnabled"`
	ChatModerated    *bool     `json:"chatModerated"`
	ChatGlobal       *bool     `json:"chatGlobal"`
	DenyList         *[]string `json:"denyList"`
}

// Repository reads and writes the single settings row. Every read goes to the database so
// decisions always see the current flags.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectSettings = `SELECT chat_enabled, polls_enabled, comments_enabled, questions_enabled,
	chat_moderated, chat_global, deny_list, updated_at FROM settings WHERE id`

func scanSettings(row pgx.Row) (models.Settings, error) {
	var s models.Settings
	err := row.Scan(&s.ChatEnabled, &s.PollsEnabled, &s.CommentsEnabled, &s.QuestionsEnabled,
		&s.ChatModerated, &s.ChatGlobal, &s.DenyList, &s.UpdatedAt)
	if s.DenyList == nil {
		s.DenyList = []string{}
	}
	return s, err
}

// Current returns the settings in effect now.
func (r *Repository) Current(ctx context.Context) (models.Settings, error) {
	s, err := scanSettings(r.pool.QueryRow(ctx, selectSettings))
	if err != nil {
		return models.Settings{}, database.Translate(err)
	}
	return s, nil
}

// Update applies p and returns the resulting settings.
func (r *Repository) Update(ctx context.Context, p Patch) (models.Settings, error) {
	var deny []string
	if p.DenyList != nil {
		deny = *p.DenyList
		if deny == nil {
			deny = []string{}
		}
	}
	const q = `UPDATE settings SET
		chat_enabled      = COALESCE($1, chat_enabled),
		polls_enabled     = COALESCE($2, polls_enabled),
		comments_enabled  = COALESCE($3, comments_enabled),
		questions_enabled = COALESCE($4, questions_enabled),
		chat_moderated    = COALESCE($5, chat_moderated),
		chat_global       = COALESCE($6, chat_global),
		deny_list         = COALESCE($7, deny_list),
		updated_at        = NOW()
	WHERE id
	RETURNING chat_enabled, polls_enabled, comments_enabled, questions_enabled,
		chat_moderated, chat_global, deny_list, updated_at`
	s, err := scanSettings(r.pool.QueryRow(ctx, q,
		p.ChatEnabled, p.PollsEnabled, p.CommentsEnabled, p.QuestionsEnabled, p.ChatModerated, p.ChatGlobal, deny))
	if err != nil {
		return models.Settings{}, database.Translate(err)
	}
	return s, nil
}

// ResetEvent deletes every interaction of the event in one transaction. Users, streams,
// settings and media are kept.
func (r *Repository) ResetEvent(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return database.Translate(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, table := range []string{
		"poll_votes", "poll_options", "polls",
		"comment_reactions", "comments",
		"questions", "messages", "stream_reactions",
		"session_logs", "analytics",
	} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return database.Translate(err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE streams SET peak_viewers = 0`); err != nil {
		return database.Translate(err)
	}
	return database.Translate(tx.Commit(ctx))
}
