package sessionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/database"
)

// AttendeeRow is one row of the attendee list.
type AttendeeRow struct {
	UserID       uuid.UUID  `json:"userId"`
	UserName     string     `json:"userName"`
	StreamID     *uuid.UUID `json:"streamId,omitempty"`
	JoinedAt     time.Time  `json:"joinedAt"`
	LeftAt       *time.Time `json:"leftAt,omitempty"`
	WatchSeconds *int64     `json:"watchSeconds,omitempty"`
}

// Repository handles session_logs and the analytics snapshot series.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Open inserts an open session and fills in its id.
func (r *Repository) Open(ctx context.Context, s *models.ViewerSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO session_logs (user_id, channel_id, stream_id, ip_address, entry_time)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.UserID, s.ChannelID, s.StreamID, s.IPAddress, s.EntryTime).Scan(&s.ID)
	return database.Translate(err)
}

// Close sets exit time and duration on an open session. Closing an already closed session is a no-op.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, exit time.Time, durationSec int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE session_logs SET exit_time = $2, duration = $3 WHERE id = $1 AND exit_time IS NULL`,
		id, exit, durationSec)
	return database.Translate(err)
}

// CloseOrphans closes sessions left open by a previous process, measuring them up to now.
func (r *Repository) CloseOrphans(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE session_logs
		 SET exit_time = $1, duration = GREATEST(0, EXTRACT(EPOCH FROM ($1 - entry_time))::BIGINT)
		 WHERE exit_time IS NULL`, now)
	if err != nil {
		return 0, database.Translate(err)
	}
	return tag.RowsAffected(), nil
}

// RecordSnapshot appends a point to the concurrent-viewer series.
func (r *Repository) RecordSnapshot(ctx context.Context, at time.Time, count int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO analytics (recorded_at, viewer_count) VALUES ($1, $2)`, at, count)
	return database.Translate(err)
}

// ListSnapshots returns the viewer series since the given time, oldest first.
func (r *Repository) ListSnapshots(ctx context.Context, since time.Time) ([]models.ViewerSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT recorded_at, viewer_count FROM analytics WHERE recorded_at >= $1 ORDER BY recorded_at`, since)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	list := []models.ViewerSnapshot{}
	for rows.Next() {
		var s models.ViewerSnapshot
		if err := rows.Scan(&s.RecordedAt, &s.ViewerCount); err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, s)
	}
	return list, database.Translate(rows.Err())
}

// WatchTimeAggregates summarizes closed sessions.
type WatchTimeAggregates struct {
	Sessions          int     `json:"sessions"`
	DistinctUsers     int     `json:"distinctUsers"`
	TotalWatchSeconds int64   `json:"totalWatchSeconds"`
	AvgWatchSeconds   float64 `json:"avgWatchSeconds"`
	OpenSessions      int     `json:"openSessions"`
}

// GetWatchTimeAggregates returns session totals, optionally limited to one stream.
func (r *Repository) GetWatchTimeAggregates(ctx context.Context, streamID *uuid.UUID) (*WatchTimeAggregates, error) {
	const q = `SELECT COUNT(*) FILTER (WHERE exit_time IS NOT NULL),
	                  COUNT(DISTINCT user_id),
	                  COALESCE(SUM(duration), 0),
	                  COALESCE(AVG(duration), 0)::FLOAT8,
	                  COUNT(*) FILTER (WHERE exit_time IS NULL)
	           FROM session_logs WHERE ($1::UUID IS NULL OR stream_id = $1)`
	var agg WatchTimeAggregates
	err := r.pool.QueryRow(ctx, q, streamID).Scan(
		&agg.Sessions, &agg.DistinctUsers, &agg.TotalWatchSeconds, &agg.AvgWatchSeconds, &agg.OpenSessions)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &agg, nil
}

// ListAttendees returns sessions newest first, optionally limited to one stream.
func (r *Repository) ListAttendees(ctx context.Context, streamID *uuid.UUID, limit int) ([]AttendeeRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.user_id, COALESCE(u.name, ''), s.stream_id, s.entry_time, s.exit_time, s.duration
		 FROM session_logs s LEFT JOIN users u ON u.id = s.user_id
		 WHERE ($1::UUID IS NULL OR s.stream_id = $1)
		 ORDER BY s.entry_time DESC LIMIT $2`,
		streamID, limit)
	if err != nil {
		return nil, database.Translate(err)
	}
	defer rows.Close()
	list := []AttendeeRow{}
	for rows.Next() {
		var row AttendeeRow
		if err := rows.Scan(&row.UserID, &row.UserName, &row.StreamID, &row.JoinedAt, &row.LeftAt, &row.WatchSeconds); err != nil {
			return nil, database.Translate(err)
		}
		list = append(list, row)
	}
	return list, database.Translate(rows.Err())
}
