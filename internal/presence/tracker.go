// Package presence tracks which connections have declared themselves viewers, keeps the live
// viewer rooms current and records one session row per (user, connection).
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/realtime"
)

// SessionStore persists viewer sessions and the viewer-count series.
type SessionStore interface {
	Open(ctx context.Context, s *models.ViewerSession) error
	Close(ctx context.Context, id uuid.UUID, exit time.Time, durationSec int64) error
	RecordSnapshot(ctx context.Context, at time.Time, count int) error
}

// CountHandler is called with the viewer count of a stream after it changes (e.g. for peak tracking).
type CountHandler func(streamID uuid.UUID, count int)

type viewer struct {
	sender    realtime.Sender
	sessionID uuid.UUID // uuid.Nil when no session row was opened
	entryTime time.Time
}

// Tracker owns the viewer rooms. It is the only writer of RoomViewers and the per-stream
// viewer rooms; the router and the snapshot loop only read them.
type Tracker struct {
	mu      sync.Mutex
	active  map[string]*viewer // client id -> viewer
	rooms   *realtime.Rooms
	hub     realtime.Broadcaster
	store   SessionStore
	logger  *zap.Logger
	now     func() time.Time
	onCount CountHandler
}

// NewTracker creates a presence tracker.
func NewTracker(rooms *realtime.Rooms, hub realtime.Broadcaster, store SessionStore, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		active: make(map[string]*viewer),
		rooms:  rooms,
		hub:    hub,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SetCountHandler sets the callback for stream viewer count changes.
func (t *Tracker) SetCountHandler(fn CountHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCount = fn
}

// Count returns the number of active viewers.
func (t *Tracker) Count() int { return t.rooms.Size(realtime.RoomViewers) }

// StreamCount returns the number of active viewers of one stream.
func (t *Tracker) StreamCount(streamID uuid.UUID) int {
	return t.rooms.Size(realtime.StreamViewersRoom(streamID))
}

// Join marks the connection as viewing. A repeated join for the same stream is a no-op; a join
// for a different stream closes the current session and opens a new one. Anonymous viewers
// are counted but get no session row.
func (t *Tracker) Join(ctx context.Context, s realtime.Sender) error {
	t.mu.Lock()
	if cur, ok := t.active[s.ClientID]; ok {
		same := sameStream(cur.sender.StreamID, s.StreamID)
		t.mu.Unlock()
		if same {
			return nil
		}
		t.end(ctx, s.ClientID)
		t.mu.Lock()
	}
	v := &viewer{sender: s, entryTime: t.now()}
	t.active[s.ClientID] = v
	t.rooms.Join(realtime.RoomViewers, s.ClientID)
	if s.StreamID != nil {
		t.rooms.Join(realtime.StreamViewersRoom(*s.StreamID), s.ClientID)
	}
	t.mu.Unlock()

	if s.UserID != nil {
		session := &models.ViewerSession{
			UserID:    *s.UserID,
			ChannelID: s.ClientID,
			StreamID:  s.StreamID,
			IPAddress: s.IP,
			EntryTime: v.entryTime,
		}
		if err := t.store.Open(ctx, session); err != nil {
			// The viewer still counts; only the history row is missing.
			t.logger.Error("open viewer session failed",
				zap.String("client_id", s.ClientID), zap.String("user_id", s.UserID.String()), zap.Error(err))
		} else {
			t.mu.Lock()
			current := t.active[s.ClientID] == v
			if current {
				v.sessionID = session.ID
			}
			t.mu.Unlock()
			// The viewer left while the row was being written; end() could not see it.
			if !current {
				t.closeSession(ctx, s.ClientID, session.ID, v.entryTime)
			}
		}
	}
	t.logger.Debug("viewer joined", zap.String("client_id", s.ClientID))
	t.publish(s.StreamID)
	return nil
}

// Leave ends the connection's presence. Leaving while not viewing is a no-op.
func (t *Tracker) Leave(ctx context.Context, clientID string) error {
	t.end(ctx, clientID)
	return nil
}

// Disconnect ends presence for a dropped connection. It never fails.
func (t *Tracker) Disconnect(ctx context.Context, clientID string) {
	t.end(ctx, clientID)
}

// CloseAll ends every active presence, e.g. on shutdown.
func (t *Tracker) CloseAll(ctx context.Context) {
	t.mu.Lock()
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		t.end(ctx, id)
	}
}

func (t *Tracker) end(ctx context.Context, clientID string) {
	t.mu.Lock()
	v, ok := t.active[clientID]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.active, clientID)
	t.rooms.Leave(realtime.RoomViewers, clientID)
	if v.sender.StreamID != nil {
		t.rooms.Leave(realtime.StreamViewersRoom(*v.sender.StreamID), clientID)
	}
	sessionID := v.sessionID
	t.mu.Unlock()

	if sessionID != uuid.Nil {
		t.closeSession(ctx, clientID, sessionID, v.entryTime)
	}
	t.logger.Debug("viewer left", zap.String("client_id", clientID))
	t.publish(v.sender.StreamID)
}

func (t *Tracker) closeSession(ctx context.Context, clientID string, sessionID uuid.UUID, entry time.Time) {
	exit := t.now()
	duration := int64(exit.Sub(entry) / time.Second)
	if duration < 0 {
		duration = 0
	}
	if err := t.store.Close(ctx, sessionID, exit, duration); err != nil {
		metrics.SessionCloseFailures.Inc()
		t.logger.Error("close viewer session failed",
			zap.String("client_id", clientID), zap.String("session_id", sessionID.String()), zap.Error(err))
	}
}

// publish pushes live counts computed from room membership.
func (t *Tracker) publish(streamID *uuid.UUID) {
	count := t.rooms.Size(realtime.RoomViewers)
	metrics.ActiveViewers.Set(float64(count))
	t.hub.Broadcast(realtime.EventStatsViewers, map[string]int{"count": count}, realtime.Global())
	if streamID == nil {
		return
	}
	sc := t.rooms.Size(realtime.StreamViewersRoom(*streamID))
	t.hub.Broadcast(realtime.EventStatsViewers, map[string]any{"count": sc, "streamId": *streamID}, realtime.Stream(*streamID))

	t.mu.Lock()
	onCount := t.onCount
	t.mu.Unlock()
	if onCount != nil {
		onCount(*streamID, sc)
	}
}

func sameStream(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
