package reactions

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/moderation"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/internal/realtime/realtimetest"
)

type key struct {
	user  uuid.UUID
	scope models.Scope
}

// memStore keys rows the way the unique constraint does.
type memStore struct {
	mu   sync.Mutex
	rows map[key]models.ReactionType
}

func newMemStore() *memStore { return &memStore{rows: map[key]models.ReactionType{}} }

func (m *memStore) Upsert(_ context.Context, userID uuid.UUID, scope models.Scope, t models.ReactionType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key{userID, scope}] = t
	return nil
}

func (m *memStore) Remove(_ context.Context, userID uuid.UUID, scope models.Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key{userID, scope})
	return nil
}

func (m *memStore) Stats(_ context.Context, scope models.Scope) (models.ReactionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.ReactionStats
	for k, t := range m.rows {
		if k.scope != scope {
			continue
		}
		if t == models.ReactionLike {
			s.Likes++
		} else {
			s.Dislikes++
		}
	}
	return s, nil
}

func (m *memStore) UserReaction(_ context.Context, userID uuid.UUID, scope models.Scope) (*models.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[key{userID, scope}]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.Reaction{UserID: userID, Type: t}, nil
}

type staticSettings struct{ s models.Settings }

func (s *staticSettings) Current(context.Context) (models.Settings, error) { return s.s, nil }

func newService(store *memStore) (*Service, *realtimetest.Recorder) {
	hub := &realtimetest.Recorder{}
	return NewService(store, &staticSettings{}, moderation.NewEvaluator(true), hub, zap.NewNop()), hub
}

func TestReactTwiceKeepsLatest(t *testing.T) {
	store := newMemStore()
	svc, hub := newService(store)
	ctx := context.Background()
	user := uuid.New()
	streamID := uuid.New()

	stats, err := svc.React(ctx, user, models.RoleUser, &streamID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionStats{Likes: 1}, stats)

	stats, err = svc.React(ctx, user, models.RoleUser, &streamID, models.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionStats{Dislikes: 1}, stats)
	assert.Len(t, store.rows, 1)

	events := hub.Named(realtime.EventReactionUpdate)
	require.Len(t, events, 2)
	assert.Equal(t, realtime.Stream(streamID), events[1].Target)
	assert.Equal(t, UpdatePayload{StreamID: &streamID, Stats: models.ReactionStats{Dislikes: 1}}, events[1].Payload)
}

func TestUnreactDecrementsByOne(t *testing.T) {
	store := newMemStore()
	svc, hub := newService(store)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, err := svc.React(ctx, a, models.RoleUser, nil, models.ReactionLike)
	require.NoError(t, err)
	_, err = svc.React(ctx, b, models.RoleUser, nil, models.ReactionLike)
	require.NoError(t, err)

	stats, err := svc.Unreact(ctx, a, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionStats{Likes: 1}, stats)

	stats, err = svc.Unreact(ctx, a, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionStats{Likes: 1}, stats, "removing twice changes nothing")

	last := hub.Events()[len(hub.Events())-1]
	assert.Equal(t, realtime.Global(), last.Target)
	assert.Nil(t, last.Payload.(UpdatePayload).StreamID)
}

func TestScopesAreIndependent(t *testing.T) {
	svc, _ := newService(newMemStore())
	ctx := context.Background()
	user := uuid.New()
	s1, s2 := uuid.New(), uuid.New()

	_, err := svc.React(ctx, user, models.RoleUser, &s1, models.ReactionLike)
	require.NoError(t, err)
	_, err = svc.React(ctx, user, models.RoleUser, &s2, models.ReactionDislike)
	require.NoError(t, err)

	stats, mine, err := svc.Stats(ctx, &s1, &user)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionStats{Likes: 1}, stats)
	require.NotNil(t, mine)
	assert.Equal(t, models.ReactionLike, *mine)

	stats, mine, err = svc.Stats(ctx, nil, &user)
	require.NoError(t, err)
	assert.Zero(t, stats)
	assert.Nil(t, mine)
}

func TestConcurrentReactsLeaveOneRowPerUser(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store)
	user := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rt := models.ReactionLike
			if i%2 == 1 {
				rt = models.ReactionDislike
			}
			_, _ = svc.React(context.Background(), user, models.RoleUser, nil, rt)
		}(i)
	}
	wg.Wait()

	stats, _, err := svc.Stats(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Likes+stats.Dislikes)
}

func TestInvalidType(t *testing.T) {
	svc, hub := newService(newMemStore())
	_, err := svc.React(context.Background(), uuid.New(), models.RoleUser, nil, "love")
	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, hub.Events())
}
