package chat

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/moderation"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/internal/realtime/realtimetest"
)

type memStore struct {
	mu        sync.Mutex
	msgs      map[uuid.UUID]*models.ChatMessage
	clock     time.Time
	createErr error
	creates   int
}

func newMemStore() *memStore {
	return &memStore{msgs: map[uuid.UUID]*models.ChatMessage{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) Create(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	m.clock = m.clock.Add(time.Second)
	msg.ID = uuid.New()
	msg.CreatedAt = m.clock
	cp := *msg
	m.msgs[msg.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *memStore) transition(id uuid.UUID, to models.ModerationState) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if msg.State != models.StatePending {
		return nil, nil
	}
	msg.State = to
	msg.Approved = to == models.StateApproved
	cp := *msg
	return &cp, nil
}

func (m *memStore) Approve(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	return m.transition(id, models.StateApproved)
}

func (m *memStore) Reject(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	return m.transition(id, models.StateRejected)
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(m.msgs, id)
	return msg, nil
}

func (m *memStore) SetHighlighted(_ context.Context, id uuid.UUID, h bool) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	msg.Highlighted = h
	cp := *msg
	return &cp, nil
}

func (m *memStore) FindRecent(_ context.Context, scope models.Scope, limit int, all bool) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.ChatMessage
	for _, msg := range m.msgs {
		if msg.State == models.StateApproved && (all || msg.Scope() == scope) {
			list = append(list, *msg)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (m *memStore) ListPending(_ context.Context, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.ChatMessage
	for _, msg := range m.msgs {
		if msg.State == models.StatePending {
			list = append(list, *msg)
		}
	}
	return list, nil
}

type staticSettings struct{ s models.Settings }

func (s *staticSettings) Current(context.Context) (models.Settings, error) { return s.s, nil }

type users map[uuid.UUID]*models.User

func (u users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, models.ErrNotFound
}

type fixture struct {
	svc      *Service
	store    *memStore
	settings *staticSettings
	hub      *realtimetest.Recorder
	user     uuid.UUID
	admin    uuid.UUID
	banned   uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store: newMemStore(),
		settings: &staticSettings{s: models.Settings{FeatureFlags: models.FeatureFlags{
			ChatEnabled: true, ChatGlobal: false,
		}}},
		hub:    &realtimetest.Recorder{},
		user:   uuid.New(),
		admin:  uuid.New(),
		banned: uuid.New(),
	}
	u := users{
		f.user:   {ID: f.user, Name: "Alice", Role: models.RoleUser, Status: models.StatusActive},
		f.admin:  {ID: f.admin, Name: "Root", Role: models.RoleAdmin, Status: models.StatusActive},
		f.banned: {ID: f.banned, Name: "Troll", Role: models.RoleUser, Status: models.StatusBanned},
	}
	f.svc = NewService(f.store, f.settings, u, moderation.NewEvaluator(false),
		moderation.NewFilter("[removed]", nil), f.hub, 50, zap.NewNop())
	return f
}

func TestSubmitApprovedBroadcastsToStream(t *testing.T) {
	f := newFixture()
	streamID := uuid.New()

	msg, err := f.svc.Submit(context.Background(), SubmitInput{UserID: f.user, StreamID: &streamID, Content: "hello"})
	require.NoError(t, err)
	assert.True(t, msg.Approved)
	assert.Equal(t, models.StateApproved, msg.State)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "Alice", msg.UserName)

	events := f.hub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventChatMessage, events[0].Name)
	assert.Equal(t, realtime.Stream(streamID), events[0].Target)
}

func TestSubmitGlobalChatIgnoresStream(t *testing.T) {
	f := newFixture()
	f.settings.s.ChatGlobal = true
	streamID := uuid.New()

	msg, err := f.svc.Submit(context.Background(), SubmitInput{UserID: f.user, StreamID: &streamID, Content: "hi all"})
	require.NoError(t, err)
	assert.Nil(t, msg.StreamID)
	assert.Equal(t, realtime.Global(), f.hub.Events()[0].Target)
}

func TestSubmitRedactsButDelivers(t *testing.T) {
	f := newFixture()
	f.settings.s.DenyList = []string{"spam"}

	msg, err := f.svc.Submit(context.Background(), SubmitInput{UserID: f.user, Content: "this is spam"})
	require.NoError(t, err)
	assert.Equal(t, "[removed]", msg.Content)
	assert.True(t, msg.Filtered)
	assert.True(t, msg.Approved)

	stored, err := f.store.GetByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "[removed]", stored.Content)
	require.Len(t, f.hub.Named(realtime.EventChatMessage), 1)
}

func TestModerationGate(t *testing.T) {
	f := newFixture()
	f.settings.s.ChatModerated = true
	ctx := context.Background()

	msg, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, Content: "question?"})
	require.NoError(t, err)
	assert.False(t, msg.Approved)
	pending := f.hub.Named(realtime.EventChatPending)
	require.Len(t, pending, 1)
	assert.Equal(t, realtime.Admins(), pending[0].Target)
	assert.Empty(t, f.hub.Named(realtime.EventChatMessage))

	msg, err = f.svc.Submit(ctx, SubmitInput{UserID: f.admin, Content: "welcome"})
	require.NoError(t, err)
	assert.True(t, msg.Approved)
	assert.Equal(t, models.RoleAdmin, msg.UserRole)

	creates := f.store.creates
	_, err = f.svc.Submit(ctx, SubmitInput{UserID: f.banned, Content: "let me in"})
	require.ErrorIs(t, err, models.ErrBanned)
	assert.Equal(t, creates, f.store.creates, "banned users never reach the store")
}

func TestSubmitStorageFailureDoesNotBroadcast(t *testing.T) {
	f := newFixture()
	f.store.createErr = models.ErrStorage

	_, err := f.svc.Submit(context.Background(), SubmitInput{UserID: f.user, Content: "hello"})
	require.ErrorIs(t, err, models.ErrStorage)
	assert.Empty(t, f.hub.Events())
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, Content: "   "})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	long := make([]rune, MaxContentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = f.svc.Submit(ctx, SubmitInput{UserID: f.user, Content: string(long)})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.Submit(ctx, SubmitInput{UserID: uuid.New(), Content: "who am i"})
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, f.hub.Events())
}

func TestSubmitFromSocket(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	streamID := uuid.New()

	err := f.svc.SubmitFromSocket(ctx, realtime.Sender{ClientID: "anon"}, json.RawMessage(`{"content":"hi"}`))
	require.ErrorIs(t, err, models.ErrUnauthenticated)

	sender := realtime.Sender{ClientID: "c1", UserID: &f.user, Name: "Alice", Role: models.RoleUser, StreamID: &streamID}
	payload := json.RawMessage(`{"userId":"` + f.admin.String() + `","userRole":"admin","content":"hi"}`)
	require.NoError(t, f.svc.SubmitFromSocket(ctx, sender, payload))

	events := f.hub.Named(realtime.EventChatMessage)
	require.Len(t, events, 1)
	msg := events[0].Payload.(*models.ChatMessage)
	assert.Equal(t, f.user, *msg.UserID)
	assert.Equal(t, models.RoleUser, msg.UserRole)
	assert.Equal(t, realtime.Stream(streamID), events[0].Target)

	err = f.svc.SubmitFromSocket(ctx, sender, json.RawMessage(`not json`))
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestApproveRejectTransitions(t *testing.T) {
	f := newFixture()
	f.settings.s.ChatModerated = true
	ctx := context.Background()
	streamID := uuid.New()

	a, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, StreamID: &streamID, Content: "one"})
	require.NoError(t, err)
	b, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, Content: "two"})
	require.NoError(t, err)
	f.hub.Reset()

	approved, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	events := f.hub.Named(realtime.EventChatMessage)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.Stream(streamID), events[0].Target)

	again, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, again.Approved)
	assert.Len(t, f.hub.Named(realtime.EventChatMessage), 1, "second approve is silent")

	rejected, err := f.svc.Reject(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, rejected.State)
	del := f.hub.Named(realtime.EventChatDelete)
	require.Len(t, del, 1)
	assert.Equal(t, realtime.Admins(), del[0].Target)

	_, err = f.svc.Approve(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteAndHighlight(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	streamID := uuid.New()
	msg, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, StreamID: &streamID, Content: "pin me"})
	require.NoError(t, err)
	f.hub.Reset()

	updated, err := f.svc.Highlight(ctx, msg.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Highlighted)
	require.Len(t, f.hub.Named(realtime.EventChatUpdate), 1)

	require.NoError(t, f.svc.Delete(ctx, msg.ID))
	del := f.hub.Named(realtime.EventChatDelete)
	require.Len(t, del, 2)
	assert.Equal(t, realtime.Stream(streamID), del[0].Target)
	assert.Equal(t, realtime.Admins(), del[1].Target)
	assert.Equal(t, map[string]any{"id": msg.ID}, del[0].Payload)

	err = f.svc.Delete(ctx, msg.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s1, s2 := uuid.New(), uuid.New()

	for _, c := range []string{"a", "b", "c"} {
		_, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, StreamID: &s1, Content: c})
		require.NoError(t, err)
	}
	_, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, StreamID: &s2, Content: "other"})
	require.NoError(t, err)

	list, err := f.svc.History(ctx, &s1, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].Content, list[1].Content, list[2].Content})

	all, err := f.svc.History(ctx, nil, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// Switching to global chat does not reinterpret messages stored per stream.
	f.settings.s.ChatGlobal = true
	global, err := f.svc.History(ctx, &s1, false)
	require.NoError(t, err)
	assert.Empty(t, global)
}

func TestHistoryWindowIsNewestInChronologicalOrder(t *testing.T) {
	f := newFixture()
	f.svc.historyLimit = 2
	ctx := context.Background()
	for _, c := range []string{"1", "2", "3"} {
		_, err := f.svc.Submit(ctx, SubmitInput{UserID: f.user, Content: c})
		require.NoError(t, err)
	}
	list, err := f.svc.History(ctx, nil, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[0].Content)
	assert.Equal(t, "3", list[1].Content)
}
