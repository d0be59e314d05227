package streams

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/internal/realtime/realtimetest"
)

type memStore struct {
	mu         sync.Mutex
	streams    map[uuid.UUID]*models.Stream
	peakWrites int
}

func (m *memStore) Create(_ context.Context, title string) (*models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.Stream{ID: uuid.New(), Title: title, Status: models.StreamOffline}
	m.streams[s.ID] = s
	return s, nil
}

func (m *memStore) List(context.Context) ([]models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.Stream
	for _, s := range m.streams {
		list = append(list, *s)
	}
	return list, nil
}

func (m *memStore) SetStatus(_ context.Context, id uuid.UUID, status models.StreamStatus) (*models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	s.Status = status
	cp := *s
	return &cp, nil
}

func (m *memStore) UpdatePeakViewers(ctx context.Context, id uuid.UUID, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peakWrites++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("peak update without deadline")
	}
	s, ok := m.streams[id]
	if !ok {
		return models.ErrNotFound
	}
	if count > s.PeakViewers {
		s.PeakViewers = count
	}
	return nil
}

func TestSetStatusBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memStore{streams: map[uuid.UUID]*models.Stream{}}
	hub := &realtimetest.Recorder{}
	h := NewHandler(store, hub, zap.NewNop())
	r := gin.New()
	r.POST("/streams", h.Create)
	r.PATCH("/streams/:id/status", h.SetStatus)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/streams", strings.NewReader(`{"title":"Main stage"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var id uuid.UUID
	for k := range store.streams {
		id = k
	}
	patch := func(path, body string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, patch("/streams/"+id.String()+"/status", `{"status":"live"}`))
	events := hub.Named(realtime.EventStreamStatus)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.Global(), events[0].Target)
	assert.Equal(t, models.StreamLive, events[0].Payload.(*models.Stream).Status)

	assert.Equal(t, http.StatusBadRequest, patch("/streams/"+id.String()+"/status", `{"status":"paused"}`))
	assert.Equal(t, http.StatusNotFound, patch("/streams/"+uuid.NewString()+"/status", `{"status":"ended"}`))
	assert.Len(t, hub.Events(), 1)
}

func TestPeakTracker(t *testing.T) {
	store := &memStore{streams: map[uuid.UUID]*models.Stream{}}
	h := NewHandler(store, &realtimetest.Recorder{}, zap.NewNop())
	s, err := store.Create(context.Background(), "s")
	require.NoError(t, err)

	track := h.PeakTracker()
	track(s.ID, 3)
	track(s.ID, 7)
	track(s.ID, 2)
	track(s.ID, 7)
	track(s.ID, 5)
	assert.Equal(t, 7, store.streams[s.ID].PeakViewers)
	assert.Equal(t, 2, store.peakWrites, "falling or equal counts skip the store")

	track(uuid.New(), 9)
	track(s.ID, 8)
	assert.Equal(t, 8, store.streams[s.ID].PeakViewers)
}
