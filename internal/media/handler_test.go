package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
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
	"github.com/aura-live/backend/pkg/queue"
)

type memStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.MediaItem
}

func (m *memStore) Create(_ context.Context, item *models.MediaItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *memStore) List(context.Context, *uuid.UUID) ([]models.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.MediaItem
	for _, it := range m.items {
		list = append(list, *it)
	}
	return list, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) (*models.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(m.items, id)
	return it, nil
}

type fakeS3 struct {
	objects map[string][]byte
	deleted []string
	fail    bool
}

func (f *fakeS3) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.fail {
		return "", errors.New("s3 down")
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = b
	return "https://bucket/" + key, nil
}

func (f *fakeS3) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeQueue struct{ jobs []queue.MediaImportPayload }

func (q *fakeQueue) EnqueueMediaImport(_ context.Context, p queue.MediaImportPayload) error {
	q.jobs = append(q.jobs, p)
	return nil
}

type fixture struct {
	router *gin.Engine
	store  *memStore
	s3     *fakeS3
	jobs   *fakeQueue
	hub    *realtimetest.Recorder
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		store: &memStore{items: map[uuid.UUID]*models.MediaItem{}},
		s3:    &fakeS3{objects: map[string][]byte{}},
		jobs:  &fakeQueue{},
		hub:   &realtimetest.Recorder{},
	}
	h := NewHandler(f.store, f.s3, f.jobs, f.hub, zap.NewNop())
	f.router = gin.New()
	f.router.POST("/media", h.Upload)
	f.router.POST("/media/import", h.Import)
	f.router.DELETE("/media/:id", h.Delete)
	return f
}

func upload(t *testing.T, r http.Handler, filename, streamID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if streamID != "" {
		require.NoError(t, mw.WriteField("stream_id", streamID))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadStoresAndBroadcasts(t *testing.T) {
	f := newFixture()
	streamID := uuid.New()

	w := upload(t, f.router, "slide.PNG", streamID.String())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, f.s3.objects, 1)
	for key, body := range f.s3.objects {
		assert.True(t, strings.HasPrefix(key, "media/stream:"+streamID.String()+"/"))
		assert.True(t, strings.HasSuffix(key, ".png"))
		assert.Equal(t, "png-bytes", string(body))
	}

	events := f.hub.Named(realtime.EventMediaUpdate)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.Stream(streamID), events[0].Target)
	item := events[0].Payload.(*models.MediaItem)
	assert.Equal(t, models.MediaReady, item.Status)
	assert.Equal(t, "image/png", item.FileType)
}

func TestUploadRejectsBadInput(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusBadRequest, upload(t, f.router, "run.exe", "").Code)
	assert.Equal(t, http.StatusBadRequest, upload(t, f.router, "a.png", "nope").Code)

	f.s3.fail = true
	assert.Equal(t, http.StatusInternalServerError, upload(t, f.router, "a.png", "").Code)
	assert.Empty(t, f.store.items)
	assert.Empty(t, f.hub.Events())
}

func TestImportEnqueuesJob(t *testing.T) {
	f := newFixture()
	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/media/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusAccepted, post(`{"sourceUrl":"https://cdn.example.com/deck.pdf"}`))
	require.Len(t, f.jobs.jobs, 1)
	job := f.jobs.jobs[0]
	assert.Equal(t, "https://cdn.example.com/deck.pdf", job.SourceURL)
	assert.Nil(t, job.StreamID)
	stored := f.store.items[job.MediaID]
	require.NotNil(t, stored)
	assert.Equal(t, models.MediaPending, stored.Status)
	assert.Empty(t, f.hub.Events(), "the worker announces imports once they are ready")

	assert.Equal(t, http.StatusBadRequest, post(`{"sourceUrl":"file:///etc/passwd"}`))
	assert.Equal(t, http.StatusBadRequest, post(`{}`))
	assert.Len(t, f.jobs.jobs, 1)
}

func TestDeleteRemovesObject(t *testing.T) {
	f := newFixture()
	require.Equal(t, http.StatusCreated, upload(t, f.router, "a.jpg", "").Code)
	var id uuid.UUID
	var key string
	for k, it := range f.store.items {
		id, key = k, it.S3Key
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/media/"+id.String(), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{key}, f.s3.deleted)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/media/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
