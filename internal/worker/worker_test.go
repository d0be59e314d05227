package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/pkg/queue"
)

type memMedia struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.MediaItem
}

func (m *memMedia) GetByID(_ context.Context, id uuid.UUID) (*models.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memMedia) MarkReady(_ context.Context, id uuid.UUID, fileURL, key, fileType string, size int64) (*models.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.items[id]
	it.FileURL, it.S3Key, it.FileType, it.FileSize, it.Status = fileURL, key, fileType, size, models.MediaReady
	cp := *it
	return &cp, nil
}

func (m *memMedia) MarkFailed(_ context.Context, id uuid.UUID) (*models.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.items[id]
	it.Status = models.MediaFailed
	cp := *it
	return &cp, nil
}

type fakeS3 struct {
	keys []string
	body string
}

func (f *fakeS3) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.body = string(b)
	return "https://bucket/" + key, nil
}

type fakeQueue struct{ retried []int }

func (q *fakeQueue) Dequeue(context.Context) (*queue.Job, string, error) { return nil, "", nil }

func (q *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	job.Attempt++
	q.retried = append(q.retried, job.Attempt)
	return nil
}

type published struct {
	event  string
	item   *models.MediaItem
	target realtime.Target
}

type fakePublisher struct{ events []published }

func (p *fakePublisher) Publish(_ context.Context, event string, payload any, target realtime.Target) error {
	p.events = append(p.events, published{event, payload.(*models.MediaItem), target})
	return nil
}

type fixture struct {
	proc   *MediaProcessor
	media  *memMedia
	s3     *fakeS3
	queue  *fakeQueue
	events *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		media:  &memMedia{items: map[uuid.UUID]*models.MediaItem{}},
		s3:     &fakeS3{},
		queue:  &fakeQueue{},
		events: &fakePublisher{},
	}
	f.proc = NewMediaProcessor(f.media, f.s3, f.queue, f.events, zap.NewNop())
	f.proc.backoff = 0
	return f
}

func (f *fixture) job(t *testing.T, streamID *uuid.UUID, source string) *queue.Job {
	t.Helper()
	item := &models.MediaItem{ID: uuid.New(), StreamID: streamID, SourceURL: source, Status: models.MediaPending}
	f.media.items[item.ID] = item
	body, err := json.Marshal(queue.MediaImportPayload{MediaID: item.ID, StreamID: streamID, SourceURL: source})
	require.NoError(t, err)
	return &queue.Job{ID: "j1", Type: queue.JobTypeMediaImport, Payload: body}
}

func TestProcessImportsAndAnnounces(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer src.Close()

	f := newFixture()
	streamID := uuid.New()
	job := f.job(t, &streamID, src.URL+"/decks/keynote.pdf")

	require.NoError(t, f.proc.Process(context.Background(), job))
	require.Len(t, f.s3.keys, 1)
	assert.Equal(t, "%PDF-1.7", f.s3.body)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, realtime.EventMediaUpdate, ev.event)
	assert.Equal(t, realtime.Stream(streamID), ev.target)
	assert.Equal(t, models.MediaReady, ev.item.Status)
	assert.Equal(t, "application/pdf", ev.item.FileType)
	assert.Equal(t, int64(8), ev.item.FileSize)

	// a repeated job is a no-op
	require.NoError(t, f.proc.Process(context.Background(), job))
	assert.Len(t, f.s3.keys, 1)
}

func TestProcessPermanentFailures(t *testing.T) {
	f := newFixture()
	job := f.job(t, nil, "https://example.com/malware.exe")
	err := f.proc.Process(context.Background(), job)
	require.ErrorIs(t, err, errPermanent)

	f.proc.fail(context.Background(), job, err)
	assert.Empty(t, f.queue.retried, "permanent failures are not retried")
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.MediaFailed, f.events.events[0].item.Status)
	assert.Equal(t, realtime.Global(), f.events.events[0].target)

	err = f.proc.Process(context.Background(), &queue.Job{Type: "other"})
	require.ErrorIs(t, err, errPermanent)
}

func TestTransientFailureRetriesThenGivesUp(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer src.Close()

	f := newFixture()
	job := f.job(t, nil, src.URL+"/a.png")
	ctx := context.Background()

	for i := 0; i < queue.MaxRetries; i++ {
		err := f.proc.Process(ctx, job)
		require.Error(t, err)
		assert.False(t, errors.Is(err, errPermanent))
		f.proc.fail(ctx, job, err)
	}
	assert.Equal(t, []int{1, 2, 3}, f.queue.retried)
	require.Len(t, f.events.events, 1, "only the final failure is announced")
	assert.Equal(t, models.MediaFailed, f.events.events[0].item.Status)
}

func TestProcessDropsJobForDeletedItem(t *testing.T) {
	f := newFixture()
	body, err := json.Marshal(queue.MediaImportPayload{MediaID: uuid.New(), SourceURL: "https://x/a.png"})
	require.NoError(t, err)
	require.NoError(t, f.proc.Process(context.Background(), &queue.Job{Type: queue.JobTypeMediaImport, Payload: body}))
	assert.Empty(t, f.s3.keys)
}
