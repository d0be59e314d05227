package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/pkg/queue"
	"github.com/aura-live/backend/pkg/storage"
)

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent failure")

// MediaStore is the media persistence the processor needs.
type MediaStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)
	MarkReady(ctx context.Context, id uuid.UUID, fileURL, s3Key, fileType string, size int64) (*models.MediaItem, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)
}

// Uploader stores objects.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// JobQueue hands out import jobs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Publisher relays events to the server process, which owns the sockets.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any, target realtime.Target) error
}

// MediaProcessor processes media import jobs: download from the source URL, upload to S3,
// mark the item ready and announce it.
type MediaProcessor struct {
	media   MediaStore
	s3      Uploader
	queue   JobQueue
	events  Publisher
	client  *http.Client
	backoff time.Duration
	logger  *zap.Logger
}

// NewMediaProcessor creates a media import processor.
func NewMediaProcessor(media MediaStore, s3 Uploader, q JobQueue, events Publisher, logger *zap.Logger) *MediaProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaProcessor{
		media:   media,
		s3:      s3,
		queue:   q,
		events:  events,
		client:  &http.Client{Timeout: 5 * time.Minute},
		backoff: queue.RetryBackoff,
		logger:  logger,
	}
}

// Process executes one media import job.
func (p *MediaProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeMediaImport {
		return fmt.Errorf("%w: unknown job type %s", errPermanent, job.Type)
	}
	var payload queue.MediaImportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %v", errPermanent, err)
	}

	item, err := p.media.GetByID(ctx, payload.MediaID)
	if errors.Is(err, models.ErrNotFound) {
		p.logger.Info("media item gone, dropping job", zap.String("media_id", payload.MediaID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	if item.Status == models.MediaReady {
		p.logger.Info("media already imported", zap.String("media_id", item.ID.String()))
		return nil
	}

	u, err := url.Parse(payload.SourceURL)
	if err != nil {
		return fmt.Errorf("%w: parse source url: %v", errPermanent, err)
	}
	contentType := storage.ContentTypeForFilename(u.Path)
	if contentType == "" {
		return fmt.Errorf("%w: unsupported file type %q", errPermanent, u.Path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.SourceURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", errPermanent, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status: %d", resp.StatusCode)
	}
	if resp.ContentLength > storage.MaxMediaFileSize {
		return fmt.Errorf("%w: file too large (%d bytes)", errPermanent, resp.ContentLength)
	}

	key := storage.MediaKey(models.ScopeOf(payload.StreamID).String(), payload.MediaID.String(), u.Path)
	body := &countingReader{r: io.LimitReader(resp.Body, storage.MaxMediaFileSize)}
	fileURL, err := p.s3.Upload(ctx, key, contentType, body, resp.ContentLength)
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	ready, err := p.media.MarkReady(ctx, payload.MediaID, fileURL, key, contentType, body.n)
	if err != nil {
		p.logger.Error("update media item failed", zap.Error(err), zap.String("media_id", payload.MediaID.String()))
		return fmt.Errorf("update db: %w", err)
	}
	p.announce(ctx, ready)
	p.logger.Info("media import completed", zap.String("media_id", payload.MediaID.String()), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *MediaProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("media worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.fail(ctx, job, err)
		}
	}
}

func (p *MediaProcessor) fail(ctx context.Context, job *queue.Job, err error) {
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	if !errors.Is(err, errPermanent) {
		if reErr := p.queue.Retry(ctx, job); reErr != nil {
			p.logger.Error("retry enqueue failed", zap.Error(reErr))
		}
		if job.Attempt < queue.MaxRetries {
			p.sleep(ctx)
			return
		}
	}

	var payload queue.MediaImportPayload
	if json.Unmarshal(job.Payload, &payload) != nil || payload.MediaID == uuid.Nil {
		return
	}
	item, mErr := p.media.MarkFailed(ctx, payload.MediaID)
	if mErr != nil {
		p.logger.Error("mark media failed", zap.String("media_id", payload.MediaID.String()), zap.Error(mErr))
		return
	}
	p.announce(ctx, item)
}

func (p *MediaProcessor) announce(ctx context.Context, item *models.MediaItem) {
	target := realtime.TargetFor(models.ScopeOf(item.StreamID))
	if err := p.events.Publish(ctx, realtime.EventMediaUpdate, item, target); err != nil {
		p.logger.Warn("publish media update", zap.String("media_id", item.ID.String()), zap.Error(err))
	}
}

func (p *MediaProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
