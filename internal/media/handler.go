package media

import (
	"context"
	"io"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/pkg/queue"
	"github.com/aura-live/backend/pkg/response"
	"github.com/aura-live/backend/pkg/storage"
)

// Store is the media persistence the handler needs.
type Store interface {
	Create(ctx context.Context, m *models.MediaItem) error
	List(ctx context.Context, streamID *uuid.UUID) ([]models.MediaItem, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)
}

// ObjectStore stores uploaded files.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// Enqueuer schedules background imports.
type Enqueuer interface {
	EnqueueMediaImport(ctx context.Context, payload queue.MediaImportPayload) error
}

// ImportRequest is the body for POST /media/import.
type ImportRequest struct {
	SourceURL string     `json:"sourceUrl" binding:"required"`
	StreamID  *uuid.UUID `json:"streamId"`
}

// Handler handles media endpoints.
type Handler struct {
	store  Store
	s3     ObjectStore
	jobs   Enqueuer
	hub    realtime.Broadcaster
	logger *zap.Logger
}

// NewHandler creates a media handler. s3 may be nil when storage is not configured.
func NewHandler(store Store, s3 ObjectStore, jobs Enqueuer, hub realtime.Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{store: store, s3: s3, jobs: jobs, hub: hub, logger: logger}
}

// Upload handles POST /media (admin, multipart field "file", optional "stream_id").
func (h *Handler) Upload(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	var streamID *uuid.UUID
	if s := c.PostForm("stream_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid stream_id")
			return
		}
		streamID = &id
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxMediaFileSize {
		response.BadRequest(c, "file size exceeds 50MB limit")
		return
	}
	contentType := storage.ContentTypeForFilename(file.Filename)
	if contentType == "" {
		response.BadRequest(c, "invalid file type: only images, mp4 video and pdf allowed")
		return
	}

	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	mediaID := uuid.New()
	key := storage.MediaKey(models.ScopeOf(streamID).String(), mediaID.String(), file.Filename)
	fileURL, err := h.s3.Upload(c.Request.Context(), key, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("S3 upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}

	item := &models.MediaItem{
		StreamID: models.ScopeOf(streamID).StreamRef(),
		FileURL:  fileURL,
		FileType: contentType,
		FileSize: file.Size,
		S3Key:    key,
		Status:   models.MediaReady,
	}
	if err := h.store.Create(c.Request.Context(), item); err != nil {
		if delErr := h.s3.Delete(c.Request.Context(), key); delErr != nil {
			h.logger.Warn("remove orphaned object", zap.String("key", key), zap.Error(delErr))
		}
		response.Error(c, err, "failed to save media")
		return
	}
	h.hub.Broadcast(realtime.EventMediaUpdate, item, realtime.TargetFor(models.ScopeOf(item.StreamID)))
	response.Created(c, item)
}

// Import handles POST /media/import (admin): the worker downloads the file and publishes media:update.
func (h *Handler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := url.Parse(req.SourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		response.BadRequest(c, "sourceUrl must be an http(s) URL")
		return
	}

	item := &models.MediaItem{
		StreamID:  models.ScopeOf(req.StreamID).StreamRef(),
		SourceURL: req.SourceURL,
		Status:    models.MediaPending,
	}
	if err := h.store.Create(c.Request.Context(), item); err != nil {
		response.Error(c, err, "failed to save media")
		return
	}
	err = h.jobs.EnqueueMediaImport(c.Request.Context(), queue.MediaImportPayload{
		MediaID:   item.ID,
		StreamID:  item.StreamID,
		SourceURL: item.SourceURL,
	})
	if err != nil {
		h.logger.Error("enqueue media import", zap.String("media_id", item.ID.String()), zap.Error(err))
		response.ServiceUnavailable(c, "failed to schedule import")
		return
	}
	response.Accepted(c, item)
}

// List handles GET /media?stream_id=.
func (h *Handler) List(c *gin.Context) {
	var streamID *uuid.UUID
	if s := c.Query("stream_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid stream_id")
			return
		}
		streamID = &id
	}
	list, err := h.store.List(c.Request.Context(), streamID)
	if err != nil {
		response.Error(c, err, "failed to list media")
		return
	}
	response.OK(c, gin.H{"media": list})
}

// Delete handles DELETE /media/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid media id")
		return
	}
	item, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to delete media")
		return
	}
	if item.S3Key != "" && h.s3 != nil {
		if err := h.s3.Delete(c.Request.Context(), item.S3Key); err != nil {
			h.logger.Warn("delete media object", zap.String("key", item.S3Key), zap.Error(err))
		}
	}
	response.NoContent(c)
}
