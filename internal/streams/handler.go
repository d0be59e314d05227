package streams

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/pkg/response"
)

// Store is the stream persistence the handler needs.
type Store interface {
	Create(ctx context.Context, title string) (*models.Stream, error)
	List(ctx context.Context) ([]models.Stream, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.StreamStatus) (*models.Stream, error)
	UpdatePeakViewers(ctx context.Context, id uuid.UUID, count int) error
}

// CreateRequest is the body for POST /streams.
type CreateRequest struct {
	Title string `json:"title" binding:"required"`
}

// StatusRequest is the body for PATCH /streams/:id/status.
type StatusRequest struct {
	Status models.StreamStatus `json:"status" binding:"required,oneof=offline live ended"`
}

// peakWriteTimeout bounds the peak update, which runs on the presence teardown path.
const peakWriteTimeout = 2 * time.Second

// Handler handles stream registry endpoints.
type Handler struct {
	store  Store
	hub    realtime.Broadcaster
	logger *zap.Logger

	peakMu sync.Mutex
	peaks  map[uuid.UUID]int // highest count written per stream by this process
}

// NewHandler creates a streams handler.
func NewHandler(store Store, hub realtime.Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{store: store, hub: hub, logger: logger, peaks: make(map[uuid.UUID]int)}
}

// List handles GET /streams.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Error(c, err, "failed to list streams")
		return
	}
	response.OK(c, gin.H{"streams": list})
}

// Create handles POST /streams (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		response.BadRequest(c, "title is required")
		return
	}
	s, err := h.store.Create(c.Request.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		response.Error(c, err, "failed to create stream")
		return
	}
	response.Created(c, s)
}

// SetStatus handles PATCH /streams/:id/status (admin) and announces the change to everyone.
func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid stream id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.store.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err, "failed to update stream")
		return
	}
	h.hub.Broadcast(realtime.EventStreamStatus, s, realtime.Global())
	response.OK(c, s)
}

// PeakTracker returns a presence count handler that records per-stream peaks.
// Counts at or below the last written peak are dropped without touching the store.
func (h *Handler) PeakTracker() func(streamID uuid.UUID, count int) {
	return func(streamID uuid.UUID, count int) {
		h.peakMu.Lock()
		if count <= h.peaks[streamID] {
			h.peakMu.Unlock()
			return
		}
		h.peakMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), peakWriteTimeout)
		defer cancel()
		if err := h.store.UpdatePeakViewers(ctx, streamID, count); err != nil {
			h.logger.Warn("update peak viewers", zap.String("stream_id", streamID.String()), zap.Error(err))
			return
		}
		h.peakMu.Lock()
		if count > h.peaks[streamID] {
			h.peaks[streamID] = count
		}
		h.peakMu.Unlock()
	}
}
