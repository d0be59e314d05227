package settings

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/realtime"
	"github.com/aura-live/backend/pkg/response"
)

// Store is the persistence the handler needs.
type Store interface {
	Current(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, p Patch) (models.Settings, error)
	ResetEvent(ctx context.Context) error
}

// Handler handles settings and event administration.
type Handler struct {
	store  Store
	hub    realtime.Broadcaster
	logger *zap.Logger
}

// NewHandler creates a settings handler.
func NewHandler(store Store, hub realtime.Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{store: store, hub: hub, logger: logger}
}

// Get handles GET /settings.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.store.Current(c.Request.Context())
	if err != nil {
		h.logger.Error("load settings", zap.Error(err))
		response.Internal(c, "failed to load settings")
		return
	}
	response.OK(c, s)
}

// Update handles PATCH /settings (admin). The new settings are broadcast as settings:update.
func (h *Handler) Update(c *gin.Context) {
	var p Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.store.Update(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("update settings", zap.Error(err))
		response.Internal(c, "failed to update settings")
		return
	}
	h.hub.Broadcast(realtime.EventSettingsUpdate, s, realtime.Global())
	response.OK(c, s)
}

// Reset handles POST /event/reset (admin): wipes interactions and tells clients to clear state.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.store.ResetEvent(c.Request.Context()); err != nil {
		h.logger.Error("reset event", zap.Error(err))
		response.Internal(c, "failed to reset event")
		return
	}
	h.logger.Warn("event interactions reset")
	h.hub.Broadcast(realtime.EventReset, gin.H{}, realtime.Global())
	response.NoContent(c)
}
