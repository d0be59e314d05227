package reactions

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/middleware"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/response"
)

// ReactRequest is the body for POST /reactions.
type ReactRequest struct {
	Type     models.ReactionType `json:"type" binding:"required"`
	StreamID *uuid.UUID          `json:"streamId"`
}

// Handler handles stream reaction endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a reactions handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// React handles POST /reactions.
func (h *Handler) React(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	stats, err := h.svc.React(c.Request.Context(), caller.UserID, caller.Role, req.StreamID, req.Type)
	if err != nil {
		response.Error(c, err, "failed to react")
		return
	}
	response.OK(c, UpdatePayload{StreamID: req.StreamID, Stats: stats})
}

// Unreact handles DELETE /reactions?stream_id=.
func (h *Handler) Unreact(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	streamID, ok := streamParam(c)
	if !ok {
		return
	}
	stats, err := h.svc.Unreact(c.Request.Context(), caller.UserID, streamID)
	if err != nil {
		response.Error(c, err, "failed to remove reaction")
		return
	}
	response.OK(c, UpdatePayload{StreamID: streamID, Stats: stats})
}

// Stats handles GET /reactions?stream_id=.
func (h *Handler) Stats(c *gin.Context) {
	streamID, ok := streamParam(c)
	if !ok {
		return
	}
	var userID *uuid.UUID
	if caller, ok := middleware.CurrentUser(c); ok {
		userID = &caller.UserID
	}
	stats, mine, err := h.svc.Stats(c.Request.Context(), streamID, userID)
	if err != nil {
		response.Error(c, err, "failed to load reactions")
		return
	}
	response.OK(c, gin.H{"streamId": streamID, "stats": stats, "mine": mine})
}

func streamParam(c *gin.Context) (*uuid.UUID, bool) {
	s := c.Query("stream_id")
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		response.BadRequest(c, "invalid stream_id")
		return nil, false
	}
	return &id, true
}
