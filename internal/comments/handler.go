package comments

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/middleware"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/response"
)

// CreateRequest is the body for POST /comments.
type CreateRequest struct {
	Content  string     `json:"content" binding:"required"`
	StreamID *uuid.UUID `json:"streamId"`
}

// ReactRequest is the body for POST /comments/:id/reactions.
type ReactRequest struct {
	Type models.ReactionType `json:"type" binding:"required"`
}

// Handler handles comment HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a comments handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /comments.
func (h *Handler) Create(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cm, err := h.svc.Submit(c.Request.Context(), SubmitInput{
		UserID:   caller.UserID,
		UserName: caller.Name,
		StreamID: req.StreamID,
		Content:  req.Content,
	})
	if err != nil {
		response.Error(c, err, "failed to create comment")
		return
	}
	response.Created(c, cm)
}

// List handles GET /comments?stream_id=.
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
	list, err := h.svc.List(c.Request.Context(), streamID)
	if err != nil {
		response.Error(c, err, "failed to list comments")
		return
	}
	response.OK(c, list)
}

// Pending handles GET /comments/pending.
func (h *Handler) Pending(c *gin.Context) {
	list, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err, "failed to list pending comments")
		return
	}
	response.OK(c, list)
}

// Approve handles PATCH /comments/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	id, ok := commentID(c)
	if !ok {
		return
	}
	cm, err := h.svc.Approve(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to approve comment")
		return
	}
	response.OK(c, cm)
}

// Reject handles PATCH /comments/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	id, ok := commentID(c)
	if !ok {
		return
	}
	cm, err := h.svc.Reject(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to reject comment")
		return
	}
	response.OK(c, cm)
}

// Delete handles DELETE /comments/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := commentID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete comment")
		return
	}
	response.NoContent(c)
}

// React handles POST /comments/:id/reactions.
func (h *Handler) React(c *gin.Context) {
	id, ok := commentID(c)
	if !ok {
		return
	}
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
	stats, err := h.svc.React(c.Request.Context(), id, caller.UserID, req.Type)
	if err != nil {
		response.Error(c, err, "failed to react")
		return
	}
	response.OK(c, gin.H{"commentId": id, "reactions": stats})
}

// Unreact handles DELETE /comments/:id/reactions.
func (h *Handler) Unreact(c *gin.Context) {
	id, ok := commentID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	stats, err := h.svc.Unreact(c.Request.Context(), id, caller.UserID)
	if err != nil {
		response.Error(c, err, "failed to remove reaction")
		return
	}
	response.OK(c, gin.H{"commentId": id, "reactions": stats})
}

func commentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid comment id")
		return uuid.Nil, false
	}
	return id, true
}
