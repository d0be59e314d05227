package chat

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/middleware"
	"github.com/aura-live/backend/pkg/response"
)

// CreateRequest is the body for POST /chat/messages.
type CreateRequest struct {
	Content  string     `json:"content" binding:"required"`
	StreamID *uuid.UUID `json:"streamId"`
}

// HighlightRequest is the body for PATCH /chat/messages/:id/highlight.
type HighlightRequest struct {
	Highlighted bool `json:"highlighted"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// History handles GET /chat/messages?stream_id=&all=. all=true is for admins and moderators.
func (h *Handler) History(c *gin.Context) {
	streamID, ok := optionalStreamID(c)
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(c.Query("all"))
	if all {
		caller, ok := middleware.CurrentUser(c)
		if !ok || !caller.Role.IsStaff() {
			response.Forbidden(c, "insufficient permissions")
			return
		}
	}
	list, err := h.svc.History(c.Request.Context(), streamID, all)
	if err != nil {
		response.Error(c, err, "failed to load chat history")
		return
	}
	response.OK(c, list)
}

// Create handles POST /chat/messages.
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
	msg, err := h.svc.Submit(c.Request.Context(), SubmitInput{
		UserID:   caller.UserID,
		UserName: caller.Name,
		StreamID: req.StreamID,
		Content:  req.Content,
	})
	if err != nil {
		response.Error(c, err, "failed to send message")
		return
	}
	response.Created(c, msg)
}

// Pending handles GET /chat/pending.
func (h *Handler) Pending(c *gin.Context) {
	list, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err, "failed to list pending messages")
		return
	}
	response.OK(c, list)
}

// Approve handles PATCH /chat/messages/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	msg, err := h.svc.Approve(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to approve message")
		return
	}
	response.OK(c, msg)
}

// Reject handles PATCH /chat/messages/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	msg, err := h.svc.Reject(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to reject message")
		return
	}
	response.OK(c, msg)
}

// Highlight handles PATCH /chat/messages/:id/highlight.
func (h *Handler) Highlight(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	var req HighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	msg, err := h.svc.Highlight(c.Request.Context(), id, req.Highlighted)
	if err != nil {
		response.Error(c, err, "failed to update message")
		return
	}
	response.OK(c, msg)
}

// Delete handles DELETE /chat/messages/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete message")
		return
	}
	response.NoContent(c)
}

func messageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid message id")
		return uuid.Nil, false
	}
	return id, true
}

func optionalStreamID(c *gin.Context) (*uuid.UUID, bool) {
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
