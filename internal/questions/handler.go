package questions

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/middleware"
	"github.com/aura-live/backend/pkg/response"
)

// CreateRequest is the body for POST /questions.
type CreateRequest struct {
	Content  string     `json:"content" binding:"required"`
	StreamID *uuid.UUID `json:"streamId"`
}

// DisplayRequest is the body for PATCH /questions/:id/display.
type DisplayRequest struct {
	Duration int `json:"duration"`
}

// Handler handles question HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a questions handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /questions?stream_id=&all= (moderators).
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
	list, err := h.svc.List(c.Request.Context(), streamID, c.Query("all") == "true")
	if err != nil {
		response.Error(c, err, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"questions": list})
}

// Create handles POST /questions (audience asks question).
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
	q, err := h.svc.Submit(c.Request.Context(), SubmitInput{
		UserID:   caller.UserID,
		UserName: caller.Name,
		StreamID: req.StreamID,
		Content:  req.Content,
	})
	if err != nil {
		response.Error(c, err, "failed to create question")
		return
	}
	response.Created(c, q)
}

// Display handles PATCH /questions/:id/display.
func (h *Handler) Display(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req DisplayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	q, err := h.svc.Display(c.Request.Context(), id, req.Duration)
	if err != nil {
		response.Error(c, err, "failed to display question")
		return
	}
	response.OK(c, q)
}

// Delete handles DELETE /questions/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete question")
		return
	}
	response.NoContent(c)
}
