package polls

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/middleware"
	"github.com/aura-live/backend/pkg/response"
)

// CreateRequest is the body for POST /polls.
type CreateRequest struct {
	Question    string     `json:"question" binding:"required"`
	Options     []string   `json:"options" binding:"required"`
	StreamID    *uuid.UUID `json:"streamId"`
	ShowResults bool       `json:"showResults"`
}

// ShowResultsRequest is the body for PATCH /polls/:id/results.
type ShowResultsRequest struct {
	ShowResults *bool `json:"showResults" binding:"required"`
}

// VoteRequest is the body for POST /polls/:id/votes.
type VoteRequest struct {
	OptionID uuid.UUID `json:"optionId" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	coord *Coordinator
}

// NewHandler creates a polls handler.
func NewHandler(coord *Coordinator) *Handler {
	return &Handler{coord: coord}
}

// Create handles POST /polls (moderators).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.coord.Create(c.Request.Context(), CreateInput{
		StreamID:    req.StreamID,
		Question:    req.Question,
		Options:     req.Options,
		ShowResults: req.ShowResults,
	})
	if err != nil {
		response.Error(c, err, "failed to create poll")
		return
	}
	response.Created(c, p)
}

// List handles GET /polls?stream_id=&all= (moderators).
func (h *Handler) List(c *gin.Context) {
	streamID, ok := streamParam(c)
	if !ok {
		return
	}
	list, err := h.coord.List(c.Request.Context(), streamID, c.Query("all") == "true")
	if err != nil {
		response.Error(c, err, "failed to list polls")
		return
	}
	response.OK(c, gin.H{"polls": list})
}

// Active handles GET /polls/active?stream_id=.
func (h *Handler) Active(c *gin.Context) {
	streamID, ok := streamParam(c)
	if !ok {
		return
	}
	var userID *uuid.UUID
	if caller, ok := middleware.CurrentUser(c); ok {
		userID = &caller.UserID
	}
	view, err := h.coord.ActiveForViewer(c.Request.Context(), streamID, userID)
	if err != nil {
		response.Error(c, err, "failed to load active poll")
		return
	}
	response.OK(c, view)
}

// Activate handles POST /polls/:id/activate.
func (h *Handler) Activate(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	p, err := h.coord.Activate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to activate poll")
		return
	}
	response.OK(c, p)
}

// Close handles POST /polls/:id/close.
func (h *Handler) Close(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	p, err := h.coord.Close(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err, "failed to close poll")
		return
	}
	response.OK(c, p)
}

// SetShowResults handles PATCH /polls/:id/results.
func (h *Handler) SetShowResults(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	var req ShowResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.coord.SetShowResults(c.Request.Context(), id, *req.ShowResults)
	if err != nil {
		response.Error(c, err, "failed to update poll")
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /polls/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	if err := h.coord.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err, "failed to delete poll")
		return
	}
	response.NoContent(c)
}

// Vote handles POST /polls/:id/votes (audience).
func (h *Handler) Vote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := h.coord.Vote(c.Request.Context(), id, req.OptionID, caller.UserID, caller.Role)
	if err != nil {
		response.Error(c, err, "failed to record vote")
		return
	}
	response.Created(c, v)
}

// Results handles GET /polls/:id/results.
func (h *Handler) Results(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	caller, _ := middleware.CurrentUser(c)
	res, err := h.coord.Results(c.Request.Context(), id, caller.Role.IsStaff())
	if err != nil {
		response.Error(c, err, "failed to load results")
		return
	}
	if res == nil {
		response.Forbidden(c, "results are hidden")
		return
	}
	response.OK(c, res)
}

func pollID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return uuid.Nil, false
	}
	return id, true
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
