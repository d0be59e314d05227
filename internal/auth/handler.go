package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/pkg/response"
)

// SetStatusRequest is the body for PATCH /users/:id/status.
type SetStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required"`
}

// Handler serves the moderation view of users.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// SetStatus handles PATCH /users/:id/status (ban or reinstate).
func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Status != models.StatusActive && req.Status != models.StatusBanned {
		response.BadRequest(c, "invalid status")
		return
	}
	u, err := h.repo.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err, "failed to update user")
		return
	}
	h.logger.Info("user status changed", zap.String("user_id", id.String()), zap.String("status", string(req.Status)))
	response.OK(c, u)
}
