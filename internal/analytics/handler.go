package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/sessionlog"
	"github.com/aura-live/backend/pkg/response"
)

const (
	defaultWindow    = 24 * time.Hour
	maxWindowHours   = 24 * 30
	defaultAttendees = 500
)

// Source is the session log data the handler reports on.
type Source interface {
	ListSnapshots(ctx context.Context, since time.Time) ([]models.ViewerSnapshot, error)
	GetWatchTimeAggregates(ctx context.Context, streamID *uuid.UUID) (*sessionlog.WatchTimeAggregates, error)
	ListAttendees(ctx context.Context, streamID *uuid.UUID, limit int) ([]sessionlog.AttendeeRow, error)
}

// LiveCounter reports the current number of viewers.
type LiveCounter interface {
	Count() int
}

// ViewersResponse is the concurrent-viewer trend.
type ViewersResponse struct {
	Current   int                     `json:"current"`
	Peak      int                     `json:"peak"`
	Snapshots []models.ViewerSnapshot `json:"snapshots"`
}

// Handler handles /analytics endpoints (moderators).
type Handler struct {
	source Source
	live   LiveCounter
	now    func() time.Time
}

// NewHandler creates an analytics handler.
func NewHandler(source Source, live LiveCounter) *Handler {
	return &Handler{source: source, live: live, now: time.Now}
}

// Viewers handles GET /analytics/viewers?hours=.
func (h *Handler) Viewers(c *gin.Context) {
	window := defaultWindow
	if s := c.Query("hours"); s != "" {
		hours, err := strconv.Atoi(s)
		if err != nil || hours <= 0 || hours > maxWindowHours {
			response.BadRequest(c, "hours must be between 1 and 720")
			return
		}
		window = time.Duration(hours) * time.Hour
	}
	snaps, err := h.source.ListSnapshots(c.Request.Context(), h.now().Add(-window))
	if err != nil {
		response.Error(c, err, "failed to load viewer snapshots")
		return
	}
	resp := ViewersResponse{Current: h.live.Count(), Snapshots: snaps}
	resp.Peak = resp.Current
	for _, s := range snaps {
		if s.ViewerCount > resp.Peak {
			resp.Peak = s.ViewerCount
		}
	}
	response.OK(c, resp)
}

// Sessions handles GET /analytics/sessions?stream_id=.
func (h *Handler) Sessions(c *gin.Context) {
	streamID, ok := streamParam(c)
	if !ok {
		return
	}
	agg, err := h.source.GetWatchTimeAggregates(c.Request.Context(), streamID)
	if err != nil {
		response.Error(c, err, "failed to load session aggregates")
		return
	}
	response.OK(c, agg)
}

// Attendees handles GET /analytics/attendees?stream_id=&limit=.
func (h *Handler) Attendees(c *gin.Context) {
	streamID, ok := streamParam(c)
	if !ok {
		return
	}
	limit := defaultAttendees
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		if n < limit {
			limit = n
		}
	}
	rows, err := h.source.ListAttendees(c.Request.Context(), streamID, limit)
	if err != nil {
		response.Error(c, err, "failed to load attendees")
		return
	}
	response.OK(c, gin.H{"attendees": rows})
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
