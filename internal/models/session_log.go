package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewerSession tracks one presence session of an authenticated viewer on one connection.
type ViewerSession struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	ChannelID string     `json:"channelId"`
	StreamID  *uuid.UUID `json:"streamId,omitempty"`
	IPAddress string     `json:"ipAddress"`
	EntryTime time.Time  `json:"entryTime"`
	ExitTime  *time.Time `json:"exitTime,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // seconds, set on exit
}

// ViewerSnapshot is a point of the concurrent-viewer time series.
type ViewerSnapshot struct {
	RecordedAt  time.Time `json:"recordedAt"`
	ViewerCount int       `json:"viewerCount"`
}
