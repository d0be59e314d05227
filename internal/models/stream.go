package models

import (
	"time"

	"github.com/google/uuid"
)

// StreamStatus is the broadcast state of a stream.
type StreamStatus string

const (
	StreamOffline StreamStatus = "offline"
	StreamLive    StreamStatus = "live"
	StreamEnded   StreamStatus = "ended"
)

// Stream is one broadcast stream of the event.
type Stream struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Status      StreamStatus `json:"status"`
	PeakViewers int          `json:"peakViewers"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	EndedAt     *time.Time   `json:"endedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}
