package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaStatus tracks an imported media item through the worker.
type MediaStatus string

const (
	MediaPending MediaStatus = "pending"
	MediaReady   MediaStatus = "ready"
	MediaFailed  MediaStatus = "failed"
)

// MediaItem is an uploaded asset (slide, image, clip) shown alongside the broadcast.
type MediaItem struct {
	ID        uuid.UUID   `json:"id"`
	StreamID  *uuid.UUID  `json:"streamId"`
	FileURL   string      `json:"fileUrl"`
	FileType  string      `json:"fileType"`
	FileSize  int64       `json:"fileSize"`
	S3Key     string      `json:"s3Key,omitempty"`
	SourceURL string      `json:"sourceUrl,omitempty"`
	Status    MediaStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}
