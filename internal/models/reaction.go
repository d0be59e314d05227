package models

import (
	"time"

	"github.com/google/uuid"
)

// ReactionType is the value of a like/dislike reaction.
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// Valid reports whether t is a known reaction type.
func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Reaction is one user's reaction to a target (a stream or a comment). Unique per (user, target).
type Reaction struct {
	UserID    uuid.UUID    `json:"userId"`
	Type      ReactionType `json:"type"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ReactionStats aggregates reactions of a target.
type ReactionStats struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}
