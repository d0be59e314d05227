package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is an audience comment; it is visible only after a moderator approves it.
type Comment struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"userId"`
	UserName  string          `json:"userName"`
	Content   string          `json:"content"`
	StreamID  *uuid.UUID      `json:"streamId"`
	State     ModerationState `json:"state"`
	Approved  bool            `json:"approved"`
	Filtered  bool            `json:"filtered"`
	Reactions ReactionStats   `json:"reactions"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Scope returns the audience partition of the comment.
func (c *Comment) Scope() Scope { return ScopeOf(c.StreamID) }
