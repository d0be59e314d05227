package models

import (
	"time"

	"github.com/google/uuid"
)

// Question represents an audience question. It has no approval gate; moderators choose
// which questions to display on stream.
type Question struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"userId"`
	UserName  string     `json:"userName"`
	Content   string     `json:"content"`
	StreamID  *uuid.UUID `json:"streamId"`
	Displayed bool       `json:"displayed"`
	Filtered  bool       `json:"filtered"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Scope returns the audience partition of the question.
func (q *Question) Scope() Scope { return ScopeOf(q.StreamID) }
