package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a live chat line. Scope is fixed at creation.
type ChatMessage struct {
	ID          uuid.UUID       `json:"id"`
	UserID      *uuid.UUID      `json:"userId"`
	UserName    string          `json:"userName"`
	UserRole    Role            `json:"userRole"`
	Content     string          `json:"content"`
	StreamID    *uuid.UUID      `json:"streamId"`
	State       ModerationState `json:"state"`
	Approved    bool            `json:"approved"`
	Filtered    bool            `json:"filtered"`
	Highlighted bool            `json:"highlighted"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Scope returns the audience partition of the message.
func (m *ChatMessage) Scope() Scope { return ScopeOf(m.StreamID) }
