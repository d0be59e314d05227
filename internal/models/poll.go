package models

import (
	"time"

	"github.com/google/uuid"
)

// PollStatus is the lifecycle state of a poll.
type PollStatus string

const (
	PollDraft  PollStatus = "draft"
	PollActive PollStatus = "active"
	PollClosed PollStatus = "closed"
)

// Poll represents a multiple-choice poll, global or bound to one stream.
type Poll struct {
	ID          uuid.UUID    `json:"id"`
	StreamID    *uuid.UUID   `json:"streamId"`
	Question    string       `json:"question"`
	Options     []PollOption `json:"options"`
	Status      PollStatus   `json:"status"`
	IsActive    bool         `json:"isActive"`
	ShowResults bool         `json:"showResults"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Scope returns the audience partition of the poll.
func (p *Poll) Scope() Scope { return ScopeOf(p.StreamID) }

// HasOption reports whether optionID belongs to the poll.
func (p *Poll) HasOption(optionID uuid.UUID) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// PollOption is one ordered choice of a poll.
type PollOption struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	Position int       `json:"position"`
}

// PollVote is a user's single vote on a poll.
type PollVote struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"pollId"`
	OptionID  uuid.UUID `json:"optionId"`
	UserID    uuid.UUID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// OptionResult is the vote count of one option.
type OptionResult struct {
	OptionID uuid.UUID `json:"optionId"`
	Label    string    `json:"label"`
	Votes    int       `json:"votes"`
}

// PollResults holds the per-option tally of a poll.
type PollResults struct {
	Total   int            `json:"total"`
	Options []OptionResult `json:"options"`
}
