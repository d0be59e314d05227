package models

// ModerationState is the visibility classification of a chat message or comment.
type ModerationState string

const (
	StateApproved ModerationState = "approved"
	StatePending  ModerationState = "pending"
	StateRejected ModerationState = "rejected"
)
