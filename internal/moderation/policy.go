// Package moderation decides whether a viewer interaction is accepted, held for approval or
// rejected. It performs no I/O; callers persist and broadcast according to the Decision.
package moderation

import (
	"github.com/aura-live/backend/internal/models"
)

// Kind identifies the interaction being evaluated.
type Kind string

const (
	KindChat     Kind = "chat"
	KindComment  Kind = "comment"
	KindQuestion Kind = "question"
	KindPollVote Kind = "poll_vote"
	KindReaction Kind = "reaction"
)

// Decision is the outcome of a policy evaluation.
type Decision string

const (
	Accept          Decision = "accept"
	PendingApproval Decision = "pending"
	Reject          Decision = "reject"
)

// State maps an accept/pending decision onto the stored moderation state.
func (d Decision) State() models.ModerationState {
	switch d {
	case Accept:
		return models.StateApproved
	case PendingApproval:
		return models.StatePending
	default:
		return models.StateRejected
	}
}

// Author is the submitter of an interaction as far as policy is concerned.
type Author struct {
	Role   models.Role
	Status models.UserStatus
}

// Evaluator applies the moderation policy.
type Evaluator struct {
	// EnforceFeatureFlags rejects interactions whose feature flag is off.
	// When false, flags are left to clients.
	EnforceFeatureFlags bool
}

// NewEvaluator returns an Evaluator.
func NewEvaluator(enforceFeatureFlags bool) *Evaluator {
	return &Evaluator{EnforceFeatureFlags: enforceFeatureFlags}
}

// Evaluate returns the decision for an interaction of kind by author under the given settings.
// A Reject decision always comes with a non-nil error describing the reason.
func (e *Evaluator) Evaluate(kind Kind, author Author, s models.Settings) (Decision, error) {
	if kind == KindChat && author.Status == models.StatusBanned {
		return Reject, models.ErrBanned
	}
	if e.EnforceFeatureFlags && !enabled(kind, s.FeatureFlags) {
		return Reject, models.ErrFeatureDisabled
	}
	switch kind {
	case KindChat:
		if s.ChatModerated && !author.Role.IsStaff() {
			return PendingApproval, nil
		}
		return Accept, nil
	case KindComment:
		return PendingApproval, nil
	case KindQuestion, KindPollVote, KindReaction:
		return Accept, nil
	}
	return Reject, models.ErrInvalidInput
}

func enabled(kind Kind, f models.FeatureFlags) bool {
	switch kind {
	case KindChat:
		return f.ChatEnabled
	case KindComment:
		return f.CommentsEnabled
	case KindQuestion:
		return f.QuestionsEnabled
	case KindPollVote:
		return f.PollsEnabled
	}
	return true
}
