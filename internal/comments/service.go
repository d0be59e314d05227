package comments

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/moderation"
	"github.com/aura-live/backend/internal/realtime"
)

// MaxContentLength bounds a comment in characters.
const MaxContentLength = 2000

const listLimit = 200

// Store is the comment persistence the service needs.
type Store interface {
	Create(ctx context.Context, c *models.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListApproved(ctx context.Context, scope models.Scope, limit int) ([]models.Comment, error)
	ListPending(ctx context.Context, limit int) ([]models.Comment, error)
	UpsertReaction(ctx context.Context, commentID, userID uuid.UUID, t models.ReactionType) (models.ReactionStats, error)
	RemoveReaction(ctx context.Context, commentID, userID uuid.UUID) (models.ReactionStats, error)
}

// SettingsSource returns the settings in effect now.
type SettingsSource interface {
	Current(ctx context.Context) (models.Settings, error)
}

// UserLookup returns the current standing of a user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SubmitInput is a new comment.
type SubmitInput struct {
	UserID   uuid.UUID
	UserName string
	StreamID *uuid.UUID
	Content  string
}

// Service holds comments for moderation and publishes approved ones.
type Service struct {
	store     Store
	settings  SettingsSource
	users     UserLookup
	evaluator *moderation.Evaluator
	filter    *moderation.Filter
	hub       realtime.Broadcaster
	logger    *zap.Logger
}

// NewService creates a comments service.
func NewService(store Store, settings SettingsSource, users UserLookup, evaluator *moderation.Evaluator,
	filter *moderation.Filter, hub realtime.Broadcaster, logger *zap.Logger) *Service {
	return &Service{store: store, settings: settings, users: users, evaluator: evaluator, filter: filter, hub: hub, logger: logger}
}

func (s *Service) evaluate(ctx context.Context, kind moderation.Kind, userID uuid.UUID) (moderation.Decision, models.Settings, *models.User, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return moderation.Reject, settings, nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return moderation.Reject, settings, nil, err
	}
	decision, err := s.evaluator.Evaluate(kind, moderation.Author{Role: user.Role, Status: user.Status}, settings)
	metrics.RecordInteraction(string(kind), string(decision))
	return decision, settings, user, err
}

// Submit stores a comment as pending and notifies moderators.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return nil, models.ErrInvalidInput
	}
	decision, settings, user, err := s.evaluate(ctx, moderation.KindComment, in.UserID)
	if err != nil {
		return nil, err
	}
	content, filtered := s.filter.Apply(content, settings.DenyList)
	if filtered {
		metrics.ContentRedactedTotal.WithLabelValues(string(moderation.KindComment)).Inc()
	}
	name := in.UserName
	if name == "" {
		name = user.Name
	}
	userID := in.UserID
	c := &models.Comment{
		UserID:   &userID,
		UserName: name,
		Content:  content,
		StreamID: models.ScopeOf(in.StreamID).StreamRef(),
		State:    decision.State(),
		Approved: decision == moderation.Accept,
		Filtered: filtered,
	}
	if err := s.store.Create(ctx, c); err != nil {
		s.logger.Error("persist comment", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	if c.Approved {
		s.hub.Broadcast(realtime.EventCommentNew, c, realtime.TargetFor(c.Scope()))
	} else {
		s.hub.Broadcast(realtime.EventCommentPending, c, realtime.Admins())
	}
	return c, nil
}

// List returns approved comments of a scope.
func (s *Service) List(ctx context.Context, streamID *uuid.UUID) ([]models.Comment, error) {
	return s.store.ListApproved(ctx, models.ScopeOf(streamID), listLimit)
}

// Pending returns comments awaiting moderation.
func (s *Service) Pending(ctx context.Context) ([]models.Comment, error) {
	return s.store.ListPending(ctx, listLimit)
}

// Approve publishes a pending comment to its scope.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, err := s.store.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return s.store.GetByID(ctx, id)
	}
	s.hub.Broadcast(realtime.EventCommentNew, c, realtime.TargetFor(c.Scope()))
	return c, nil
}

// Reject hides a pending comment.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, err := s.store.Reject(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return s.store.GetByID(ctx, id)
	}
	s.hub.Broadcast(realtime.EventCommentDeleted, map[string]any{"id": c.ID}, realtime.Admins())
	return c, nil
}

// Delete removes a comment.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	payload := map[string]any{"id": c.ID}
	scope := c.Scope()
	if c.Approved {
		s.hub.Broadcast(realtime.EventCommentDeleted, payload, realtime.TargetFor(scope))
		if scope.IsGlobal() {
			return nil
		}
	}
	s.hub.Broadcast(realtime.EventCommentDeleted, payload, realtime.Admins())
	return nil
}

// React sets the user's reaction to an approved comment.
func (s *Service) React(ctx context.Context, commentID, userID uuid.UUID, t models.ReactionType) (models.ReactionStats, error) {
	if !t.Valid() {
		return models.ReactionStats{}, models.ErrInvalidInput
	}
	c, err := s.visible(ctx, commentID)
	if err != nil {
		return models.ReactionStats{}, err
	}
	if _, _, _, err := s.evaluate(ctx, moderation.KindReaction, userID); err != nil {
		return models.ReactionStats{}, err
	}
	stats, err := s.store.UpsertReaction(ctx, commentID, userID, t)
	if err != nil {
		return models.ReactionStats{}, err
	}
	s.publishReactions(c, stats)
	return stats, nil
}

// Unreact removes the user's reaction to a comment.
func (s *Service) Unreact(ctx context.Context, commentID, userID uuid.UUID) (models.ReactionStats, error) {
	c, err := s.visible(ctx, commentID)
	if err != nil {
		return models.ReactionStats{}, err
	}
	stats, err := s.store.RemoveReaction(ctx, commentID, userID)
	if err != nil {
		return models.ReactionStats{}, err
	}
	s.publishReactions(c, stats)
	return stats, nil
}

func (s *Service) visible(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Approved {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (s *Service) publishReactions(c *models.Comment, stats models.ReactionStats) {
	s.hub.Broadcast(realtime.EventCommentReaction, map[string]any{
		"commentId": c.ID,
		"reactions": stats,
	}, realtime.TargetFor(c.Scope()))
}
