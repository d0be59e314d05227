package reactions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/moderation"
	"github.com/aura-live/backend/internal/realtime"
)

// Store is the stream reaction persistence the service needs.
type Store interface {
	Upsert(ctx context.Context, userID uuid.UUID, scope models.Scope, t models.ReactionType) error
	Remove(ctx context.Context, userID uuid.UUID, scope models.Scope) error
	Stats(ctx context.Context, scope models.Scope) (models.ReactionStats, error)
	UserReaction(ctx context.Context, userID uuid.UUID, scope models.Scope) (*models.Reaction, error)
}

// SettingsSource returns the settings in effect now.
type SettingsSource interface {
	Current(ctx context.Context) (models.Settings, error)
}

// UpdatePayload is the body of reaction:update.
type UpdatePayload struct {
	StreamID *uuid.UUID           `json:"streamId"`
	Stats    models.ReactionStats `json:"stats"`
}

// Service handles like/dislike reactions on a stream or the whole event.
type Service struct {
	store     Store
	settings  SettingsSource
	evaluator *moderation.Evaluator
	hub       realtime.Broadcaster
	logger    *zap.Logger
}

// NewService creates a reactions service.
func NewService(store Store, settings SettingsSource, evaluator *moderation.Evaluator, hub realtime.Broadcaster, logger *zap.Logger) *Service {
	return &Service{store: store, settings: settings, evaluator: evaluator, hub: hub, logger: logger}
}

// React sets the user's reaction in the scope of streamID and publishes the new tally.
func (s *Service) React(ctx context.Context, userID uuid.UUID, role models.Role, streamID *uuid.UUID, t models.ReactionType) (models.ReactionStats, error) {
	if !t.Valid() {
		return models.ReactionStats{}, models.ErrInvalidInput
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return models.ReactionStats{}, err
	}
	decision, err := s.evaluator.Evaluate(moderation.KindReaction, moderation.Author{Role: role}, settings)
	metrics.RecordInteraction(string(moderation.KindReaction), string(decision))
	if err != nil {
		return models.ReactionStats{}, err
	}
	scope := models.ScopeOf(streamID)
	if err := s.store.Upsert(ctx, userID, scope, t); err != nil {
		s.logger.Error("persist reaction", zap.String("user_id", userID.String()), zap.Error(err))
		return models.ReactionStats{}, err
	}
	return s.publish(ctx, scope)
}

// Unreact removes the user's reaction in the scope of streamID.
func (s *Service) Unreact(ctx context.Context, userID uuid.UUID, streamID *uuid.UUID) (models.ReactionStats, error) {
	scope := models.ScopeOf(streamID)
	if err := s.store.Remove(ctx, userID, scope); err != nil {
		return models.ReactionStats{}, err
	}
	return s.publish(ctx, scope)
}

// Stats returns the tally of a scope and the caller's own reaction, if any.
func (s *Service) Stats(ctx context.Context, streamID *uuid.UUID, userID *uuid.UUID) (models.ReactionStats, *models.ReactionType, error) {
	scope := models.ScopeOf(streamID)
	stats, err := s.store.Stats(ctx, scope)
	if err != nil {
		return stats, nil, err
	}
	if userID == nil {
		return stats, nil, nil
	}
	mine, err := s.store.UserReaction(ctx, *userID, scope)
	if errors.Is(err, models.ErrNotFound) {
		return stats, nil, nil
	}
	if err != nil {
		return stats, nil, err
	}
	return stats, &mine.Type, nil
}

func (s *Service) publish(ctx context.Context, scope models.Scope) (models.ReactionStats, error) {
	stats, err := s.store.Stats(ctx, scope)
	if err != nil {
		return stats, err
	}
	s.hub.Broadcast(realtime.EventReactionUpdate, UpdatePayload{StreamID: scope.StreamRef(), Stats: stats}, realtime.TargetFor(scope))
	return stats, nil
}
