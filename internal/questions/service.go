package questions

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

const (
	// MaxContentLength bounds a question in characters.
	MaxContentLength = 1000
	// DefaultDisplaySeconds is how long a displayed question stays on screen when unspecified.
	DefaultDisplaySeconds = 15
	// MaxDisplaySeconds caps the on-screen duration.
	MaxDisplaySeconds = 300

	listLimit = 200
)

// Store is the question persistence the service needs.
type Store interface {
	Create(ctx context.Context, q *models.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	MarkDisplayed(ctx context.Context, id uuid.UUID) (*models.Question, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Question, error)
	List(ctx context.Context, scope *models.Scope, limit int) ([]models.Question, error)
}

// SettingsSource returns the settings in effect now.
type SettingsSource interface {
	Current(ctx context.Context) (models.Settings, error)
}

// UserLookup returns the current standing of a user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SubmitInput is a question asked by an authenticated user.
type SubmitInput struct {
	UserID   uuid.UUID
	UserName string
	StreamID *uuid.UUID
	Content  string
}

// DisplayPayload is the body of question:display.
type DisplayPayload struct {
	UserName string     `json:"user_name"`
	Content  string     `json:"content"`
	Duration int        `json:"duration"`
	StreamID *uuid.UUID `json:"streamId"`
}

// Service handles Q&A.
type Service struct {
	store     Store
	settings  SettingsSource
	users     UserLookup
	evaluator *moderation.Evaluator
	filter    *moderation.Filter
	hub       realtime.Broadcaster
	logger    *zap.Logger
}

// NewService creates a questions service.
func NewService(store Store, settings SettingsSource, users UserLookup, evaluator *moderation.Evaluator,
	filter *moderation.Filter, hub realtime.Broadcaster, logger *zap.Logger) *Service {
	return &Service{store: store, settings: settings, users: users, evaluator: evaluator, filter: filter, hub: hub, logger: logger}
}

// Submit stores a question and shows it to moderators.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Question, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return nil, models.ErrInvalidInput
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	decision, err := s.evaluator.Evaluate(moderation.KindQuestion, moderation.Author{Role: user.Role, Status: user.Status}, settings)
	metrics.RecordInteraction(string(moderation.KindQuestion), string(decision))
	if err != nil {
		return nil, err
	}
	content, filtered := s.filter.Apply(content, settings.DenyList)
	if filtered {
		metrics.ContentRedactedTotal.WithLabelValues(string(moderation.KindQuestion)).Inc()
	}
	name := in.UserName
	if name == "" {
		name = user.Name
	}
	userID := in.UserID
	q := &models.Question{
		UserID:   &userID,
		UserName: name,
		Content:  content,
		StreamID: models.ScopeOf(in.StreamID).StreamRef(),
		Filtered: filtered,
	}
	if err := s.store.Create(ctx, q); err != nil {
		s.logger.Error("persist question", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	s.hub.Broadcast(realtime.EventQuestionNew, q, realtime.Admins())
	return q, nil
}

// List returns questions for moderators; a nil stream lists all scopes.
func (s *Service) List(ctx context.Context, streamID *uuid.UUID, allScopes bool) ([]models.Question, error) {
	if allScopes {
		return s.store.List(ctx, nil, listLimit)
	}
	scope := models.ScopeOf(streamID)
	return s.store.List(ctx, &scope, listLimit)
}

// Display marks a question displayed and puts it on screen in its scope for seconds.
func (s *Service) Display(ctx context.Context, id uuid.UUID, seconds int) (*models.Question, error) {
	if seconds < 0 || seconds > MaxDisplaySeconds {
		return nil, models.ErrInvalidInput
	}
	if seconds == 0 {
		seconds = DefaultDisplaySeconds
	}
	q, err := s.store.MarkDisplayed(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(realtime.EventQuestionDisplay, DisplayPayload{
		UserName: q.UserName,
		Content:  q.Content,
		Duration: seconds,
		StreamID: q.StreamID,
	}, realtime.TargetFor(q.Scope()))
	return q, nil
}

// Delete removes a question.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.store.Delete(ctx, id)
	return err
}
