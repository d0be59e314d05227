package chat

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/moderation"
	"github.com/aura-live/backend/internal/realtime"
)

// MaxContentLength bounds a chat line in characters.
const MaxContentLength = 1000

// Store is the chat persistence the service needs.
type Store interface {
	Create(ctx context.Context, m *models.ChatMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	SetHighlighted(ctx context.Context, id uuid.UUID, highlighted bool) (*models.ChatMessage, error)
	FindRecent(ctx context.Context, scope models.Scope, limit int, allScopes bool) ([]models.ChatMessage, error)
	ListPending(ctx context.Context, limit int) ([]models.ChatMessage, error)
}

// SettingsSource returns the settings in effect now.
type SettingsSource interface {
	Current(ctx context.Context) (models.Settings, error)
}

// UserLookup returns the current standing of a user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SubmitInput is a chat message as submitted by an authenticated user.
type SubmitInput struct {
	UserID   uuid.UUID
	UserName string
	StreamID *uuid.UUID // the submitter's active stream, if any
	Content  string
}

// Service runs chat messages through moderation, persists them and broadcasts the result.
type Service struct {
	store        Store
	settings     SettingsSource
	users        UserLookup
	evaluator    *moderation.Evaluator
	filter       *moderation.Filter
	hub          realtime.Broadcaster
	logger       *zap.Logger
	historyLimit int
}

// NewService creates a chat service.
func NewService(store Store, settings SettingsSource, users UserLookup, evaluator *moderation.Evaluator,
	filter *moderation.Filter, hub realtime.Broadcaster, historyLimit int, logger *zap.Logger) *Service {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Service{
		store:        store,
		settings:     settings,
		users:        users,
		evaluator:    evaluator,
		filter:       filter,
		hub:          hub,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// ResolveScope picks the scope a new message is stored under: global when chat is global,
// otherwise the submitter's stream (global when it has none).
func ResolveScope(flags models.FeatureFlags, streamID *uuid.UUID) models.Scope {
	if flags.ChatGlobal {
		return models.GlobalScope()
	}
	return models.ScopeOf(streamID)
}

// Submit evaluates, persists and broadcasts a chat message. Nothing is written or broadcast
// when moderation rejects it.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.ChatMessage, error) {
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
	decision, err := s.evaluator.Evaluate(moderation.KindChat, moderation.Author{Role: user.Role, Status: user.Status}, settings)
	metrics.RecordInteraction(string(moderation.KindChat), string(decision))
	if err != nil {
		return nil, err
	}

	content, filtered := s.filter.Apply(content, settings.DenyList)
	if filtered {
		metrics.ContentRedactedTotal.WithLabelValues(string(moderation.KindChat)).Inc()
	}
	name := in.UserName
	if name == "" {
		name = user.Name
	}
	scope := ResolveScope(settings.FeatureFlags, in.StreamID)
	userID := in.UserID
	msg := &models.ChatMessage{
		UserID:   &userID,
		UserName: name,
		UserRole: user.Role,
		Content:  content,
		StreamID: scope.StreamRef(),
		State:    decision.State(),
		Approved: decision == moderation.Accept,
		Filtered: filtered,
	}
	if err := s.store.Create(ctx, msg); err != nil {
		s.logger.Error("persist chat message", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}

	if msg.Approved {
		s.hub.Broadcast(realtime.EventChatMessage, msg, realtime.TargetFor(scope))
	} else {
		s.hub.Broadcast(realtime.EventChatPending, msg, realtime.Admins())
	}
	return msg, nil
}

type socketMessage struct {
	Content  string     `json:"content"`
	StreamID *uuid.UUID `json:"streamId"`
}

// SubmitFromSocket handles a chat:message event. Identity comes from the connection, never
// from the payload.
func (s *Service) SubmitFromSocket(ctx context.Context, sender realtime.Sender, data json.RawMessage) error {
	if !sender.Authenticated() {
		return models.ErrUnauthenticated
	}
	var body socketMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return models.ErrInvalidInput
	}
	streamID := sender.StreamID
	if body.StreamID != nil && *body.StreamID != uuid.Nil {
		streamID = body.StreamID
	}
	_, err := s.Submit(ctx, SubmitInput{
		UserID:   *sender.UserID,
		UserName: sender.Name,
		StreamID: streamID,
		Content:  body.Content,
	})
	return err
}

// History returns recent approved messages. With allStreams every scope is included;
// otherwise the scope is resolved from the current chat mode exactly as for new messages.
// Messages keep the scope they were stored under.
func (s *Service) History(ctx context.Context, streamID *uuid.UUID, allStreams bool) ([]models.ChatMessage, error) {
	if allStreams {
		return s.store.FindRecent(ctx, models.GlobalScope(), s.historyLimit, true)
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.FindRecent(ctx, ResolveScope(settings.FeatureFlags, streamID), s.historyLimit, false)
}

// Pending returns messages awaiting moderation.
func (s *Service) Pending(ctx context.Context) ([]models.ChatMessage, error) {
	return s.store.ListPending(ctx, s.historyLimit)
}

// Approve publishes a pending message to its scope. Approving a message that is not
// pending returns it unchanged and broadcasts nothing.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	msg, err := s.store.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return s.store.GetByID(ctx, id)
	}
	s.hub.Broadcast(realtime.EventChatMessage, msg, realtime.TargetFor(msg.Scope()))
	return msg, nil
}

// Reject hides a pending message; moderators drop it from their queue.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	msg, err := s.store.Reject(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return s.store.GetByID(ctx, id)
	}
	s.hub.Broadcast(realtime.EventChatDelete, map[string]any{"id": msg.ID}, realtime.Admins())
	return msg, nil
}

// Delete removes a message everywhere it may be displayed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	msg, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	payload := map[string]any{"id": msg.ID}
	scope := msg.Scope()
	s.hub.Broadcast(realtime.EventChatDelete, payload, realtime.TargetFor(scope))
	if !scope.IsGlobal() {
		s.hub.Broadcast(realtime.EventChatDelete, payload, realtime.Admins())
	}
	return nil
}

// Highlight pins or unpins a message.
func (s *Service) Highlight(ctx context.Context, id uuid.UUID, highlighted bool) (*models.ChatMessage, error) {
	msg, err := s.store.SetHighlighted(ctx, id, highlighted)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(realtime.EventChatUpdate, msg, realtime.TargetFor(msg.Scope()))
	return msg, nil
}
