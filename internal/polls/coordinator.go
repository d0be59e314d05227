package polls

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
	"github.com/aura-live/backend/internal/models"
	"github.com/aura-live/backend/internal/moderation"
	"github.com/aura-live/backend/internal/realtime"
)

// Bounds on the number of options a poll may have.
const (
	MinOptions = 2
	MaxOptions = 10
)

// Store is the poll persistence the coordinator needs.
type Store interface {
	Create(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	List(ctx context.Context, scope *models.Scope) ([]models.Poll, error)
	FindActive(ctx context.Context, scope models.Scope) (*models.Poll, error)
	Activate(ctx context.Context, id uuid.UUID) (*models.Poll, []models.Poll, error)
	Close(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	SetShowResults(ctx context.Context, id uuid.UUID, show bool) (*models.Poll, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	CreateVote(ctx context.Context, v *models.PollVote) error
	UserVote(ctx context.Context, pollID, userID uuid.UUID) (*models.PollVote, error)
	Results(ctx context.Context, pollID uuid.UUID) (*models.PollResults, error)
}

// SettingsSource returns the settings in effect now.
type SettingsSource interface {
	Current(ctx context.Context) (models.Settings, error)
}

// CreateInput describes a new poll.
type CreateInput struct {
	StreamID    *uuid.UUID
	Question    string
	Options     []string
	ShowResults bool
}

// ClosedPayload is the body of poll:closed.
type ClosedPayload struct {
	ID       uuid.UUID  `json:"id"`
	StreamID *uuid.UUID `json:"streamId"`
}

// ResultsPayload is the body of poll:results.
type ResultsPayload struct {
	PollID   uuid.UUID           `json:"pollId"`
	Results  *models.PollResults `json:"results"`
	StreamID *uuid.UUID          `json:"streamId"`
}

// ViewerPoll is what a viewer sees of the active poll.
type ViewerPoll struct {
	Poll     *models.Poll        `json:"poll"`
	UserVote *uuid.UUID          `json:"userVote"`
	Results  *models.PollResults `json:"results,omitempty"`
}

// Coordinator drives the poll lifecycle and keeps at most one poll active per audience.
type Coordinator struct {
	store     Store
	settings  SettingsSource
	evaluator *moderation.Evaluator
	hub       realtime.Broadcaster
	logger    *zap.Logger
}

// NewCoordinator creates a poll coordinator.
func NewCoordinator(store Store, settings SettingsSource, evaluator *moderation.Evaluator, hub realtime.Broadcaster, logger *zap.Logger) *Coordinator {
	return &Coordinator{store: store, settings: settings, evaluator: evaluator, hub: hub, logger: logger}
}

// Create stores a draft poll.
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (*models.Poll, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" || len(in.Options) < MinOptions || len(in.Options) > MaxOptions {
		return nil, models.ErrInvalidInput
	}
	p := &models.Poll{
		StreamID:    models.ScopeOf(in.StreamID).StreamRef(),
		Question:    question,
		ShowResults: in.ShowResults,
	}
	for _, label := range in.Options {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, models.ErrInvalidInput
		}
		p.Options = append(p.Options, models.PollOption{Label: label})
	}
	if err := c.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns polls of a scope, or all polls.
func (c *Coordinator) List(ctx context.Context, streamID *uuid.UUID, allScopes bool) ([]models.Poll, error) {
	if allScopes {
		return c.store.List(ctx, nil)
	}
	scope := models.ScopeOf(streamID)
	return c.store.List(ctx, &scope)
}

// Activate makes a poll live. Competing active polls are closed first and each one's
// audience is told before the new poll is announced.
func (c *Coordinator) Activate(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, deactivated, err := c.store.Activate(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range deactivated {
		d := &deactivated[i]
		c.hub.Broadcast(realtime.EventPollClosed, ClosedPayload{ID: d.ID, StreamID: d.StreamID}, realtime.TargetFor(d.Scope()))
	}
	c.hub.Broadcast(realtime.EventPollNew, p, realtime.TargetFor(p.Scope()))
	c.logger.Info("poll activated",
		zap.String("poll_id", p.ID.String()),
		zap.String("scope", p.Scope().String()),
		zap.Int("deactivated", len(deactivated)))
	return p, nil
}

// Close ends an active poll. Draft and already closed polls give ErrPollNotActive and nothing is broadcast.
func (c *Coordinator) Close(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := c.store.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	c.hub.Broadcast(realtime.EventPollClosed, ClosedPayload{ID: p.ID, StreamID: p.StreamID}, realtime.TargetFor(p.Scope()))
	return p, nil
}

// Delete removes a poll and its votes.
func (c *Coordinator) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := c.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == models.PollActive {
		c.hub.Broadcast(realtime.EventPollClosed, ClosedPayload{ID: p.ID, StreamID: p.StreamID}, realtime.TargetFor(p.Scope()))
	}
	return nil
}

// SetShowResults toggles result visibility; turning it on publishes the current tally.
func (c *Coordinator) SetShowResults(ctx context.Context, id uuid.UUID, show bool) (*models.Poll, error) {
	p, err := c.store.SetShowResults(ctx, id, show)
	if err != nil {
		return nil, err
	}
	if show {
		if err := c.publishResults(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Vote casts the user's single vote on an active poll.
func (c *Coordinator) Vote(ctx context.Context, pollID, optionID, userID uuid.UUID, role models.Role) (*models.PollVote, error) {
	settings, err := c.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	decision, err := c.evaluator.Evaluate(moderation.KindPollVote, moderation.Author{Role: role}, settings)
	metrics.RecordInteraction(string(moderation.KindPollVote), string(decision))
	if err != nil {
		return nil, err
	}

	p, err := c.store.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PollActive {
		return nil, models.ErrPollNotActive
	}
	if !p.HasOption(optionID) {
		return nil, models.ErrInvalidInput
	}
	if _, err := c.store.UserVote(ctx, pollID, userID); err == nil {
		return nil, models.ErrDuplicateVote
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	v := &models.PollVote{PollID: pollID, OptionID: optionID, UserID: userID}
	if err := c.store.CreateVote(ctx, v); err != nil {
		return nil, err
	}
	if p.ShowResults {
		if err := c.publishResults(ctx, p); err != nil {
			c.logger.Warn("publish poll results", zap.String("poll_id", pollID.String()), zap.Error(err))
		}
	}
	return v, nil
}

// Results returns the tally. Viewers only get it while the poll shows results.
func (c *Coordinator) Results(ctx context.Context, pollID uuid.UUID, staff bool) (*models.PollResults, error) {
	p, err := c.store.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !staff && !p.ShowResults {
		return nil, nil
	}
	return c.store.Results(ctx, pollID)
}

// ActiveForViewer returns the poll active for a viewer of streamID along with the viewer's
// vote and, when shown, the tally. A nil poll means nothing is running.
func (c *Coordinator) ActiveForViewer(ctx context.Context, streamID *uuid.UUID, userID *uuid.UUID) (*ViewerPoll, error) {
	p, err := c.store.FindActive(ctx, models.ScopeOf(streamID))
	if errors.Is(err, models.ErrNotFound) {
		return &ViewerPoll{}, nil
	}
	if err != nil {
		return nil, err
	}
	view := &ViewerPoll{Poll: p}
	if userID != nil {
		v, err := c.store.UserVote(ctx, p.ID, *userID)
		switch {
		case err == nil:
			view.UserVote = &v.OptionID
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}
	if p.ShowResults {
		if view.Results, err = c.store.Results(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (c *Coordinator) publishResults(ctx context.Context, p *models.Poll) error {
	res, err := c.store.Results(ctx, p.ID)
	if err != nil {
		return err
	}
	c.hub.Broadcast(realtime.EventPollResults, ResultsPayload{PollID: p.ID, Results: res, StreamID: p.StreamID}, realtime.TargetFor(p.Scope()))
	return nil
}
