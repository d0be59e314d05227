package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aura-live/backend/internal/metrics"
)

// DefaultSnapshotInterval is how often the viewer count is recorded.
const DefaultSnapshotInterval = 60 * time.Second

// Snapshotter periodically records the global viewer count. It reads room sizes only and
// never blocks interaction handling.
type Snapshotter struct {
	tracker  *Tracker
	store    SessionStore
	logger   *zap.Logger
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSnapshotter creates a snapshot loop over tracker.
func NewSnapshotter(tracker *Tracker, store SessionStore, interval time.Duration, logger *zap.Logger) *Snapshotter {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{tracker: tracker, store: store, logger: logger, interval: interval}
}

// Start begins the snapshot loop. Call Stop() to release resources.
func (s *Snapshotter) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	s.logger.Info("viewer snapshots started", zap.Duration("interval", s.interval))
}

// Stop stops the loop and waits for it to exit.
func (s *Snapshotter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	<-s.done
	s.logger.Info("viewer snapshots stopped")
}

func (s *Snapshotter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.record(ctx)
		}
	}
}

func (s *Snapshotter) record(ctx context.Context) {
	count := s.tracker.Count()
	if err := s.store.RecordSnapshot(ctx, s.tracker.now(), count); err != nil {
		metrics.SnapshotFailures.Inc()
		s.logger.Warn("record viewer snapshot failed", zap.Int("count", count), zap.Error(err))
	}
}
