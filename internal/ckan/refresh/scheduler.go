package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/geesthacht-opendata/internal/ckan/aggregator"
	"github.com/geesthacht-opendata/internal/common/logger"
	"github.com/geesthacht-opendata/pkg/ckan/models"
	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning  = errors.New("refresh scheduler already running")
	ErrNotRunning      = errors.New("refresh scheduler not running")
	ErrInvalidInterval = errors.New("refresh interval must be positive")
)

type Config struct {
	Terms    []string
	Interval time.Duration
}

// Snapshot is the outcome of one refresh run. Each run produces a new one;
// the scheduler keeps none of them.
type Snapshot struct {
	RunID     uuid.UUID
	Terms     []string
	Datasets  []models.Package
	StartedAt time.Time
	Duration  time.Duration
}

type Handler func(Snapshot)

// Scheduler periodically re-runs a multi-term search and hands every result
// to a handler. It replaces free-running polling with a task the owner starts
// and tears down explicitly.
type Scheduler struct {
	config   Config
	searcher aggregator.MultiTermSearcher
	handler  Handler
	logger   logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

func NewScheduler(config Config, searcher aggregator.MultiTermSearcher, handler Handler, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		config:   config,
		searcher: searcher,
		handler:  handler,
		logger:   log,
	}
}

// Start refreshes once immediately and then every Interval. It blocks until
// ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	s.logger.Info("Starting refresh scheduler",
		"terms", s.config.Terms,
		"interval", s.config.Interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Refresh scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Stop cancels a running scheduler and waits for Start to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runOnce(ctx context.Context) {
	snap := Snapshot{
		RunID:     uuid.New(),
		Terms:     s.config.Terms,
		StartedAt: time.Now(),
	}

	snap.Datasets = s.searcher.SearchMultiTerm(ctx, s.config.Terms)
	snap.Duration = time.Since(snap.StartedAt)

	// A refresh cut short by shutdown is incomplete; don't publish it.
	if ctx.Err() != nil {
		s.logger.Debug("Refresh interrupted", "run_id", snap.RunID)
		return
	}

	s.logger.Info("Refresh completed",
		"run_id", snap.RunID,
		"datasets", len(snap.Datasets),
		"duration", snap.Duration)

	if s.handler != nil {
		s.handler(snap)
	}
}
