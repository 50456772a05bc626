package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OrphanSweeper deletes cached decks whose slide no longer exists.
type OrphanSweeper interface {
	DeleteOrphanDecks(ctx context.Context) (int64, error)
}

// Sweeper runs an OrphanSweeper on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	target  OrphanSweeper
	logger  *zap.Logger
	mu      sync.Mutex
	started bool
}

// NewSweeper schedules target with a standard five-field cron spec.
func NewSweeper(spec string, target OrphanSweeper, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		target: target,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs a single sweep and returns the number of decks removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	return s.target.DeleteOrphanDecks(ctx)
}

func (s *Sweeper) run() {
	n, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.Warn("Orphan deck sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Removed orphan decks", zap.Int64("count", n))
	}
}

// Start begins the schedule.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		<-s.cron.Stop().Done()
		s.started = false
	}
}
