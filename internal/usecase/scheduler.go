package usecase

import (
	"context"
	"fmt"
	"sync/atomic"

	"MomentumScreener/internal/domain/models"
	xlogger "MomentumScreener/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Screener is the part of ScreeningService the scheduler and the Kafka handler need.
type Screener interface {
	Screen(ctx context.Context, p ScreenParams) (*models.ScreenResult, error)
}

// Scheduler runs screening passes on a cron schedule. Overlapping ticks are skipped.
type Scheduler struct {
	cron     *cron.Cron
	screener Screener
	logger   *xlogger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	running  atomic.Bool
}

// NewScheduler registers spec (standard five-field cron, or descriptors like "@daily").
func NewScheduler(screener Screener, spec string, logger *xlogger.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = xlogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     cron.New(),
		screener: screener,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("register screening schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop cancels an in-flight run and waits for it to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunNow executes one pass synchronously.
func (s *Scheduler) RunNow() { s.tick() }

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous scheduled run still in progress, skipping")
		return
	}
	defer s.running.Store(false)

	res, err := s.screener.Screen(s.ctx, ScreenParams{})
	if err != nil {
		s.logger.Error("scheduled screening failed", xlogger.Error(err))
		return
	}
	s.logger.Info("scheduled screening finished",
		xlogger.String("run_id", res.RunID),
		xlogger.Int("top_tier", len(res.TopTier)),
		xlogger.Int("emerging", len(res.Emerging)),
	)
}
