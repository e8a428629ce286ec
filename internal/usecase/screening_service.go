package usecase

import (
	"context"
	"fmt"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	"MomentumScreener/internal/service/symbols"
	"MomentumScreener/internal/services/rules"
	xlogger "MomentumScreener/pkg/logger"

	"github.com/google/uuid"
)

// ScreenParams customizes one screening run.
type ScreenParams struct {
	// Symbols replaces the symbol source when non-empty.
	Symbols    []string
	MaxSymbols int
	Overrides  rules.Overrides
	// OnOutcome observes each outcome as soon as it is evaluated.
	OnOutcome func(models.ScreenOutcome)
}

// ScreeningService runs complete screening passes and records them.
type ScreeningService struct {
	source     domrepo.SymbolSource
	pipeline   *ScreeningPipeline
	sinks      []domrepo.RunSink
	metrics    domrepo.Metrics
	logger     *xlogger.Logger
	thresholds rules.Thresholds
	maxSymbols int
	runTimeout time.Duration
}

func NewScreeningService(
	source domrepo.SymbolSource,
	pipeline *ScreeningPipeline,
	sinks []domrepo.RunSink,
	metrics domrepo.Metrics,
	logger *xlogger.Logger,
	thresholds rules.Thresholds,
	maxSymbols int,
	runTimeout time.Duration,
) *ScreeningService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ScreeningService{
		source:     source,
		pipeline:   pipeline,
		sinks:      sinks,
		metrics:    metrics,
		logger:     logger,
		thresholds: thresholds,
		maxSymbols: maxSymbols,
		runTimeout: runTimeout,
	}
}

// Thresholds returns the configured thresholds.
func (s *ScreeningService) Thresholds() rules.Thresholds { return s.thresholds }

// Screen evaluates a batch of symbols and aggregates the accepted ones.
// Only symbol enumeration failures abort the run.
func (s *ScreeningService) Screen(ctx context.Context, p ScreenParams) (*models.ScreenResult, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	runID := uuid.NewString()
	started := time.Now()
	log := s.logger.With(xlogger.String("run_id", runID))

	limit := s.maxSymbols
	if p.MaxSymbols > 0 {
		limit = p.MaxSymbols
	}

	syms := p.Symbols
	if len(syms) == 0 {
		if s.source == nil {
			return nil, fmt.Errorf("no symbols given and no symbol source configured")
		}
		var err error
		syms, err = symbols.Take(ctx, s.source, limit)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w", err)
		}
	} else if limit > 0 && len(syms) > limit {
		syms = syms[:limit]
	}

	chain := rules.NewChain(s.thresholds.Override(p.Overrides))
	log.Info("screening started", xlogger.Int("symbols", len(syms)))

	outcomes := make([]models.ScreenOutcome, 0, len(syms))
	for o := range s.pipeline.Run(ctx, syms, chain) {
		outcomes = append(outcomes, o)
		if p.OnOutcome != nil {
			p.OnOutcome(o)
		}
	}

	res := Aggregate(outcomes)
	res.RunID = runID
	res.StartedAt = started
	res.FinishedAt = time.Now()

	elapsed := res.FinishedAt.Sub(started)
	s.metrics.RecordRun(res.Evaluated, len(res.TopTier), len(res.Emerging), elapsed.Seconds())
	log.Info("screening complete",
		xlogger.Int("evaluated", res.Evaluated),
		xlogger.Int("top_tier", len(res.TopTier)),
		xlogger.Int("emerging", len(res.Emerging)),
		xlogger.Duration("duration_ms", elapsed),
	)

	s.recordRun(context.WithoutCancel(ctx), &models.ScreenRun{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: res.FinishedAt,
		Outcomes:   outcomes,
	}, log)

	return &res, nil
}

func (s *ScreeningService) recordRun(ctx context.Context, run *models.ScreenRun, log *xlogger.Logger) {
	for _, sink := range s.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, run); err != nil {
			log.Error("record run failed", xlogger.String("sink", fmt.Sprintf("%T", sink)), xlogger.Error(err))
		}
	}
}
