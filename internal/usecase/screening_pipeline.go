package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	domsvc "MomentumScreener/internal/domain/service"
	"MomentumScreener/internal/services/indicators"
	"MomentumScreener/internal/services/rules"
	xlogger "MomentumScreener/pkg/logger"
)

// DefaultMinHistoryBars is the shortest history the pipeline evaluates.
const DefaultMinHistoryBars = indicators.Lookback6M

// PipelineOption configures ScreeningPipeline.
type PipelineOption func(*ScreeningPipeline)

// WithQuotes sets the optional quote provider.
func WithQuotes(q domrepo.QuoteProvider) PipelineOption {
	return func(p *ScreeningPipeline) { p.quotes = q }
}

// WithCalculator replaces the indicator engine.
func WithCalculator(c domsvc.IndicatorCalculator) PipelineOption {
	return func(p *ScreeningPipeline) { p.calc = c }
}

// WithMinHistory sets the minimum number of bars required.
func WithMinHistory(bars int) PipelineOption {
	return func(p *ScreeningPipeline) {
		if bars > 0 {
			p.minHistory = bars
		}
	}
}

// WithSymbolTimeout bounds data acquisition for one symbol.
func WithSymbolTimeout(d time.Duration) PipelineOption {
	return func(p *ScreeningPipeline) { p.symbolTimeout = d }
}

// WithPipelineMetrics sets the metrics recorder.
func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *ScreeningPipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *xlogger.Logger) PipelineOption {
	return func(p *ScreeningPipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// ScreeningPipeline evaluates symbols independently: acquire, compute, classify.
type ScreeningPipeline struct {
	history       domrepo.PriceDataProvider
	profiles      domrepo.FundamentalsProvider
	quotes        domrepo.QuoteProvider
	calc          domsvc.IndicatorCalculator
	metrics       domrepo.Metrics
	logger        *xlogger.Logger
	minHistory    int
	symbolTimeout time.Duration
}

func NewScreeningPipeline(history domrepo.PriceDataProvider, profiles domrepo.FundamentalsProvider, opts ...PipelineOption) *ScreeningPipeline {
	p := &ScreeningPipeline{
		history:    history,
		profiles:   profiles,
		calc:       indicators.NewEngine(),
		metrics:    noopMetrics{},
		logger:     xlogger.Nop(),
		minHistory: DefaultMinHistoryBars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type acquired struct {
	series  models.PriceSeries
	profile models.Fundamentals
	quote   *models.Quote
}

// Evaluate classifies one symbol. It never returns an error: acquisition
// failures become a rejected outcome.
func (p *ScreeningPipeline) Evaluate(ctx context.Context, symbol string, chain *rules.Chain) models.ScreenOutcome {
	start := time.Now()
	defer func() { p.metrics.RecordLatency("evaluate", time.Since(start).Seconds()) }()

	data, err := p.acquire(ctx, symbol)
	if err != nil {
		p.logger.Warn("symbol data unavailable", xlogger.String("symbol", symbol), xlogger.Error(err))
		return p.record(models.ScreenOutcome{
			Symbol:   symbol,
			Category: models.CategoryRejected,
			Reason:   models.ReasonDataUnavailable,
		})
	}

	price := priceOf(data)
	v := chain.Evaluate(rules.Subject{
		Symbol:       symbol,
		Price:        price,
		Fundamentals: data.profile,
	}, func() models.IndicatorSet {
		return p.calc.Compute(data.series)
	})

	fields := []xlogger.Field{
		xlogger.String("symbol", symbol),
		xlogger.String("category", string(v.Category)),
		xlogger.String("reason", v.Reason),
		xlogger.OptFloat("price", price),
	}
	if v.Indicators != nil {
		fields = append(fields,
			xlogger.OptFloat("rsi14", v.Indicators.RSI14),
			xlogger.OptFloat("perf_1m_pct", v.Indicators.Perf1M))
	}
	p.logger.Debug("symbol classified", fields...)
	return p.record(models.ScreenOutcome{
		Symbol:       symbol,
		Price:        price,
		Fundamentals: data.profile,
		Quote:        data.quote,
		Indicators:   v.Indicators,
		Category:     v.Category,
		Reason:       v.Reason,
	})
}

// Run evaluates every symbol concurrently and streams outcomes as they finish.
// The returned channel is closed after the last outcome.
func (p *ScreeningPipeline) Run(ctx context.Context, symbols []string, chain *rules.Chain) <-chan models.ScreenOutcome {
	out := make(chan models.ScreenOutcome, len(symbols))
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			out <- p.Evaluate(ctx, sym, chain)
		}(sym)
	}
	go func() { wg.Wait(); close(out) }()
	return out
}

func (p *ScreeningPipeline) acquire(ctx context.Context, symbol string) (*acquired, error) {
	if p.symbolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.symbolTimeout)
		defer cancel()
	}

	var (
		wg               sync.WaitGroup
		data             acquired
		histErr, profErr error
		quote            models.Quote
		quoteErr         error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		data.series, histErr = p.history.GetHistory(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		data.profile, profErr = p.profiles.GetProfile(ctx, symbol)
	}()
	if p.quotes != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, quoteErr = p.quotes.GetQuote(ctx, symbol)
		}()
	}
	wg.Wait()

	if histErr != nil {
		p.metrics.RecordProviderError("history", "get_history")
		return nil, fmt.Errorf("history: %w", histErr)
	}
	if profErr != nil {
		p.metrics.RecordProviderError("fundamentals", "get_profile")
		return nil, fmt.Errorf("profile: %w", profErr)
	}
	if n := data.series.Len(); n < p.minHistory {
		return nil, fmt.Errorf("insufficient history: %d bars, need %d", n, p.minHistory)
	}
	if p.quotes != nil {
		if quoteErr != nil {
			// The last close stands in for the quote price.
			p.metrics.RecordProviderError("quote", "get_quote")
			p.logger.Debug("quote unavailable", xlogger.String("symbol", symbol), xlogger.Error(quoteErr))
		} else {
			data.quote = &quote
		}
	}
	if data.profile.Symbol == "" {
		data.profile.Symbol = symbol
	}
	return &data, nil
}

func (p *ScreeningPipeline) record(o models.ScreenOutcome) models.ScreenOutcome {
	p.metrics.RecordOutcome(o.Category, o.Reason)
	return o
}

func priceOf(d *acquired) *float64 {
	if d.quote != nil && d.quote.Current > 0 {
		return models.Float(d.quote.Current)
	}
	if c, ok := d.series.LastClose(); ok {
		return models.Float(c)
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordOutcome(models.Category, string) {}
func (noopMetrics) RecordProviderError(string, string)   {}
func (noopMetrics) RecordRun(int, int, int, float64)     {}
func (noopMetrics) RecordLatency(string, float64)        {}
