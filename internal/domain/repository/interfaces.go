package repository

import (
	"context"
	"errors"
	"iter"

	"MomentumScreener/internal/domain/models"
)

// ErrNotFound is returned by providers when the upstream has no data for a symbol.
var ErrNotFound = errors.New("not found")

// PriceDataProvider returns a chronologically ordered daily history.
type PriceDataProvider interface {
	GetHistory(ctx context.Context, symbol string) (models.PriceSeries, error)
}

// FundamentalsProvider returns the company profile for a symbol.
type FundamentalsProvider interface {
	GetProfile(ctx context.Context, symbol string) (models.Fundamentals, error)
}

// QuoteProvider returns the latest quote for a symbol.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// SymbolSource yields ticker symbols lazily. Each call to Symbols starts a fresh pass.
type SymbolSource interface {
	Symbols(ctx context.Context) iter.Seq2[string, error]
}

// RunSink receives every completed run.
type RunSink interface {
	Record(ctx context.Context, run *models.ScreenRun) error
}

// RunStore reads back recorded runs.
type RunStore interface {
	RunSink
	Outcomes(ctx context.Context, runID string, limit int) ([]models.ScreenOutcome, error)
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordOutcome(category models.Category, reason string)
	RecordProviderError(provider, op string)
	RecordRun(evaluated, topTier, emerging int, seconds float64)
	RecordLatency(op string, seconds float64)
}
