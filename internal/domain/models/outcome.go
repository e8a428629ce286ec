package models

import "time"

// Category is the classification a symbol receives from the rule chain.
type Category string

const (
	CategoryTopTier  Category = "top_tier"
	CategoryEmerging Category = "emerging"
	CategoryRejected Category = "rejected"
)

// Rejection reasons, one per rule stage plus the acquisition failure.
const (
	ReasonDataUnavailable      = "data unavailable"
	ReasonLiquidity            = "price/liquidity gate"
	ReasonVolatility           = "volatility/beta gate"
	ReasonTrendAlignment       = "trend-alignment gate"
	ReasonOverbought           = "overbought gate"
	ReasonInsufficientMomentum = "insufficient momentum"
)

// ScreenOutcome is the result of evaluating one symbol in one run.
// Reason is set iff Category is CategoryRejected. Indicators is nil when
// the chain stopped before any indicator was needed.
type ScreenOutcome struct {
	Symbol       string        `json:"symbol"`
	Price        *float64      `json:"price"`
	Fundamentals Fundamentals  `json:"fundamentals"`
	Quote        *Quote        `json:"quote,omitempty"`
	Indicators   *IndicatorSet `json:"indicators,omitempty"`
	Category     Category      `json:"category"`
	Reason       string        `json:"reason,omitempty"`
}

// Accepted reports whether the outcome landed in one of the two buckets.
func (o ScreenOutcome) Accepted() bool {
	return o.Category == CategoryTopTier || o.Category == CategoryEmerging
}

// ScreenResult is the aggregated output of a run.
type ScreenResult struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Evaluated  int             `json:"evaluated"`
	TopTier    []ScreenOutcome `json:"top_tier"`
	Emerging   []ScreenOutcome `json:"emerging"`
}

// ScreenRun is a completed run with every outcome, including rejections.
type ScreenRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []ScreenOutcome
}
