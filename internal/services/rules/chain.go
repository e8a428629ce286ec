// Package rules implements the ordered screening chain. Stages run top to
// bottom and the first failing stage decides the rejection reason.
package rules

import (
	"MomentumScreener/internal/domain/models"
)

// Subject is what the chain knows about a symbol before any indicator is computed.
type Subject struct {
	Symbol       string
	Price        *float64
	Fundamentals models.Fundamentals
}

// IndicatorFunc produces the indicator set on demand. The chain calls it at
// most once per evaluation and only after the liquidity gate passed.
type IndicatorFunc func() models.IndicatorSet

// Verdict is the chain's decision for one subject.
type Verdict struct {
	Category   models.Category
	Reason     string
	Indicators *models.IndicatorSet
}

type stage struct {
	reason string
	pass   func(*input) bool
}

type input struct {
	Subject
	th      Thresholds
	compute IndicatorFunc
	set     *models.IndicatorSet
}

func (in *input) indicators() *models.IndicatorSet {
	if in.set == nil {
		s := models.IndicatorSet{}
		if in.compute != nil {
			s = in.compute()
		}
		in.set = &s
	}
	return in.set
}

// Chain evaluates subjects against a fixed set of thresholds.
type Chain struct {
	th     Thresholds
	stages []stage
}

// NewChain builds the canonical chain.
func NewChain(th Thresholds) *Chain {
	return &Chain{
		th: th,
		stages: []stage{
			{reason: models.ReasonLiquidity, pass: liquidity},
			{reason: models.ReasonVolatility, pass: volatility},
			{reason: models.ReasonTrendAlignment, pass: trendAlignment},
			{reason: models.ReasonOverbought, pass: notOverbought},
		},
	}
}

// Thresholds returns the chain's thresholds.
func (c *Chain) Thresholds() Thresholds { return c.th }

// Evaluate runs the gates in order and classifies momentum when all pass.
func (c *Chain) Evaluate(sub Subject, ind IndicatorFunc) Verdict {
	in := &input{Subject: sub, th: c.th, compute: ind}
	for _, st := range c.stages {
		if !st.pass(in) {
			return Verdict{Category: models.CategoryRejected, Reason: st.reason, Indicators: in.set}
		}
	}
	cat := classify(in.indicators(), c.th)
	v := Verdict{Category: cat, Indicators: in.set}
	if cat == models.CategoryRejected {
		v.Reason = models.ReasonInsufficientMomentum
	}
	return v
}

func liquidity(in *input) bool {
	return in.Price != nil && *in.Price > in.th.MinPrice &&
		in.Fundamentals.MarketCap != nil && *in.Fundamentals.MarketCap > in.th.MinMarketCap
}

func volatility(in *input) bool {
	if in.Fundamentals.Beta == nil || *in.Fundamentals.Beta < in.th.MinBeta {
		return false
	}
	adr := in.indicators().ADR14
	return adr != nil && *adr >= in.th.MinADRPct
}

// trendAlignment requires price > ema10 > ema21 > sma50 > sma100 > sma200.
func trendAlignment(in *input) bool {
	set := in.indicators()
	stack := []*float64{in.Price, set.EMA10, set.EMA21, set.SMA50, set.SMA100, set.SMA200}
	for i := 0; i < len(stack)-1; i++ {
		hi, lo := stack[i], stack[i+1]
		if hi == nil || lo == nil || !(*hi > *lo) {
			return false
		}
	}
	return true
}

func notOverbought(in *input) bool {
	rsi := in.indicators().RSI14
	return rsi != nil && *rsi < in.th.RSIOverboughtCeiling
}

func classify(set *models.IndicatorSet, th Thresholds) models.Category {
	if !atLeast(set.Perf1M, th.Perf1MFloor) || !atLeast(set.Perf3M, th.Perf3MFloor) {
		return models.CategoryRejected
	}
	if atLeast(set.Perf6M, th.Perf6MFloor) {
		return models.CategoryTopTier
	}
	return models.CategoryEmerging
}

func atLeast(v *float64, floor float64) bool {
	return v != nil && *v >= floor
}
