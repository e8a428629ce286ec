// Package indicators computes technical indicators from a daily price series.
// Every function is pure and reports absence with a false second return
// value instead of substituting a default.
package indicators

import (
	"MomentumScreener/internal/domain/models"
)

const (
	RSIPeriod = 14
	ADRPeriod = 14

	Lookback1M = 21
	Lookback3M = 63
	Lookback6M = 126
)

// SMA is the mean of the last period closes.
func SMA(s models.PriceSeries, period int) (float64, bool) {
	n := s.Len()
	if period <= 0 || n < period {
		return 0, false
	}
	var sum float64
	for i := n - period; i < n; i++ {
		sum += s.Bar(i).Close
	}
	return sum / float64(period), true
}

// EMA seeds with the SMA of the first period closes and then applies
// ema = close*k + ema*(1-k), k = 2/(period+1), over the remaining bars.
func EMA(s models.PriceSeries, period int) (float64, bool) {
	n := s.Len()
	if period <= 0 || n < period {
		return 0, false
	}
	var seed float64
	for i := 0; i < period; i++ {
		seed += s.Bar(i).Close
	}
	ema := seed / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < n; i++ {
		ema = s.Bar(i).Close*k + ema*(1-k)
	}
	return ema, true
}

// RSI averages gains and losses over the trailing period close-to-close changes.
// A window with no losses yields 100.
func RSI(s models.PriceSeries, period int) (float64, bool) {
	n := s.Len()
	if period <= 0 || n < period+1 {
		return 0, false
	}
	var gain, loss float64
	for i := n - period; i < n; i++ {
		ch := s.Bar(i).Close - s.Bar(i-1).Close
		if ch > 0 {
			gain += ch
		} else {
			loss -= ch
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// ADR is the mean of (high-low)/low over the last period bars, in percent.
func ADR(s models.PriceSeries, period int) (float64, bool) {
	n := s.Len()
	if period <= 0 || n < period {
		return 0, false
	}
	var total float64
	for i := n - period; i < n; i++ {
		b := s.Bar(i)
		total += (b.High - b.Low) / b.Low
	}
	return total / float64(period) * 100, true
}

// Performance is the percent change between the last close and the close lookback bars earlier.
func Performance(s models.PriceSeries, lookback int) (float64, bool) {
	n := s.Len()
	if lookback <= 0 || n <= lookback {
		return 0, false
	}
	now := s.Bar(n - 1).Close
	then := s.Bar(n - 1 - lookback).Close
	return (now - then) / then * 100, true
}

// Engine computes the full IndicatorSet.
type Engine struct{}

// NewEngine returns the default indicator engine.
func NewEngine() *Engine { return &Engine{} }

// Compute derives every indicator the rule chain consumes.
func (Engine) Compute(s models.PriceSeries) models.IndicatorSet {
	return models.IndicatorSet{
		EMA10:  opt(EMA(s, 10)),
		EMA21:  opt(EMA(s, 21)),
		SMA50:  opt(SMA(s, 50)),
		SMA100: opt(SMA(s, 100)),
		SMA200: opt(SMA(s, 200)),
		RSI14:  opt(RSI(s, RSIPeriod)),
		ADR14:  opt(ADR(s, ADRPeriod)),
		Perf1M: opt(Performance(s, Lookback1M)),
		Perf3M: opt(Performance(s, Lookback3M)),
		Perf6M: opt(Performance(s, Lookback6M)),
	}
}

func opt(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
