package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidSeries is returned when provider bars cannot form a valid PriceSeries.
var ErrInvalidSeries = errors.New("invalid price series")

// PriceBar is one trading day's OHLCV record.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume uint64    `json:"volume"`
}

// PriceSeries is one symbol's daily history, strictly increasing by date.
type PriceSeries struct {
	Symbol string
	bars   []PriceBar
}

// NewPriceSeries sorts bars chronologically and validates them.
// Dates are compared at calendar-day granularity in UTC.
func NewPriceSeries(symbol string, bars []PriceBar) (PriceSeries, error) {
	cp := make([]PriceBar, len(bars))
	copy(cp, bars)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })

	var prev string
	for i, b := range cp {
		if !positive(b.Open) || !positive(b.High) || !positive(b.Low) || !positive(b.Close) {
			return PriceSeries{}, fmt.Errorf("%w: %s bar %d has non-positive price", ErrInvalidSeries, symbol, i)
		}
		day := b.Date.UTC().Format("2006-01-02")
		if day == prev {
			return PriceSeries{}, fmt.Errorf("%w: %s duplicate date %s", ErrInvalidSeries, symbol, day)
		}
		prev = day
	}
	return PriceSeries{Symbol: symbol, bars: cp}, nil
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.bars) }

// Bar returns the i-th bar in chronological order.
func (s PriceSeries) Bar(i int) PriceBar { return s.bars[i] }

// Closes returns a copy of the close prices in chronological order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// LastClose returns the most recent close.
func (s PriceSeries) LastClose() (float64, bool) {
	if len(s.bars) == 0 {
		return 0, false
	}
	return s.bars[len(s.bars)-1].Close, true
}

// Bars returns a copy of the bars in chronological order.
func (s PriceSeries) Bars() []PriceBar {
	out := make([]PriceBar, len(s.bars))
	copy(out, s.bars)
	return out
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
