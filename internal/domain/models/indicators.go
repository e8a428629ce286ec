package models

// IndicatorSet holds the technical indicators derived from one PriceSeries.
// A nil field means the series was too short to compute it.
type IndicatorSet struct {
	EMA10  *float64 `json:"ema10"`
	EMA21  *float64 `json:"ema21"`
	SMA50  *float64 `json:"sma50"`
	SMA100 *float64 `json:"sma100"`
	SMA200 *float64 `json:"sma200"`
	RSI14  *float64 `json:"rsi14"`
	ADR14  *float64 `json:"adr14"`
	Perf1M *float64 `json:"perf_1m_pct"`
	Perf3M *float64 `json:"perf_3m_pct"`
	Perf6M *float64 `json:"perf_6m_pct"`
}
