package models

// ScreenRequest carries optional per-request threshold overrides for the screen endpoints.
// Parameters missing from the query keep the configured threshold.
type ScreenRequest struct {
	Symbols              string  `query:"symbols" json:"symbols"`
	MaxSymbols           int     `query:"max_symbols" json:"max_symbols" validate:"gte=0,lte=5000"`
	MinPrice             float64 `query:"min_price" json:"min_price" validate:"gte=0"`
	MinMarketCap         float64 `query:"min_market_cap" json:"min_market_cap" validate:"gte=0"`
	MinBeta              float64 `query:"min_beta" json:"min_beta" validate:"gte=0"`
	MinADRPct            float64 `query:"min_adr_pct" json:"min_adr_pct" validate:"gte=0"`
	RSIOverboughtCeiling float64 `query:"rsi_overbought_ceiling" json:"rsi_overbought_ceiling" validate:"gte=0,lte=100"`
	Perf1MFloor          float64 `query:"perf_1m_floor" json:"perf_1m_floor"`
	Perf3MFloor          float64 `query:"perf_3m_floor" json:"perf_3m_floor"`
	Perf6MFloor          float64 `query:"perf_6m_floor" json:"perf_6m_floor"`
}

// RunRequest identifies a stored screening run.
type RunRequest struct {
	ID    string `param:"id" validate:"required,uuid"`
	Limit int    `query:"limit" default:"500" validate:"gte=1,lte=10000"`
}

// ScreenTrigger is the payload of a run request received from the message bus.
type ScreenTrigger struct {
	Symbols    []string `json:"symbols"`
	MaxSymbols int      `json:"max_symbols"`
}
