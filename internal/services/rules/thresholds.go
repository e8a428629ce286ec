package rules

// Thresholds are the configurable bounds of the rule chain. Zero is a valid
// bound, so defaults come from DefaultThresholds rather than struct tags.
type Thresholds struct {
	MinPrice             float64 `yaml:"min_price" validate:"gte=0"`
	MinMarketCap         float64 `yaml:"min_market_cap" validate:"gte=0"`
	MinBeta              float64 `yaml:"min_beta"`
	MinADRPct            float64 `yaml:"min_adr_pct" validate:"gte=0"`
	RSIOverboughtCeiling float64 `yaml:"rsi_overbought_ceiling" validate:"gte=0,lte=100"`
	Perf1MFloor          float64 `yaml:"perf_1m_floor"`
	Perf3MFloor          float64 `yaml:"perf_3m_floor"`
	Perf6MFloor          float64 `yaml:"perf_6m_floor"`
}

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPrice:             1,
		MinMarketCap:         300_000_000,
		MinBeta:              1.1,
		MinADRPct:            5,
		RSIOverboughtCeiling: 70,
		Perf1MFloor:          30,
		Perf3MFloor:          60,
		Perf6MFloor:          100,
	}
}

// Overrides replaces individual thresholds. Nil fields keep the base value.
type Overrides struct {
	MinPrice             *float64
	MinMarketCap         *float64
	MinBeta              *float64
	MinADRPct            *float64
	RSIOverboughtCeiling *float64
	Perf1MFloor          *float64
	Perf3MFloor          *float64
	Perf6MFloor          *float64
}

// Override returns t with every set field of o applied, zero included.
func (t Thresholds) Override(o Overrides) Thresholds {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&t.MinPrice, o.MinPrice)
	set(&t.MinMarketCap, o.MinMarketCap)
	set(&t.MinBeta, o.MinBeta)
	set(&t.MinADRPct, o.MinADRPct)
	set(&t.RSIOverboughtCeiling, o.RSIOverboughtCeiling)
	set(&t.Perf1MFloor, o.Perf1MFloor)
	set(&t.Perf3MFloor, o.Perf3MFloor)
	set(&t.Perf6MFloor, o.Perf6MFloor)
	return t
}
