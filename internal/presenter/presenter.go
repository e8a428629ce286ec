// Package presenter flattens screen outcomes into the published row shape.
package presenter

import (
	"MomentumScreener/internal/domain/models"

	"github.com/shopspring/decimal"
)

// StockView is one row of the screen-stocks document.
type StockView struct {
	Symbol            string   `json:"symbol"`
	CompanyName       string   `json:"company_name"`
	Price             *float64 `json:"price"`
	PriceChangeAbs    *float64 `json:"price_change_abs"`
	PriceChangePct    *float64 `json:"price_change_pct"`
	Perf1MPct         *float64 `json:"perf_1m_pct"`
	Perf3MPct         *float64 `json:"perf_3m_pct"`
	Perf6MPct         *float64 `json:"perf_6m_pct"`
	MarketCap         *float64 `json:"market_cap"`
	MarketCapBillions *float64 `json:"market_cap_billions"`
	Sector            string   `json:"sector"`
	RSI               *float64 `json:"rsi"`
	Beta              *float64 `json:"beta"`
	Category          string   `json:"category"`
	Reason            string   `json:"reason,omitempty"`
}

// ScreenDocument is the response of GET /api/screen-stocks.
type ScreenDocument struct {
	TopTier  []StockView `json:"top_tier_stocks"`
	Emerging []StockView `json:"emerging_momentum_stocks"`
}

var billion = decimal.New(1, 9)

// Result renders both buckets of a run.
func Result(res *models.ScreenResult) ScreenDocument {
	doc := ScreenDocument{
		TopTier:  make([]StockView, 0, len(res.TopTier)),
		Emerging: make([]StockView, 0, len(res.Emerging)),
	}
	for _, o := range res.TopTier {
		doc.TopTier = append(doc.TopTier, Outcome(o))
	}
	for _, o := range res.Emerging {
		doc.Emerging = append(doc.Emerging, Outcome(o))
	}
	return doc
}

// Outcomes renders outcomes in order.
func Outcomes(outs []models.ScreenOutcome) []StockView {
	views := make([]StockView, len(outs))
	for i, o := range outs {
		views[i] = Outcome(o)
	}
	return views
}

// Outcome renders one outcome. Absent values stay null.
func Outcome(o models.ScreenOutcome) StockView {
	v := StockView{
		Symbol:      o.Symbol,
		CompanyName: o.Fundamentals.CompanyName,
		Price:       round(o.Price, 2),
		MarketCap:   o.Fundamentals.MarketCap,
		Sector:      o.Fundamentals.Sector,
		Beta:        round(o.Fundamentals.Beta, 2),
		Category:    string(o.Category),
		Reason:      o.Reason,
	}
	if o.Quote != nil {
		v.PriceChangeAbs = round(o.Quote.Change, 2)
		v.PriceChangePct = round(o.Quote.ChangePct, 2)
	}
	if o.Indicators != nil {
		v.Perf1MPct = round(o.Indicators.Perf1M, 2)
		v.Perf3MPct = round(o.Indicators.Perf3M, 2)
		v.Perf6MPct = round(o.Indicators.Perf6M, 2)
		v.RSI = round(o.Indicators.RSI14, 2)
	}
	if o.Fundamentals.MarketCap != nil {
		b, _ := decimal.NewFromFloat(*o.Fundamentals.MarketCap).Div(billion).Round(3).Float64()
		v.MarketCapBillions = &b
	}
	return v
}

func round(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r, _ := decimal.NewFromFloat(*v).Round(places).Float64()
	return &r
}
