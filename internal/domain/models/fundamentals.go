package models

// Fundamentals is the company profile used by the screening gates.
// Nil pointers mean the provider did not report the value.
type Fundamentals struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"company_name"`
	MarketCap   *float64 `json:"market_cap"` // USD
	Beta        *float64 `json:"beta"`
	Sector      string   `json:"sector"`
}

// Quote is the latest trade snapshot for a symbol.
type Quote struct {
	Symbol    string   `json:"symbol"`
	Current   float64  `json:"current"`
	Change    *float64 `json:"change"`
	ChangePct *float64 `json:"change_pct"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
