// Package fake serves deterministic synthetic market data for demos and offline runs.
package fake

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"MomentumScreener/internal/domain/models"
)

// DefaultSymbols is the listing used when no symbols are configured.
var DefaultSymbols = []string{
	"AAPL", "AMD", "AMZN", "AVGO", "CRWD", "DDOG", "GOOGL", "META", "MSFT", "NET",
	"NVDA", "PLTR", "SHOP", "SMCI", "SNOW", "TSLA", "UBER", "ZS",
}

// Provider generates a reproducible random walk per symbol. The same symbol always
// yields the same history, profile and quote.
type Provider struct {
	bars int
	end  time.Time
}

type Option func(*Provider)

// WithBars sets the number of daily bars generated per symbol.
func WithBars(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.bars = n
		}
	}
}

// WithEndDate sets the date of the last bar.
func WithEndDate(t time.Time) Option {
	return func(p *Provider) { p.end = t.UTC().Truncate(24 * time.Hour) }
}

func New(opts ...Option) *Provider {
	p := &Provider{
		bars: 260,
		end:  time.Now().UTC().Truncate(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func seed(symbol string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

func (p *Provider) rng(symbol, stream string) *rand.Rand {
	return rand.New(rand.NewPCG(seed(symbol), seed(stream)))
}

func (p *Provider) GetHistory(ctx context.Context, symbol string) (models.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return models.PriceSeries{}, err
	}
	r := p.rng(symbol, "history")
	drift := -0.002 + r.Float64()*0.01 // per day
	vol := 0.015 + r.Float64()*0.035
	price := 5 + r.Float64()*295

	start := p.end.AddDate(0, 0, -(p.bars - 1))
	bars := make([]models.PriceBar, p.bars)
	for i := range bars {
		open := price
		price = math.Max(0.5, price*math.Exp(drift+vol*r.NormFloat64()))
		hi := math.Max(open, price) * (1 + vol*r.Float64())
		lo := math.Min(open, price) * (1 - vol*r.Float64()*0.9)
		bars[i] = models.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  price,
			Volume: uint64(100_000 + r.IntN(5_000_000)),
		}
	}
	return models.NewPriceSeries(symbol, bars)
}

func (p *Provider) GetProfile(ctx context.Context, symbol string) (models.Fundamentals, error) {
	if err := ctx.Err(); err != nil {
		return models.Fundamentals{}, err
	}
	r := p.rng(symbol, "profile")
	sectors := []string{"Technology", "Semiconductors", "Software", "Media", "Retail", "Energy"}
	return models.Fundamentals{
		Symbol:      symbol,
		CompanyName: symbol + " Holdings",
		MarketCap:   models.Float(math.Round(1e8 + r.Float64()*2e12)),
		Beta:        models.Float(math.Round((0.6+r.Float64()*1.8)*100) / 100),
		Sector:      sectors[r.IntN(len(sectors))],
	}, nil
}

// GetQuote reports the last synthetic close with its change against the prior close.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	s, err := p.GetHistory(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	last, _ := s.LastClose()
	q := models.Quote{Symbol: symbol, Current: last}
	if n := s.Len(); n >= 2 {
		prev := s.Bar(n - 2).Close
		q.Change = models.Float(last - prev)
		q.ChangePct = models.Float((last - prev) / prev * 100)
	}
	return q, nil
}
