// Package alpaca provides daily price history from the Alpaca market data API.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	"MomentumScreener/internal/service/breaker"
	"MomentumScreener/internal/service/ratelimit"
	xlogger "MomentumScreener/pkg/logger"
	"MomentumScreener/pkg/util"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type Config struct {
	APIKey      string         `yaml:"api_key"`
	APISecret   string         `yaml:"api_secret"`
	Feed        string         `yaml:"feed" default:"iex" validate:"omitempty,oneof=iex sip"`
	HistoryDays int            `yaml:"history_days" default:"400"`
	RPS         float64        `yaml:"rps" default:"3"`
	Burst       int            `yaml:"burst" default:"3"`
	Breaker     breaker.Config `yaml:"breaker"`
}

// barsClient is the subset of *marketdata.Client used here.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// BarsProvider implements PriceDataProvider with split and dividend adjusted daily bars.
type BarsProvider struct {
	client  barsClient
	cfg     Config
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	now     func() time.Time
}

func New(cfg Config, logger *xlogger.Logger) (*BarsProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, errors.New("alpaca: api key and secret are not configured")
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	})
	return newWithClient(client, cfg, logger), nil
}

func newWithClient(client barsClient, cfg Config, logger *xlogger.Logger) *BarsProvider {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 400
	}
	if cfg.Feed == "" {
		cfg.Feed = marketdata.IEX
	}
	return &BarsProvider{
		client:  client,
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RPS, cfg.Burst),
		breaker: breaker.New("alpaca", cfg.Breaker, logger),
		now:     time.Now,
	}
}

func (p *BarsProvider) GetHistory(ctx context.Context, symbol string) (models.PriceSeries, error) {
	if err := p.limiter.Wait(ctx, "alpaca"); err != nil {
		return models.PriceSeries{}, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	start, end := util.HistoryWindow(p.now(), p.cfg.HistoryDays)
	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      start,
		End:        end,
		Feed:       p.cfg.Feed,
	}
	bars, err := breaker.Do(p.breaker, func() ([]marketdata.Bar, error) {
		return p.getBars(ctx, symbol, req)
	})
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return models.PriceSeries{}, fmt.Errorf("alpaca bars %s: %w", symbol, domrepo.ErrNotFound)
	}

	out := make([]models.PriceBar, len(bars))
	for i, b := range bars {
		out[i] = models.PriceBar{
			Date:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return models.NewPriceSeries(symbol, out)
}

type barsResult struct {
	bars []marketdata.Bar
	err  error
}

// getBars bounds the SDK call, which takes no context, by ctx. An abandoned
// call finishes in the background and its result is dropped.
func (p *BarsProvider) getBars(ctx context.Context, symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	done := make(chan barsResult, 1)
	go func() {
		bars, err := p.client.GetBars(symbol, req)
		done <- barsResult{bars, err}
	}()
	select {
	case r := <-done:
		return r.bars, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
