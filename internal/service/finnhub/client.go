// Package finnhub is the REST collaborator for symbol listings, company profiles,
// quotes and daily candles.
package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	"MomentumScreener/internal/service/breaker"
	"MomentumScreener/internal/service/ratelimit"
	"MomentumScreener/internal/service/symbols"
	xhttp "MomentumScreener/pkg/http"
	xlogger "MomentumScreener/pkg/logger"
	"MomentumScreener/pkg/util"
)

var (
	// ErrUnauthorized means the API key was rejected.
	ErrUnauthorized = errors.New("finnhub: unauthorized")
	// ErrRateLimited means the upstream answered 429.
	ErrRateLimited = errors.New("finnhub: rate limited")
)

// Config holds Finnhub connection settings.
type Config struct {
	APIKey      string         `yaml:"api_key"`
	BaseURL     string         `yaml:"base_url" default:"https://finnhub.io/api/v1"`
	Timeout     time.Duration  `yaml:"timeout" default:"10s"`
	RPS         float64        `yaml:"rps" default:"25"`
	Burst       int            `yaml:"burst" default:"5"`
	Exchange    string         `yaml:"exchange" default:"US"`
	HistoryDays int            `yaml:"history_days" default:"400"`
	PageSize    int            `yaml:"page_size" default:"500"`
	Breaker     breaker.Config `yaml:"breaker"`
}

// Client implements the price, fundamentals and quote providers plus symbols.PageFetcher.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	metrics domrepo.Metrics
	logger  *xlogger.Logger
	now     func() time.Time

	mu       sync.Mutex
	pass     uint64
	listings map[uint64][]string // by pass, oldest evicted past maxListingPasses
}

// maxListingPasses bounds the listings kept for passes that stopped early.
const maxListingPasses = 8

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithMetrics records failed calls.
func WithMetrics(m domrepo.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *xlogger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithClock overrides the time source used for candle windows.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// New returns a Client. An empty API key is a configuration error.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("finnhub: api key is not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Exchange == "" {
		cfg.Exchange = "US"
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 400
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RPS, cfg.Burst),
		logger:  xlogger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout))
	}
	c.breaker = breaker.New("finnhub", cfg.Breaker, c.logger)
	return c, nil
}

type symbolDTO struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
}

type profileDTO struct {
	Ticker               string   `json:"ticker"`
	Name                 string   `json:"name"`
	FinnhubIndustry      string   `json:"finnhubIndustry"`
	MarketCapitalization *float64 `json:"marketCapitalization"` // millions
	Beta                 *float64 `json:"beta"`
}

type quoteDTO struct {
	C  float64  `json:"c"`
	D  *float64 `json:"d"`
	DP *float64 `json:"dp"`
}

type candleDTO struct {
	S string    `json:"s"`
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	V []float64 `json:"v"`
	T []int64   `json:"t"`
}

// FetchPage serves the exchange listing in pages. The first page of a pass
// downloads a fresh listing and later pages of that pass read the same copy,
// so concurrent passes never see each other's listing. Cursors are
// "<pass>:<offset>".
func (c *Client) FetchPage(ctx context.Context, cursor string) (symbols.Page, error) {
	var (
		pass  uint64
		start int
		list  []string
	)
	if cursor == "" {
		fresh, err := c.fetchListing(ctx)
		if err != nil {
			return symbols.Page{}, err
		}
		pass, list = c.storeListing(fresh), fresh
	} else {
		var err error
		if pass, start, err = parseCursor(cursor); err != nil {
			return symbols.Page{}, err
		}
		var ok bool
		if list, ok = c.loadListing(pass); !ok {
			return symbols.Page{}, fmt.Errorf("finnhub: listing for cursor %q expired", cursor)
		}
	}

	if start > len(list) {
		start = len(list)
	}
	end := start + c.cfg.PageSize
	if end >= len(list) {
		c.dropListing(pass)
		return symbols.Page{Symbols: list[start:]}, nil
	}
	return symbols.Page{Symbols: list[start:end], Next: fmt.Sprintf("%d:%d", pass, end)}, nil
}

func parseCursor(cursor string) (pass uint64, offset int, err error) {
	p, o, ok := strings.Cut(cursor, ":")
	if ok {
		pass, err = strconv.ParseUint(p, 10, 64)
		if err == nil {
			offset, err = strconv.Atoi(o)
		}
	}
	if !ok || err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("finnhub: invalid cursor %q", cursor)
	}
	return pass, offset, nil
}

func (c *Client) storeListing(list []string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listings == nil {
		c.listings = make(map[uint64][]string)
	}
	c.pass++
	c.listings[c.pass] = list
	delete(c.listings, c.pass-maxListingPasses)
	return c.pass
}

func (c *Client) loadListing(pass uint64) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.listings[pass]
	return list, ok
}

func (c *Client) dropListing(pass uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, pass)
}

func (c *Client) fetchListing(ctx context.Context) ([]string, error) {
	var rows []symbolDTO
	if err := c.get(ctx, "symbols", "/stock/symbol", map[string]string{"exchange": c.cfg.Exchange}, &rows); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if !isCommonStock(r.Type) || r.Symbol == "" || strings.Contains(r.Symbol, ".") {
			continue
		}
		out = append(out, r.Symbol)
	}
	return out, nil
}

func isCommonStock(t string) bool {
	return t == "Common Stock" || t == "COMMON_STOCK"
}

// GetProfile returns the company profile. Market capitalization is converted from millions.
func (c *Client) GetProfile(ctx context.Context, symbol string) (models.Fundamentals, error) {
	var p profileDTO
	if err := c.get(ctx, "profile", "/stock/profile2", map[string]string{"symbol": symbol}, &p); err != nil {
		return models.Fundamentals{}, err
	}
	if p.Ticker == "" && p.Name == "" {
		return models.Fundamentals{}, fmt.Errorf("finnhub profile %s: %w", symbol, domrepo.ErrNotFound)
	}
	f := models.Fundamentals{
		Symbol:      symbol,
		CompanyName: p.Name,
		Sector:      p.FinnhubIndustry,
		Beta:        p.Beta,
	}
	if p.MarketCapitalization != nil {
		f.MarketCap = models.Float(*p.MarketCapitalization * 1e6)
	}
	return f, nil
}

// GetQuote returns the latest quote. A zero current price means Finnhub has no quote.
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	var q quoteDTO
	if err := c.get(ctx, "quote", "/quote", map[string]string{"symbol": symbol}, &q); err != nil {
		return models.Quote{}, err
	}
	if q.C <= 0 {
		return models.Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, domrepo.ErrNotFound)
	}
	return models.Quote{Symbol: symbol, Current: q.C, Change: q.D, ChangePct: q.DP}, nil
}

// GetHistory returns daily candles covering the configured number of calendar days.
func (c *Client) GetHistory(ctx context.Context, symbol string) (models.PriceSeries, error) {
	from, to := util.HistoryWindow(c.now(), c.cfg.HistoryDays)

	var dto candleDTO
	err := c.get(ctx, "candle", "/stock/candle", map[string]string{
		"symbol":     symbol,
		"resolution": "D",
		"from":       strconv.FormatInt(from.Unix(), 10),
		"to":         strconv.FormatInt(to.Unix(), 10),
	}, &dto)
	if err != nil {
		return models.PriceSeries{}, err
	}
	if dto.S != "ok" {
		return models.PriceSeries{}, fmt.Errorf("finnhub candle %s: status %q: %w", symbol, dto.S, domrepo.ErrNotFound)
	}

	n := len(dto.T)
	if len(dto.C) != n || len(dto.H) != n || len(dto.L) != n || len(dto.O) != n {
		return models.PriceSeries{}, fmt.Errorf("finnhub candle %s: ragged arrays: %w", symbol, models.ErrInvalidSeries)
	}
	bars := make([]models.PriceBar, n)
	for i := 0; i < n; i++ {
		var vol uint64
		if i < len(dto.V) && dto.V[i] > 0 {
			vol = uint64(dto.V[i])
		}
		bars[i] = models.PriceBar{
			Date:   time.Unix(dto.T[i], 0).UTC(),
			Open:   dto.O[i],
			High:   dto.H[i],
			Low:    dto.L[i],
			Close:  dto.C[i],
			Volume: vol,
		}
	}
	series, err := models.NewPriceSeries(symbol, bars)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("finnhub candle %s: %w", symbol, err)
	}
	return series, nil
}

func (c *Client) get(ctx context.Context, op, path string, params map[string]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx, "finnhub"); err != nil {
		return fmt.Errorf("finnhub %s: %w", op, err)
	}

	q := map[string][]string{"token": {c.cfg.APIKey}}
	for k, v := range params {
		q[k] = []string{v}
	}

	// Client errors other than 429 say nothing about upstream health and
	// bypass the breaker's failure count.
	var clientErr error
	_, err := breaker.Do(c.breaker, func() (struct{}, error) {
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.cfg.BaseURL + path,
			QueryParams: q,
		}, dest)
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
			clientErr = err
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if err == nil {
		err = clientErr
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordProviderError("finnhub", op)
		}
		return fmt.Errorf("finnhub %s: %w", op, classify(err))
	}
	return nil
}

func classify(err error) error {
	var se *xhttp.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", domrepo.ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
