// Package cache decorates market data providers with a read-through cache.
package cache

import (
	"context"
	"errors"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	pkgcache "MomentumScreener/pkg/cache"
	xlogger "MomentumScreener/pkg/logger"
)

type Config struct {
	HistoryTTL time.Duration `yaml:"history_ttl" default:"6h"`
	ProfileTTL time.Duration `yaml:"profile_ttl" default:"24h"`
	QuoteTTL   time.Duration `yaml:"quote_ttl" default:"1m"`
}

// LookupRecorder counts cache hits and misses per data kind.
type LookupRecorder interface {
	RecordCacheLookup(kind string, hit bool)
}

// Option configures CachingProvider.
type Option func(*CachingProvider)

func WithLookupRecorder(r LookupRecorder) Option {
	return func(c *CachingProvider) { c.lookups = r }
}

// CachingProvider serves history, profiles and quotes from store and falls back
// to the wrapped providers on a miss. Cache failures never fail a lookup.
type CachingProvider struct {
	store    pkgcache.Service
	history  domrepo.PriceDataProvider
	profiles domrepo.FundamentalsProvider
	quotes   domrepo.QuoteProvider
	cfg      Config
	logger   *xlogger.Logger
	lookups  LookupRecorder
}

// NewCachingProvider wraps the given providers. quotes may be nil.
func NewCachingProvider(
	store pkgcache.Service,
	history domrepo.PriceDataProvider,
	profiles domrepo.FundamentalsProvider,
	quotes domrepo.QuoteProvider,
	cfg Config,
	logger *xlogger.Logger,
	opts ...Option,
) *CachingProvider {
	if logger == nil {
		logger = xlogger.Nop()
	}
	c := &CachingProvider{
		store:    store,
		history:  history,
		profiles: profiles,
		quotes:   quotes,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedSeries struct {
	Symbol string            `json:"symbol"`
	Bars   []models.PriceBar `json:"bars"`
}

func (c *CachingProvider) GetHistory(ctx context.Context, symbol string) (models.PriceSeries, error) {
	key := pkgcache.Key("history", symbol)
	var cached cachedSeries
	if c.lookup(ctx, "history", key, &cached) {
		if s, err := models.NewPriceSeries(cached.Symbol, cached.Bars); err == nil {
			return s, nil
		}
	}

	s, err := c.history.GetHistory(ctx, symbol)
	if err != nil {
		return models.PriceSeries{}, err
	}
	c.save(ctx, key, cachedSeries{Symbol: s.Symbol, Bars: s.Bars()}, c.cfg.HistoryTTL)
	return s, nil
}

func (c *CachingProvider) GetProfile(ctx context.Context, symbol string) (models.Fundamentals, error) {
	key := pkgcache.Key("profile", symbol)
	var cached models.Fundamentals
	if c.lookup(ctx, "profile", key, &cached) {
		return cached, nil
	}

	f, err := c.profiles.GetProfile(ctx, symbol)
	if err != nil {
		return models.Fundamentals{}, err
	}
	c.save(ctx, key, f, c.cfg.ProfileTTL)
	return f, nil
}

// QuoteProvider returns c as a quote provider, or nil when no quote source is wrapped.
func (c *CachingProvider) QuoteProvider() domrepo.QuoteProvider {
	if c.quotes == nil {
		return nil
	}
	return quoteView{c}
}

type quoteView struct{ c *CachingProvider }

func (q quoteView) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	c := q.c
	key := pkgcache.Key("quote", symbol)
	var cached models.Quote
	if c.lookup(ctx, "quote", key, &cached) {
		return cached, nil
	}

	v, err := c.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	c.save(ctx, key, v, c.cfg.QuoteTTL)
	return v, nil
}

func (c *CachingProvider) lookup(ctx context.Context, kind, key string, dest interface{}) bool {
	err := c.store.Get(ctx, key, dest)
	if c.lookups != nil {
		c.lookups.RecordCacheLookup(kind, err == nil)
	}
	if err == nil {
		return true
	}
	if !errors.Is(err, pkgcache.ErrCacheMiss) {
		c.logger.Warn("cache read failed", xlogger.String("key", key), xlogger.Error(err))
	}
	return false
}

func (c *CachingProvider) save(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if err := c.store.Set(ctx, key, v, ttl); err != nil {
		c.logger.Warn("cache write failed", xlogger.String("key", key), xlogger.Error(err))
	}
}
