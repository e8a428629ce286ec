package di

import (
	"context"
	"fmt"
	"time"

	domrepo "MomentumScreener/internal/domain/repository"
	"MomentumScreener/internal/handler/api"
	"MomentumScreener/internal/repository"
	"MomentumScreener/internal/service/alpaca"
	servicecache "MomentumScreener/internal/service/cache"
	"MomentumScreener/internal/service/fake"
	"MomentumScreener/internal/service/finnhub"
	"MomentumScreener/internal/service/symbols"
	"MomentumScreener/internal/usecase"
	pkgcache "MomentumScreener/pkg/cache"
	pkgch "MomentumScreener/pkg/clickhouse"
	"MomentumScreener/pkg/config"
	xhttp "MomentumScreener/pkg/http"
	pkgkafka "MomentumScreener/pkg/kafka"
	xlogger "MomentumScreener/pkg/logger"
	"MomentumScreener/pkg/metrics"
	"MomentumScreener/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	l, err := xlogger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(xlogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(prometheus.DefaultRegisterer)
}

// Providers is the set of market data collaborators selected by config.
type Providers struct {
	History      domrepo.PriceDataProvider
	Fundamentals domrepo.FundamentalsProvider
	Quotes       domrepo.QuoteProvider
	Symbols      domrepo.SymbolSource
	// ConfigErr is set when a live provider is selected without credentials.
	// The service still starts and every screen request reports it.
	ConfigErr error
}

// ProvideProviders builds the history, fundamentals and quote providers and the symbol source.
func ProvideProviders(cfg *config.Config, rec *metrics.Recorder, logger *xlogger.Logger) (*Providers, error) {
	p := &Providers{}
	fk := fake.New()

	var fh *finnhub.Client
	if cfg.NeedsFinnhub() {
		c, err := finnhub.New(cfg.Finnhub,
			finnhub.WithMetrics(rec),
			finnhub.WithLogger(logger),
		)
		if err != nil {
			logger.Warn("finnhub provider not configured", xlogger.Error(err))
			p.ConfigErr = err
		} else {
			fh = c
		}
	}

	switch cfg.Providers.History {
	case config.ProviderAlpaca:
		a, err := alpaca.New(cfg.Alpaca, logger)
		if err != nil {
			return nil, fmt.Errorf("alpaca: %w", err)
		}
		p.History = a
	case config.ProviderFake:
		p.History = fk
	default:
		if fh != nil {
			p.History = fh
		}
	}

	switch cfg.Providers.Fundamentals {
	case config.ProviderFake:
		p.Fundamentals = fk
		p.Quotes = fk
	default:
		if fh != nil {
			p.Fundamentals = fh
			p.Quotes = fh
		}
	}

	switch {
	case len(cfg.Screening.Symbols) > 0:
		p.Symbols = symbols.NewStatic(cfg.Screening.Symbols, 0)
	case fh != nil:
		p.Symbols = symbols.NewPaged(fh)
	case p.ConfigErr == nil:
		p.Symbols = symbols.NewStatic(fake.DefaultSymbols, 0)
	}

	if p.ConfigErr != nil {
		u := unconfigured{err: p.ConfigErr}
		if p.History == nil {
			p.History = u
		}
		if p.Fundamentals == nil {
			p.Fundamentals = u
		}
	}

	logger.Info("market data providers ready",
		xlogger.String("history", cfg.Providers.History),
		xlogger.String("fundamentals", cfg.Providers.Fundamentals),
		xlogger.Bool("configured", p.ConfigErr == nil),
	)
	return p, nil
}

// ProvideRedisCache connects to Redis when enabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Cache.Enabled || !cfg.Cache.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(cfg.Cache.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCacheStore picks the layered cache when Redis is available and the
// in-process cache otherwise. It returns nil when caching is disabled.
func ProvideCacheStore(cfg *config.Config, rc *pkgcache.RedisCache) pkgcache.Service {
	if !cfg.Cache.Enabled {
		return nil
	}
	if rc != nil {
		return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemory(cfg.Cache.MemorySize, cfg.Cache.MemoryTTL))
	}
	return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemorySize))
}

// ProvidePipeline wraps the providers with the cache and builds the per-symbol pipeline.
func ProvidePipeline(
	cfg *config.Config,
	p *Providers,
	store pkgcache.Service,
	rec *metrics.Recorder,
	logger *xlogger.Logger,
) *usecase.ScreeningPipeline {
	history, profiles, quotes := p.History, p.Fundamentals, p.Quotes
	if store != nil && p.ConfigErr == nil {
		cp := servicecache.NewCachingProvider(store, history, profiles, quotes, cfg.Cache.TTL, logger,
			servicecache.WithLookupRecorder(rec))
		history, profiles, quotes = cp, cp, cp.QuoteProvider()
	}

	opts := []usecase.PipelineOption{
		usecase.WithMinHistory(cfg.Screening.MinHistoryBars),
		usecase.WithSymbolTimeout(cfg.Screening.SymbolTimeout),
		usecase.WithPipelineMetrics(rec),
		usecase.WithPipelineLogger(logger),
	}
	if quotes != nil {
		opts = append(opts, usecase.WithQuotes(quotes))
	}
	return usecase.NewScreeningPipeline(history, profiles, opts...)
}

// ProvideClickHouseClient connects to ClickHouse when run history is enabled
// and applies pending migrations when auto_migrate is set.
func ProvideClickHouseClient(cfg *config.Config, logger *xlogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if cfg.ClickHouse.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		applied, err := client.Migrate(ctx, repository.RunStoreMigrations)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("clickhouse migrations applied", xlogger.Strings("names", applied))
		}
	}
	return client, nil
}

// ProvideRunStore returns the ClickHouse run store, or nil when ClickHouse is disabled.
func ProvideRunStore(client *pkgch.Client, logger *xlogger.Logger) domrepo.RunStore {
	if client == nil {
		return nil
	}
	return repository.NewClickHouseRunStore(client.DB(), logger)
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithWriter(cfg.Kafka.Producer.WriterConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideRunSinks collects every enabled destination for completed runs.
func ProvideRunSinks(cfg *config.Config, store domrepo.RunStore, producer *pkgkafka.Producer) []domrepo.RunSink {
	var sinks []domrepo.RunSink
	if store != nil {
		sinks = append(sinks, store)
	}
	if producer != nil {
		sinks = append(sinks, repository.NewKafkaOutcomePublisher(producer, cfg.Kafka.Producer.Topic, cfg.Kafka.Producer.OnlyAccepted))
	}
	return sinks
}

// ProvideScreeningService creates the screening use case.
func ProvideScreeningService(
	cfg *config.Config,
	p *Providers,
	pipeline *usecase.ScreeningPipeline,
	sinks []domrepo.RunSink,
	rec *metrics.Recorder,
	logger *xlogger.Logger,
) *usecase.ScreeningService {
	return usecase.NewScreeningService(
		p.Symbols,
		pipeline,
		sinks,
		rec,
		logger,
		cfg.Screening.Thresholds,
		cfg.Screening.MaxSymbols,
		cfg.Screening.RunTimeout,
	)
}

// ProvideScheduler returns nil when no schedule is configured.
func ProvideScheduler(cfg *config.Config, svc *usecase.ScreeningService, logger *xlogger.Logger) (*usecase.Scheduler, error) {
	if cfg.Screening.Schedule == "" {
		return nil, nil
	}
	s, err := usecase.NewScheduler(svc, cfg.Screening.Schedule, logger)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return s, nil
}

// ProvideKafkaConsumer creates a Kafka consumer for run requests when enabled.
func ProvideKafkaConsumer(cfg *config.Config, logger *xlogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideScreenRequestHandler handles run requests from the consumer topic.
func ProvideScreenRequestHandler(cfg *config.Config, svc *usecase.ScreeningService, logger *xlogger.Logger) *usecase.ScreenRequestHandler {
	if !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return usecase.NewScreenRequestHandler(cfg.Kafka.Consumer.Topic, svc, logger)
}

// ProvideHTTPServer registers the API and health routes.
func ProvideHTTPServer(
	cfg *config.Config,
	logger *xlogger.Logger,
	svc *usecase.ScreeningService,
	p *Providers,
	runs domrepo.RunStore,
	rc *pkgcache.RedisCache,
) *xhttp.Server {
	checks := map[string]api.HealthChecker{}
	if runs != nil {
		checks["clickhouse"] = runs
	}
	if rc != nil {
		checks["redis"] = rc
	}

	routes := api.Routes{
		api.NewScreenHandler(logger, svc, runs, p.ConfigErr),
		api.NewHealthHandler(checks),
	}
	return xhttp.NewServer(routes,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.SlowThreshold),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithLogger(logger),
	)
}

// ProvideClosers lists the clients the app closes on shutdown.
func ProvideClosers(
	store pkgcache.Service,
	rc *pkgcache.RedisCache,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) server.Closers {
	var cs server.Closers
	switch s := store.(type) {
	case *pkgcache.LayeredCache:
		// Closes the Redis client too.
		cs = append(cs, server.Closer{Name: "cache", Close: s.Close})
		rc = nil
	case *pkgcache.MemoryCache:
		cs = append(cs, server.Closer{Name: "cache", Close: s.Close})
	}
	if rc != nil {
		cs = append(cs, server.Closer{Name: "redis", Close: rc.Close})
	}
	if ch != nil {
		cs = append(cs, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if producer != nil {
		cs = append(cs, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	return cs
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *xlogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	requests *usecase.ScreenRequestHandler,
	closers server.Closers,
) *server.App {
	return server.New(cfg, logger, httpServer, scheduler, consumer, requests, closers)
}

