package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MomentumScreener/internal/service/alpaca"
	servicecache "MomentumScreener/internal/service/cache"
	"MomentumScreener/internal/service/finnhub"
	"MomentumScreener/internal/services/rules"
	pkgcache "MomentumScreener/pkg/cache"
	pkgch "MomentumScreener/pkg/clickhouse"
	pkgkafka "MomentumScreener/pkg/kafka"
	xlogger "MomentumScreener/pkg/logger"
	"MomentumScreener/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	ProviderFinnhub = "finnhub"
	ProviderAlpaca  = "alpaca"
	ProviderFake    = "fake"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"metrics"`
	Logging   xlogger.Config `yaml:"logging"`
	Screening struct {
		Thresholds     rules.Thresholds `yaml:"thresholds"`
		MaxSymbols     int              `yaml:"max_symbols" default:"150" validate:"min=1"`
		MinHistoryBars int              `yaml:"min_history_bars" default:"126" validate:"min=126"`
		SymbolTimeout  time.Duration    `yaml:"symbol_timeout" default:"20s"`
		RunTimeout     time.Duration    `yaml:"run_timeout" default:"5m"`
		// Schedule is a cron expression. Empty disables scheduled runs.
		Schedule string   `yaml:"schedule"`
		Symbols  []string `yaml:"symbols"`
	} `yaml:"screening"`
	Providers struct {
		History      string `yaml:"history" default:"finnhub" validate:"oneof=finnhub alpaca fake"`
		Fundamentals string `yaml:"fundamentals" default:"finnhub" validate:"oneof=finnhub fake"`
	} `yaml:"providers"`
	Finnhub finnhub.Config `yaml:"finnhub"`
	Alpaca  alpaca.Config  `yaml:"alpaca"`
	Cache   struct {
		Enabled    bool                `yaml:"enabled"`
		MemorySize int                 `yaml:"memory_size" default:"2000"`
		MemoryTTL  time.Duration       `yaml:"memory_ttl" default:"5m"`
		TTL        servicecache.Config `yaml:"ttl"`
		Redis      pkgcache.RedisConfig `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse pkgch.Config `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			Topic                 string `yaml:"topic" default:"screen.outcomes"`
			OnlyAccepted          bool   `yaml:"only_accepted"`
			pkgkafka.WriterConfig `yaml:",inline"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			Topic      string        `yaml:"topic" default:"screen.requests"`
			GroupID    string        `yaml:"group_id" default:"screener"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"10"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	c := newConfig()
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := newConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env when present, then config from YAML, and overrides
// it with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := newConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// newConfig seeds the values that struct tags cannot default because zero is
// a legal setting. YAML then overwrites only the keys it names.
func newConfig() Config {
	var c Config
	c.Screening.Thresholds = rules.DefaultThresholds()
	return c
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.Alpaca.APISecret = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Screening.Symbols = splitList(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Providers.History == ProviderAlpaca && (c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "") {
		return fmt.Errorf("alpaca.api_key and alpaca.api_secret are required for the alpaca history provider")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.consumer requires kafka.enabled")
	}
	if c.Screening.Schedule != "" {
		if _, err := cron.ParseStandard(c.Screening.Schedule); err != nil {
			return fmt.Errorf("screening.schedule: %w", err)
		}
	}
	if err := c.checkHistoryDepth(time.Now()); err != nil {
		return err
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// checkHistoryDepth rejects a history window that cannot hold min_history_bars
// daily candles.
func (c *Config) checkHistoryDepth(now time.Time) error {
	days := c.Finnhub.HistoryDays
	name := "finnhub.history_days"
	if c.Providers.History == ProviderAlpaca {
		days, name = c.Alpaca.HistoryDays, "alpaca.history_days"
	} else if c.Providers.History != ProviderFinnhub {
		return nil
	}
	from, to := util.HistoryWindow(now, days)
	if got := util.TradingDays(from, to); got < c.Screening.MinHistoryBars {
		return fmt.Errorf("%s=%d covers %d trading days, need at least %d", name, days, got, c.Screening.MinHistoryBars)
	}
	return nil
}

// NeedsFinnhub reports whether any configured provider is the live Finnhub API.
func (c *Config) NeedsFinnhub() bool {
	return c.Providers.History == ProviderFinnhub || c.Providers.Fundamentals == ProviderFinnhub
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
