package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: test\nproviders:\n  history: fake\n  fundamentals: fake\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 150, c.Screening.MaxSymbols)
	assert.Equal(t, 126, c.Screening.MinHistoryBars)
	assert.Equal(t, 20*time.Second, c.Screening.SymbolTimeout)
	assert.Equal(t, 30.0, c.Screening.Thresholds.Perf1MFloor)
	assert.Equal(t, 300_000_000.0, c.Screening.Thresholds.MinMarketCap)
	assert.Equal(t, "https://finnhub.io/api/v1", c.Finnhub.BaseURL)
	assert.Equal(t, 400, c.Finnhub.HistoryDays)
	assert.Equal(t, uint32(5), c.Finnhub.Breaker.FailureThreshold)
	assert.Equal(t, 6*time.Hour, c.Cache.TTL.HistoryTTL)
	assert.Equal(t, "info", c.Logging.Level)
	assert.False(t, c.NeedsFinnhub())
}

func TestLoadKeepsExplicitThresholds(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: test
screening:
  thresholds:
    perf_6m_floor: 150
`))
	require.NoError(t, err)
	assert.Equal(t, 150.0, c.Screening.Thresholds.Perf6MFloor)
	assert.Equal(t, 60.0, c.Screening.Thresholds.Perf3MFloor)
}

func TestLoadKeepsZeroThresholds(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: test
screening:
  thresholds:
    perf_1m_floor: 0
    min_beta: 0
`))
	require.NoError(t, err)
	assert.Zero(t, c.Screening.Thresholds.Perf1MFloor)
	assert.Zero(t, c.Screening.Thresholds.MinBeta)
	assert.Equal(t, 60.0, c.Screening.Thresholds.Perf3MFloor)
	assert.Equal(t, 70.0, c.Screening.Thresholds.RSIOverboughtCeiling)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown provider", "providers:\n  history: yahoo\n"},
		{"alpaca without keys", "providers:\n  history: alpaca\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n"},
		{"min history bars below floor", "screening:\n  min_history_bars: 50\n"},
		{"finnhub history too short", "finnhub:\n  history_days: 120\n"},
		{"rsi ceiling above 100", "screening:\n  thresholds:\n    rsi_overbought_ceiling: 120\n"},
		{"bad schedule", "screening:\n  schedule: every day\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FINNHUB_API_KEY", "from-env")
	t.Setenv("SYMBOLS", "AAPL, msft ,,NVDA")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("PORT", "9090")

	c, err := LoadWithEnv(writeConfig(t, "environment: test\nkafka:\n  enabled: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Finnhub.APIKey)
	assert.Equal(t, []string{"AAPL", "msft", "NVDA"}, c.Screening.Symbols)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.Equal(t, 9090, c.Server.Port)
}

func TestLoadWithEnvReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ALPACA_API_KEY=k\nALPACA_SECRET_KEY=s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("ALPACA_API_KEY")
		os.Unsetenv("ALPACA_SECRET_KEY")
	})

	c, err := LoadWithEnv(writeConfig(t, "providers:\n  history: alpaca\n"))
	require.NoError(t, err)
	assert.Equal(t, "k", c.Alpaca.APIKey)
	assert.Equal(t, "s", c.Alpaca.APISecret)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "eighty")
	_, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	assert.Error(t, err)
}

func TestCheckHistoryDepth(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, c.checkHistoryDepth(now))

	c.Providers.History = ProviderAlpaca
	c.Alpaca.HistoryDays = 150
	assert.ErrorContains(t, c.checkHistoryDepth(now), "alpaca.history_days")

	c.Providers.History = ProviderFake
	assert.NoError(t, c.checkHistoryDepth(now))
}
