package metrics

import (
	"testing"

	"MomentumScreener/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordOutcome(models.CategoryRejected, models.ReasonLiquidity)
	r.RecordOutcome(models.CategoryRejected, models.ReasonLiquidity)
	r.RecordOutcome(models.CategoryTopTier, "")
	r.RecordProviderError("finnhub", "candle")
	r.RecordRun(10, 2, 3, 1.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.outcomes.WithLabelValues("rejected", models.ReasonLiquidity)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("top_tier", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.providerErrors.WithLabelValues("finnhub", "candle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.lastRun.WithLabelValues("emerging")))
}

func TestRecordCacheLookup(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordCacheLookup("history", true)
	r.RecordCacheLookup("history", false)
	r.RecordCacheLookup("history", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("history", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("history", "miss")))
}
