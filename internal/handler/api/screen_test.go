package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	"MomentumScreener/internal/presenter"
	"MomentumScreener/internal/usecase"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScreener struct {
	mu     sync.Mutex
	params []usecase.ScreenParams
	result *models.ScreenResult
	err    error
}

func (f *fakeScreener) Screen(_ context.Context, p usecase.ScreenParams) (*models.ScreenResult, error) {
	f.mu.Lock()
	f.params = append(f.params, p)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if p.OnOutcome != nil {
		for _, o := range f.result.TopTier {
			p.OnOutcome(o)
		}
		for _, o := range f.result.Emerging {
			p.OnOutcome(o)
		}
	}
	return f.result, nil
}

type fakeRuns struct {
	outcomes []models.ScreenOutcome
	err      error
}

func (r *fakeRuns) Record(context.Context, *models.ScreenRun) error { return nil }
func (r *fakeRuns) Outcomes(context.Context, string, int) ([]models.ScreenOutcome, error) {
	return r.outcomes, r.err
}
func (r *fakeRuns) Health(context.Context) error { return r.err }

func sampleResult() *models.ScreenResult {
	return &models.ScreenResult{
		RunID:     "run-1",
		Evaluated: 3,
		TopTier: []models.ScreenOutcome{{
			Symbol:       "NVDA",
			Price:        models.Float(121.456),
			Fundamentals: models.Fundamentals{CompanyName: "NVIDIA Corp", MarketCap: models.Float(2_950_123_456_789), Beta: models.Float(1.7234), Sector: "Semiconductors"},
			Quote:        &models.Quote{Current: 121.456, Change: models.Float(1.234), ChangePct: models.Float(1.0256)},
			Indicators:   &models.IndicatorSet{Perf1M: models.Float(35.555), Perf3M: models.Float(70), Perf6M: models.Float(140.1), RSI14: models.Float(61.239)},
			Category:     models.CategoryTopTier,
		}},
		Emerging: []models.ScreenOutcome{{
			Symbol:       "SMCI",
			Price:        models.Float(40),
			Fundamentals: models.Fundamentals{CompanyName: "Super Micro", MarketCap: models.Float(5e8)},
			Indicators:   &models.IndicatorSet{Perf1M: models.Float(31), Perf3M: models.Float(61), Perf6M: models.Float(80)},
			Category:     models.CategoryEmerging,
		}},
	}
}

func newTestEcho(h *ScreenHandler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestScreenReturnsBareDocument(t *testing.T) {
	sc := &fakeScreener{result: sampleResult()}
	e := newTestEcho(NewScreenHandler(nil, sc, nil, nil))

	rec := do(e, "/api/screen-stocks")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc["top_tier_stocks"], 1)
	require.Len(t, doc["emerging_momentum_stocks"], 1)

	nvda := doc["top_tier_stocks"][0]
	assert.Equal(t, "NVDA", nvda["symbol"])
	assert.Equal(t, "NVIDIA Corp", nvda["company_name"])
	assert.Equal(t, 121.46, nvda["price"])
	assert.Equal(t, 1.23, nvda["price_change_abs"])
	assert.Equal(t, 1.03, nvda["price_change_pct"])
	assert.Equal(t, 35.56, nvda["perf_1m_pct"])
	assert.Equal(t, 61.24, nvda["rsi"])
	assert.Equal(t, 1.72, nvda["beta"])
	assert.Equal(t, 2950.123, nvda["market_cap_billions"])
	assert.Equal(t, "Semiconductors", nvda["sector"])
	assert.Equal(t, "top_tier", nvda["category"])
	assert.NotContains(t, nvda, "reason")

	smci := doc["emerging_momentum_stocks"][0]
	assert.Nil(t, smci["price_change_abs"])
	assert.Nil(t, smci["beta"])
	assert.Equal(t, 0.5, smci["market_cap_billions"])
}

func TestScreenPassesOverridesAndSymbols(t *testing.T) {
	sc := &fakeScreener{result: sampleResult()}
	e := newTestEcho(NewScreenHandler(nil, sc, nil, nil))

	rec := do(e, "/api/screen-stocks?symbols=nvda,%20smci,&perf_6m_floor=150&min_beta=1.5&max_symbols=20")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sc.params, 1)
	p := sc.params[0]
	assert.Equal(t, []string{"NVDA", "SMCI"}, p.Symbols)
	assert.Equal(t, 20, p.MaxSymbols)
	require.NotNil(t, p.Overrides.Perf6MFloor)
	assert.Equal(t, 150.0, *p.Overrides.Perf6MFloor)
	assert.Equal(t, 1.5, *p.Overrides.MinBeta)
	assert.Nil(t, p.Overrides.Perf1MFloor)
}

func TestScreenPassesZeroOverrides(t *testing.T) {
	sc := &fakeScreener{result: sampleResult()}
	e := newTestEcho(NewScreenHandler(nil, sc, nil, nil))

	rec := do(e, "/api/screen-stocks?perf_1m_floor=0&min_beta=0")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sc.params, 1)
	p := sc.params[0]
	require.NotNil(t, p.Overrides.Perf1MFloor)
	assert.Zero(t, *p.Overrides.Perf1MFloor)
	require.NotNil(t, p.Overrides.MinBeta)
	assert.Zero(t, *p.Overrides.MinBeta)
	assert.Nil(t, p.Overrides.Perf3MFloor)
}

func TestScreenRejectsInvalidOverrides(t *testing.T) {
	sc := &fakeScreener{result: sampleResult()}
	e := newTestEcho(NewScreenHandler(nil, sc, nil, nil))

	rec := do(e, "/api/screen-stocks?rsi_overbought_ceiling=150")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_LTE")
	assert.Empty(t, sc.params)

	rec = do(e, "/api/screen-stocks?min_price=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScreenNotConfigured(t *testing.T) {
	sc := &fakeScreener{result: sampleResult()}
	e := newTestEcho(NewScreenHandler(nil, sc, nil, errors.New("finnhub api key is empty")))

	rec := do(e, "/api/screen-stocks")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_CONFIGURED")
	assert.Empty(t, sc.params)
}

func TestScreenUsecaseErrorIs500(t *testing.T) {
	e := newTestEcho(NewScreenHandler(nil, &fakeScreener{err: errors.New("list symbols: boom")}, nil, nil))
	rec := do(e, "/api/screen-stocks")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

const runID = "8f7c2a10-1111-4c3b-9d55-000000000001"

func TestRunLookup(t *testing.T) {
	runs := &fakeRuns{outcomes: sampleResult().TopTier}
	e := newTestEcho(NewScreenHandler(nil, &fakeScreener{}, runs, nil))

	rec := do(e, "/api/runs/"+runID)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Rows  []presenter.StockView `json:"rows"`
			Total int64       `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Data.Total)
	assert.Equal(t, "NVDA", body.Data.Rows[0].Symbol)
}

func TestRunLookupErrors(t *testing.T) {
	tests := []struct {
		name string
		runs domrepo.RunStore
		path string
		want int
	}{
		{"disabled", nil, "/api/runs/" + runID, http.StatusServiceUnavailable},
		{"not a uuid", &fakeRuns{}, "/api/runs/latest", http.StatusBadRequest},
		{"unknown run", &fakeRuns{err: domrepo.ErrNotFound}, "/api/runs/" + runID, http.StatusNotFound},
		{"store failure", &fakeRuns{err: errors.New("clickhouse down")}, "/api/runs/" + runID, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(NewScreenHandler(nil, &fakeScreener{}, tt.runs, nil))
			assert.Equal(t, tt.want, do(e, tt.path).Code)
		})
	}
}

func TestStreamPushesOutcomesThenResult(t *testing.T) {
	sc := &fakeScreener{result: sampleResult()}
	srv := httptest.NewServer(newTestEcho(NewScreenHandler(nil, sc, nil, nil)))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/screen-stocks/stream?symbols=NVDA,SMCI"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var got []streamMessage
	for {
		var m streamMessage
		if err := conn.ReadJSON(&m); err != nil {
			break
		}
		got = append(got, m)
		if m.Type == "done" {
			break
		}
	}

	require.Len(t, got, 3)
	assert.Equal(t, "outcome", got[0].Type)
	assert.Equal(t, "NVDA", got[0].Outcome.Symbol)
	assert.Equal(t, "SMCI", got[1].Outcome.Symbol)
	assert.Equal(t, "done", got[2].Type)
	assert.Equal(t, "run-1", got[2].RunID)
	require.NotNil(t, got[2].Result)
	assert.Len(t, got[2].Result.TopTier, 1)
	assert.Equal(t, []string{"NVDA", "SMCI"}, sc.params[0].Symbols)
}

func TestStreamReportsUsecaseError(t *testing.T) {
	srv := httptest.NewServer(newTestEcho(NewScreenHandler(nil, &fakeScreener{err: errors.New("no symbols")}, nil, nil)))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/screen-stocks/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var m streamMessage
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, "error", m.Type)
	assert.Equal(t, "no symbols", m.Error)
}

type stubCheck struct{ err error }

func (s stubCheck) Health(context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	Routes{NewHealthHandler(map[string]HealthChecker{"redis": stubCheck{}, "clickhouse": nil})}.RegisterRoutes(e)
	rec := do(e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
	assert.NotContains(t, rec.Body.String(), "clickhouse")

	e = echo.New()
	NewHealthHandler(map[string]HealthChecker{"redis": stubCheck{err: errors.New("dial tcp: refused")}}).RegisterRoutes(e)
	rec = do(e, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
