package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domrepo "MomentumScreener/internal/domain/repository"
	"MomentumScreener/internal/service/breaker"
	"MomentumScreener/internal/service/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		APIKey:   "secret",
		BaseURL:  srv.URL,
		PageSize: 2,
		Breaker:  breaker.Config{FailureThreshold: 2, OpenTimeout: time.Minute},
	}, WithClock(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetProfileScalesMarketCap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/profile2", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"ticker":"NVDA","name":"NVIDIA Corp","finnhubIndustry":"Semiconductors","marketCapitalization":1500.5,"beta":1.7}`)
	})

	f, err := c.GetProfile(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA Corp", f.CompanyName)
	assert.Equal(t, "Semiconductors", f.Sector)
	require.NotNil(t, f.MarketCap)
	assert.InDelta(t, 1_500_500_000, *f.MarketCap, 1e-3)
	require.NotNil(t, f.Beta)
	assert.Equal(t, 1.7, *f.Beta)
}

func TestGetProfileMissingFieldsStayAbsent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ticker":"XYZ","name":"XYZ Corp"}`)
	})
	f, err := c.GetProfile(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Nil(t, f.MarketCap)
	assert.Nil(t, f.Beta)
}

func TestGetProfileEmptyIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	_, err := c.GetProfile(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestGetQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		fmt.Fprint(w, `{"c":121.5,"d":1.5,"dp":1.25,"h":122,"l":119,"o":120,"pc":120}`)
	})
	q, err := c.GetQuote(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, 121.5, q.Current)
	require.NotNil(t, q.ChangePct)
	assert.Equal(t, 1.25, *q.ChangePct)
}

func TestGetHistoryParsesCandles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "D", q.Get("resolution"))
		to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, fmt.Sprint(to.Unix()), q.Get("to"))
		assert.Equal(t, fmt.Sprint(to.AddDate(0, 0, -400).Unix()), q.Get("from"))
		// Deliberately out of order.
		fmt.Fprint(w, `{"s":"ok","t":[1700172800,1700086400],"o":[11,10],"h":[12,11],"l":[10,9],"c":[11.5,10.5],"v":[2000,1000]}`)
	})

	s, err := c.GetHistory(context.Background(), "AAA")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 10.5, s.Bar(0).Close)
	assert.Equal(t, uint64(2000), s.Bar(1).Volume)
	last, ok := s.LastClose()
	require.True(t, ok)
	assert.Equal(t, 11.5, last)
}

func TestGetHistoryNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"no_data"}`)
	})
	_, err := c.GetHistory(context.Background(), "AAA")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestGetHistoryRaggedArrays(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"ok","t":[1700086400,1700172800],"o":[10],"h":[11,12],"l":[9,10],"c":[10.5,11.5]}`)
	})
	_, err := c.GetHistory(context.Background(), "AAA")
	assert.Error(t, err)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, domrepo.ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			})
			_, err := c.GetQuote(context.Background(), "AAA")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("symbol") == "MISSING" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetQuote(ctx, "MISSING")
		require.ErrorIs(t, err, domrepo.ErrNotFound)
	}
	assert.Equal(t, "closed", c.breaker.State())

	_, _ = c.GetQuote(ctx, "AAA")
	_, _ = c.GetQuote(ctx, "AAA")
	before := hits.Load()
	_, err := c.GetQuote(ctx, "AAA")
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, before, hits.Load(), "open breaker must not reach the upstream")
}

func TestListingFiltersAndPages(t *testing.T) {
	var listings atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/symbol", r.URL.Path)
		assert.Equal(t, "US", r.URL.Query().Get("exchange"))
		listings.Add(1)
		fmt.Fprint(w, `[
			{"symbol":"AAPL","type":"Common Stock"},
			{"symbol":"BRK.B","type":"Common Stock"},
			{"symbol":"SPY","type":"ETP"},
			{"symbol":"MSFT","type":"COMMON_STOCK"},
			{"symbol":"NVDA","type":"Common Stock"}
		]`)
	})

	got, err := symbols.Take(context.Background(), symbols.NewPaged(c), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
	assert.Equal(t, int32(1), listings.Load())
}

func TestListingPassesDoNotShareSnapshots(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, `[{"symbol":"A1","type":"Common Stock"},{"symbol":"A2","type":"Common Stock"},{"symbol":"A3","type":"Common Stock"}]`)
			return
		}
		fmt.Fprint(w, `[{"symbol":"B1","type":"Common Stock"}]`)
	})
	ctx := context.Background()

	first, err := c.FetchPage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, first.Symbols)
	require.NotEmpty(t, first.Next)

	other, err := c.FetchPage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, other.Symbols)
	assert.Empty(t, other.Next)

	rest, err := c.FetchPage(ctx, first.Next)
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, rest.Symbols)
	assert.Empty(t, rest.Next)

	// A finished pass releases its listing.
	_, err = c.FetchPage(ctx, first.Next)
	assert.Error(t, err)
}

func TestFetchPageRejectsBadCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `[]`) })
	for _, cursor := range []string{"7", "x:2", "1:-3"} {
		_, err := c.FetchPage(context.Background(), cursor)
		assert.Error(t, err, cursor)
	}
}
