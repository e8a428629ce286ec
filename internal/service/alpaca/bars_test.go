package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	domrepo "MomentumScreener/internal/domain/repository"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBars struct {
	bars []marketdata.Bar
	err  error
	req  marketdata.GetBarsRequest
}

func (s *stubBars) GetBars(_ string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	s.req = req
	return s.bars, s.err
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{APIKey: "k"}, nil)
	assert.Error(t, err)
}

func TestGetHistoryConvertsBars(t *testing.T) {
	day := time.Date(2025, 1, 2, 5, 0, 0, 0, time.UTC)
	stub := &stubBars{bars: []marketdata.Bar{
		{Timestamp: day.AddDate(0, 0, 1), Open: 11, High: 12, Low: 10, Close: 11.5, Volume: 200},
		{Timestamp: day, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
	}}
	p := newWithClient(stub, Config{}, nil)
	p.now = func() time.Time { return day.AddDate(0, 0, 10) }

	s, err := p.GetHistory(context.Background(), "AAA")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 10.5, s.Bar(0).Close)
	assert.Equal(t, uint64(200), s.Bar(1).Volume)

	assert.Equal(t, marketdata.OneDay, stub.req.TimeFrame)
	assert.Equal(t, marketdata.IEX, stub.req.Feed)
	assert.Equal(t, time.Date(2023, 12, 9, 0, 0, 0, 0, time.UTC), stub.req.Start)
	assert.Equal(t, day.AddDate(0, 0, 10), stub.req.End)
}

func TestGetHistoryEmptyIsNotFound(t *testing.T) {
	p := newWithClient(&stubBars{}, Config{}, nil)
	_, err := p.GetHistory(context.Background(), "AAA")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestGetHistoryWrapsClientError(t *testing.T) {
	boom := errors.New("forbidden")
	p := newWithClient(&stubBars{err: boom}, Config{}, nil)
	_, err := p.GetHistory(context.Background(), "AAA")
	assert.ErrorIs(t, err, boom)
}

type blockingBars struct{ release chan struct{} }

func (b blockingBars) GetBars(string, marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	<-b.release
	return nil, nil
}

func TestGetHistoryHonorsContextDeadline(t *testing.T) {
	stub := blockingBars{release: make(chan struct{})}
	defer close(stub.release)
	p := newWithClient(stub, Config{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := p.GetHistory(ctx, "AAA")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
