package fake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryIsDeterministic(t *testing.T) {
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a, err := New(WithEndDate(end)).GetHistory(context.Background(), "NVDA")
	require.NoError(t, err)
	b, err := New(WithEndDate(end)).GetHistory(context.Background(), "NVDA")
	require.NoError(t, err)

	assert.Equal(t, a.Closes(), b.Closes())
	assert.Equal(t, 260, a.Len())
	assert.True(t, a.Bar(a.Len()-1).Date.Equal(end))
}

func TestSymbolsDiffer(t *testing.T) {
	p := New(WithBars(30))
	a, err := p.GetHistory(context.Background(), "AAA")
	require.NoError(t, err)
	b, err := p.GetHistory(context.Background(), "BBB")
	require.NoError(t, err)
	assert.NotEqual(t, a.Closes(), b.Closes())
}

func TestBarsAreWellFormed(t *testing.T) {
	s, err := New().GetHistory(context.Background(), "TSLA")
	require.NoError(t, err)
	for i := 0; i < s.Len(); i++ {
		b := s.Bar(i)
		assert.LessOrEqual(t, b.Low, b.Close)
		assert.LessOrEqual(t, b.Low, b.Open)
		assert.GreaterOrEqual(t, b.High, b.Close)
		assert.GreaterOrEqual(t, b.High, b.Open)
	}
}

func TestProfileAndQuote(t *testing.T) {
	p := New()
	prof, err := p.GetProfile(context.Background(), "AMD")
	require.NoError(t, err)
	require.NotNil(t, prof.MarketCap)
	require.NotNil(t, prof.Beta)
	assert.Equal(t, "AMD", prof.Symbol)

	q, err := p.GetQuote(context.Background(), "AMD")
	require.NoError(t, err)
	s, _ := p.GetHistory(context.Background(), "AMD")
	last, _ := s.LastClose()
	assert.Equal(t, last, q.Current)
	require.NotNil(t, q.ChangePct)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().GetHistory(ctx, "AAA")
	assert.Error(t, err)
}
