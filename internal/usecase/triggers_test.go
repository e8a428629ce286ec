package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MomentumScreener/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScreener struct {
	mu    sync.Mutex
	calls []ScreenParams
	err   error
	block chan struct{}
}

func (s *stubScreener) Screen(ctx context.Context, p ScreenParams) (*models.ScreenResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, p)
	s.mu.Unlock()
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.ScreenResult{RunID: "r1"}, nil
}

func (s *stubScreener) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestScreenRequestHandlerPassesTrigger(t *testing.T) {
	st := &stubScreener{}
	h := NewScreenRequestHandler("screen.requests", st, nil)
	assert.Equal(t, "screen.requests", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbols":["AAPL","NVDA"],"max_symbols":5}`)))
	require.Equal(t, 1, st.count())
	assert.Equal(t, []string{"AAPL", "NVDA"}, st.calls[0].Symbols)
	assert.Equal(t, 5, st.calls[0].MaxSymbols)
}

func TestScreenRequestHandlerEmptyPayloadUsesSource(t *testing.T) {
	st := &stubScreener{}
	h := NewScreenRequestHandler("t", st, nil)
	require.NoError(t, h.Handle(context.Background(), nil))
	require.Equal(t, 1, st.count())
	assert.Empty(t, st.calls[0].Symbols)
}

func TestScreenRequestHandlerDropsMalformed(t *testing.T) {
	st := &stubScreener{}
	h := NewScreenRequestHandler("t", st, nil)
	assert.NoError(t, h.Handle(context.Background(), []byte(`{not json`)))
	assert.Zero(t, st.count())
}

func TestScreenRequestHandlerReturnsScreenError(t *testing.T) {
	boom := errors.New("source down")
	h := NewScreenRequestHandler("t", &stubScreener{err: boom}, nil)
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{}`)), boom)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(&stubScreener{}, "not a cron", nil)
	assert.Error(t, err)
}

func TestSchedulerRunNowAndSkipOverlap(t *testing.T) {
	st := &stubScreener{block: make(chan struct{})}
	s, err := NewScheduler(st, "@every 1h", nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() { s.RunNow(); close(done) }()
	require.Eventually(t, func() bool { return st.count() == 1 }, time.Second, 5*time.Millisecond)

	// A second tick while the first is in flight is skipped.
	s.RunNow()
	assert.Equal(t, 1, st.count())

	close(st.block)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
