// Package breaker guards provider calls with a circuit breaker.
package breaker

import (
	"context"
	"errors"
	"time"

	xlogger "MomentumScreener/pkg/logger"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned without calling the provider while the circuit is open.
var ErrOpen = gobreaker.ErrOpenState

type Config struct {
	FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
	OpenTimeout      time.Duration `yaml:"open_timeout" default:"30s"`
	HalfOpenRequests uint32        `yaml:"half_open_requests" default:"1"`
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(name string, cfg Config, logger *xlogger.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Cancellation and caller deadlines say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit state changed",
				xlogger.String("breaker", name),
				xlogger.String("from", from.String()),
				xlogger.String("to", to.String()),
			)
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Do runs fn through the breaker.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}
	v, err := b.cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (b *Breaker) State() string { return b.cb.State().String() }
