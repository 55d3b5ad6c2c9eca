package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BreakerConfig controls when an upstream is considered unhealthy.
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Interval         time.Duration
}

// Breaker fails fast while an upstream keeps failing. It never retries: each
// Do call runs fn at most once.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger, onState func(name string, state float64)) *Breaker {
	b := &Breaker{name: name}
	if !cfg.Enabled {
		return b
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !CountsAgainstUpstream(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("upstream", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if onState != nil {
				onState(name, stateValue(to))
			}
		},
	})
	return b
}

func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if b == nil || b.cb == nil {
		return fn(ctx)
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	return err
}

func (b *Breaker) Name() string {
	return b.name
}

// State reports the breaker state; a disabled breaker is always closed.
func (b *Breaker) State() string {
	if b == nil || b.cb == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// isCanceled also recognizes cancellation surfaced by the gRPC speech clients,
// which report it as a status code rather than wrapping context.Canceled.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled
}
