package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// BreakerGenerator wraps a Generator with circuit breaker protection.
// When the wrapped provider fails repeatedly, the circuit opens and
// subsequent calls fail fast without reaching the provider.
type BreakerGenerator struct {
	inner   Generator
	breaker *gobreaker.CircuitBreaker[string]
	logger  *zap.Logger
}

var _ Generator = (*BreakerGenerator)(nil)

// NewBreakerGenerator wraps inner with a circuit breaker.
// Zero-valued config fields fall back to defaults; a nil logger is
// replaced with a no-op.
func NewBreakerGenerator(inner Generator, cfg BreakerConfig, logger *zap.Logger) *BreakerGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm:" + inner.Name(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerGenerator{inner: inner, breaker: cb, logger: logger}
}

// Name identifies the wrapped provider.
func (b *BreakerGenerator) Name() string {
	return b.inner.Name()
}

// Generate routes the call through the circuit breaker.
func (b *BreakerGenerator) Generate(ctx context.Context, req Request) (string, error) {
	text, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Generate(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("provider %q circuit open: %w", b.inner.Name(), err)
		}
		return "", err
	}
	return text, nil
}
