package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"search-online-mcp/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 3
	defaultCBTimeout     time.Duration = 5 * time.Minute
)

// BreakerConfig configures the per-strategy circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout time.Duration
	// Interval clears failure counts periodically while closed. 0 never clears.
	Interval time.Duration
}

// BreakerStrategy wraps a Strategy so that a strategy that keeps failing is
// skipped as a soft failure until its breaker timeout elapses. It must not
// wrap the last strategy of a chain.
type BreakerStrategy struct {
	inner   Strategy
	breaker *gobreaker.CircuitBreaker[*domain.SearchResponse]
	logger  *slog.Logger
}

// NewBreakerStrategy wraps inner with a circuit breaker. Zero-valued config
// fields fall back to defaults.
func NewBreakerStrategy(inner Strategy, cfg BreakerConfig, logger *slog.Logger) *BreakerStrategy {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	cb := gobreaker.NewCircuitBreaker[*domain.SearchResponse](gobreaker.Settings{
		Name:        "strategy:" + inner.Name(),
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// The caller going away says nothing about the strategy.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerStrategy{inner: inner, breaker: cb, logger: logger}
}

func (b *BreakerStrategy) Name() string { return b.inner.Name() }

func (b *BreakerStrategy) Attempt(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	resp, err := b.breaker.Execute(func() (*domain.SearchResponse, error) {
		return b.inner.Attempt(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, softFailure(b.inner.Name(), 0,
				fmt.Errorf("strategy %q circuit open: %w", b.inner.Name(), domain.ErrCircuitOpen))
		}
		return nil, err
	}
	return resp, nil
}

// State returns the current breaker state.
func (b *BreakerStrategy) State() gobreaker.State {
	return b.breaker.State()
}

// WithBreakers wraps every strategy except the last one.
func WithBreakers(chain []Strategy, cfg BreakerConfig, logger *slog.Logger) []Strategy {
	out := make([]Strategy, len(chain))
	for i, s := range chain {
		if i < len(chain)-1 {
			out[i] = NewBreakerStrategy(s, cfg, logger)
		} else {
			out[i] = s
		}
	}
	return out
}
