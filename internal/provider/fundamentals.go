package provider

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"CycleScan/internal/model"
)

// BreakerFundamentals wraps a FundamentalsProvider with a circuit breaker.
// Fundamentals only corroborate a signal, so when the source degrades the
// scan keeps moving and symbols score without the penalty check instead of
// hammering a failing endpoint.
type BreakerFundamentals struct {
	inner   FundamentalsProvider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerFundamentals wraps the provider. The breaker opens after 5
// consecutive failures and probes again after 60 seconds.
func NewBreakerFundamentals(inner FundamentalsProvider) *BreakerFundamentals {
	settings := gobreaker.Settings{
		Name:    "fundamentals",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("fundamentals circuit breaker state change")
		},
	}
	return &BreakerFundamentals{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// FetchFundamentals delegates through the breaker. An open breaker and a
// missing summary both surface as ErrUnavailable.
func (b *BreakerFundamentals) FetchFundamentals(ctx context.Context, symbol string) (*model.FundamentalsSummary, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		summary, err := b.inner.FetchFundamentals(ctx, symbol)
		if errors.Is(err, ErrUnavailable) {
			// Absence is a valid answer, not a breaker failure.
			return (*model.FundamentalsSummary)(nil), nil
		}
		return summary, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	summary := result.(*model.FundamentalsSummary)
	if summary == nil {
		return nil, ErrUnavailable
	}
	return summary, nil
}
