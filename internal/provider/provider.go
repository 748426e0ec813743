package provider

import (
	"context"
	"errors"
	"fmt"

	"CycleScan/internal/model"
)

// UniverseProvider supplies the ordered, deduplicated symbol universe with
// coarse metadata for pre-filtering.
type UniverseProvider interface {
	FetchUniverse(ctx context.Context) ([]model.UniverseEntry, error)
}

// PriceDataProvider fetches daily price history for one symbol.
type PriceDataProvider interface {
	FetchPrices(ctx context.Context, symbol string, lookback int) (*model.PriceSeries, error)
	Name() string
}

// FundamentalsProvider fetches the optional quarterly summary. Returns
// ErrUnavailable when the provider has nothing for the symbol.
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, symbol string) (*model.FundamentalsSummary, error)
}

// Error taxonomy consumed by the orchestrator's retry and rate-limit
// policies.
var (
	// ErrNotFound means the symbol does not exist at the data source.
	ErrNotFound = errors.New("symbol not found")
	// ErrRateLimited is the provider's 429-equivalent; it escalates the
	// rate limiter and always counts toward the error window.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUnavailable means fundamentals data is absent, not an error.
	ErrUnavailable = errors.New("fundamentals unavailable")
)

// TransientError wraps a failure worth retrying, typically network-level.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// DataQualityError marks a malformed or empty response; the symbol is
// skipped and the failure counted.
type DataQualityError struct {
	Symbol string
	Reason string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("bad data for %s: %s", e.Symbol, e.Reason)
}

// IsTransient reports whether the error should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
