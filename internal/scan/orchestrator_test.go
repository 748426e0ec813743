package scan

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CycleScan/internal/checkpoint"
	"CycleScan/internal/model"
	"CycleScan/internal/provider"
)

func trendSeries(symbol string, start, step float64) *model.PriceSeries {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, 260)
	for i := range bars {
		p := start + step*float64(i)
		bars[i] = model.PriceBar{
			Date:   base.AddDate(0, 0, i),
			Open:   p,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1_000_000,
		}
	}
	return &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
}

func testOptions(session string) Options {
	return Options{
		SessionID:    session,
		RateInterval: time.Millisecond,
		Workers:      2,
		SaveInterval: 1,
		Lookback:     260,
		Benchmark:    "SPY",
	}
}

func newMockUniverse(symbols ...string) *provider.MockProvider {
	mock := provider.NewMockProvider()
	mock.Series["SPY"] = trendSeries("SPY", 100, 0.5)
	for _, sym := range symbols {
		mock.Universe = append(mock.Universe, model.UniverseEntry{Symbol: sym})
		mock.Series[sym] = trendSeries(sym, 50, 0.4)
	}
	return mock
}

func TestRunCompletes(t *testing.T) {
	mock := newMockUniverse("AAA", "BBB", "CCC")
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	orch := New(testOptions("full"), mock, mock, nil, store, nil)
	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, orch.State())
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 3, result.Stats.Processed)
	assert.Equal(t, 0, result.Stats.Errored)
	assert.Len(t, result.Phases, 3)
	assert.Equal(t, model.RegimeRiskOn, result.Regime.Regime)

	// A completed session retires its checkpoint.
	_, err = store.Load("full")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestRunPerSymbolFailuresDoNotAbort(t *testing.T) {
	mock := newMockUniverse("AAA", "BAD", "GONE")
	mock.Errs["BAD"] = provider.ErrUnavailable
	delete(mock.Series, "GONE") // fetch reports ErrNotFound

	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	orch := New(testOptions("lossy"), mock, mock, nil, store, nil)
	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 3, result.Stats.Processed)
	assert.Equal(t, 1, result.Stats.Errored)
	assert.Equal(t, 1, result.Stats.Skipped)
}

func TestRunResumeSkipsProcessed(t *testing.T) {
	mock := newMockUniverse("AAA", "BBB")
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	// A previous run already committed AAA.
	prior := model.NewScanCheckpoint("resume", "old-run", 2)
	prior.MarkProcessed("AAA")
	require.NoError(t, store.Save(prior))

	opts := testOptions("resume")
	opts.Resume = true
	orch := New(opts, mock, mock, nil, store, nil)
	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 2, result.Stats.Processed)
	assert.Equal(t, 0, mock.Fetches("AAA"), "committed symbol must not be re-fetched")
	assert.Equal(t, 1, mock.Fetches("BBB"))
}

// cancellingPrices cancels the scan context after a fixed number of price
// fetches, simulating an operator interrupt mid-run.
type cancellingPrices struct {
	inner  provider.PriceDataProvider
	cancel context.CancelFunc
	after  int32
	count  atomic.Int32
}

func (c *cancellingPrices) Name() string { return c.inner.Name() }

func (c *cancellingPrices) FetchPrices(ctx context.Context, symbol string, lookback int) (*model.PriceSeries, error) {
	if c.count.Add(1) == c.after {
		c.cancel()
	}
	return c.inner.FetchPrices(ctx, symbol, lookback)
}

func TestRunCancelPausesAndPersists(t *testing.T) {
	mock := newMockUniverse("S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8")
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	prices := &cancellingPrices{inner: mock, cancel: cancel, after: 4} // benchmark + 3 symbols

	opts := testOptions("paused")
	opts.Workers = 1
	orch := New(opts, mock, prices, nil, store, nil)
	result, err := orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, StatePaused, result.State)
	assert.Equal(t, StatePaused, orch.State())
	assert.GreaterOrEqual(t, result.Stats.Processed, 2)
	assert.Less(t, result.Stats.Processed, 8)

	// The checkpoint survives the pause with every committed symbol.
	cp, err := store.Load("paused")
	require.NoError(t, err)
	assert.Len(t, cp.ProcessedList, result.Stats.Processed)
}

// failingStore rejects every save.
type failingStore struct{}

func (f *failingStore) Load(string) (*model.ScanCheckpoint, error) {
	return nil, checkpoint.ErrNotFound
}
func (f *failingStore) Save(*model.ScanCheckpoint) error { return errors.New("disk full") }
func (f *failingStore) Clear(string) error               { return nil }

func TestRunCheckpointSaveFailureAborts(t *testing.T) {
	mock := newMockUniverse("AAA", "BBB", "CCC")

	orch := New(testOptions("doomed"), mock, mock, nil, &failingStore{}, nil)
	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint save")
	assert.Equal(t, StateAborted, orch.State())
}

func TestRunRiskOffDemotesBuys(t *testing.T) {
	mock := newMockUniverse("AAA", "BBB")
	mock.Series["SPY"] = trendSeries("SPY", 360, -0.5) // confident downtrend

	// AAA would clear the buy threshold on its own: steep uptrend plus a
	// volume surge on the final bar.
	strong := trendSeries("AAA", 50, 2.0)
	strong.Bars[len(strong.Bars)-1].Volume = 1_800_000
	mock.Series["AAA"] = strong

	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	orch := New(testOptions("riskoff"), mock, mock, nil, store, nil)
	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.RegimeRiskOff, result.Regime.Regime)

	// The vetoed candidate stays visible in the result, demoted with the
	// regime reason so sinks can report it.
	require.Len(t, result.Buys, 1)
	demoted := result.Buys[0]
	assert.Equal(t, "AAA", demoted.Symbol)
	assert.False(t, demoted.Accepted)
	assert.Contains(t, demoted.Reasons, "suppressed: market regime RISK-OFF")
}
