package classifier

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"CycleScan/internal/model"
)

func syntheticSeries(symbol string, n int, priceAt func(i int) float64) *model.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := 0; i < n; i++ {
		p := priceAt(i)
		bars[i] = model.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   p,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1_000_000,
		}
	}
	return &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
}

func TestClassifyInsufficientData(t *testing.T) {
	c := New(DefaultConfig())

	series := syntheticSeries("SHORT", 199, func(i int) float64 { return 100 })
	if _, err := c.Classify(series); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 199 bars, got %v", err)
	}

	if _, err := c.Classify(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for nil series, got %v", err)
	}
}

func TestClassifyUptrend(t *testing.T) {
	c := New(DefaultConfig())

	// Steadily rising closes: every structural uptrend criterion holds and
	// the final close clears the prior 20-bar high.
	series := syntheticSeries("UP", 260, func(i int) float64 { return 100 + 0.5*float64(i) })
	state, err := c.Classify(series)
	if err != nil {
		t.Fatal(err)
	}
	if state.Phase != model.PhaseUptrend {
		t.Fatalf("expected Phase 2, got %s", state.Phase)
	}
	if state.Confidence < 80 {
		t.Errorf("expected high confidence, got %.0f", state.Confidence)
	}
	if !state.Breakout {
		t.Error("monotonically rising series should register a breakout")
	}
	if state.SMAShort <= state.SMALong {
		t.Errorf("short MA %.2f should exceed long MA %.2f", state.SMAShort, state.SMALong)
	}
	if state.SlopeShort <= 0 || state.SlopeLong <= 0 {
		t.Errorf("slopes should be positive, got %.4f / %.4f", state.SlopeShort, state.SlopeLong)
	}
	if len(state.Reasons) == 0 {
		t.Error("expected satisfied criteria reasons")
	}
}

func TestClassifyDowntrend(t *testing.T) {
	c := New(DefaultConfig())

	series := syntheticSeries("DOWN", 260, func(i int) float64 { return 360 - 0.5*float64(i) })
	state, err := c.Classify(series)
	if err != nil {
		t.Fatal(err)
	}
	if state.Phase != model.PhaseDowntrend {
		t.Fatalf("expected Phase 4, got %s", state.Phase)
	}
	if state.Confidence != 100 {
		t.Errorf("all five downtrend criteria hold, expected confidence 100, got %.0f", state.Confidence)
	}
	if state.SlopeShort >= 0 {
		t.Errorf("short slope should be negative, got %.4f", state.SlopeShort)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(DefaultConfig())
	series := syntheticSeries("DET", 260, func(i int) float64 { return 100 + 0.5*float64(i) })

	first, err := c.Classify(series)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Classify(series)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("classification of the same series must be identical across calls")
	}
}
