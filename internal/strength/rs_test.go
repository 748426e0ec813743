package strength

import (
	"errors"
	"math"
	"testing"
	"time"

	"CycleScan/internal/model"
)

func seriesWith(symbol string, n int, closeAt func(i int) float64, skip func(i int) bool) *model.PriceSeries {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	s := &model.PriceSeries{Symbol: symbol}
	for i := 0; i < n; i++ {
		if skip != nil && skip(i) {
			continue
		}
		s.Bars = append(s.Bars, model.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Close:  closeAt(i),
			Volume: 1_000_000,
		})
	}
	return s
}

func TestComputeRatioAndSlope(t *testing.T) {
	// Flat benchmark, symbol gaining one point per day: the scaled ratio is
	// 100+i and its OLS slope exactly 1.
	bench := seriesWith("SPY", 40, func(i int) float64 { return 100 }, nil)
	sym := seriesWith("GRW", 40, func(i int) float64 { return 100 + float64(i) }, nil)

	e := NewEngine(bench, 0)
	rs, err := e.Compute(sym)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Ratio) != 40 {
		t.Fatalf("expected 40 aligned ratios, got %d", len(rs.Ratio))
	}
	if math.Abs(rs.Slope-1) > 1e-9 {
		t.Errorf("expected slope 1, got %f", rs.Slope)
	}
}

func TestComputeTimezoneNormalization(t *testing.T) {
	// Same calendar days in a different zone still align.
	bench := seriesWith("SPY", 30, func(i int) float64 { return 200 }, nil)
	sym := seriesWith("TZ", 30, func(i int) float64 { return 100 }, nil)
	est := time.FixedZone("EST", -5*3600)
	for i := range sym.Bars {
		sym.Bars[i].Date = sym.Bars[i].Date.Add(14 * time.Hour).In(est)
	}

	e := NewEngine(bench, 0)
	rs, err := e.Compute(sym)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Ratio) != 30 {
		t.Fatalf("expected 30 aligned ratios, got %d", len(rs.Ratio))
	}
	if math.Abs(rs.Ratio[0]-50) > 1e-9 {
		t.Errorf("expected scaled ratio 50, got %f", rs.Ratio[0])
	}
}

func TestComputeTooManyMissingDates(t *testing.T) {
	bench := seriesWith("SPY", 40, func(i int) float64 { return 100 }, nil)
	// Symbol trades only every other benchmark day: 50% missing.
	sym := seriesWith("GAP", 40, func(i int) float64 { return 100 }, func(i int) bool { return i%2 == 1 })

	e := NewEngine(bench, 0)
	_, err := e.Compute(sym)
	var alignErr *AlignmentError
	if !errors.As(err, &alignErr) {
		t.Fatalf("expected AlignmentError, got %v", err)
	}
	if alignErr.Symbol != "GAP" {
		t.Errorf("expected symbol in error, got %q", alignErr.Symbol)
	}
	if alignErr.Missing < 0.4 {
		t.Errorf("expected ~50%% missing, got %.2f", alignErr.Missing)
	}
}

func TestComputeShortOverlap(t *testing.T) {
	// Ten shared days is under the slope lookback even with zero missing
	// fraction problems on a ten-day benchmark series.
	bench := seriesWith("SPY", 10, func(i int) float64 { return 100 }, nil)
	sym := seriesWith("NEW", 10, func(i int) float64 { return 50 }, nil)

	e := NewEngine(bench, 0)
	if _, err := e.Compute(sym); err == nil {
		t.Fatal("expected error for overlap shorter than the slope lookback")
	}
}
