package strength

import (
	"fmt"
	"time"

	"CycleScan/internal/calculator"
	"CycleScan/internal/model"
)

// AlignmentError means the symbol's dates overlap too little of the
// benchmark to produce a meaningful ratio series.
type AlignmentError struct {
	Symbol  string
	Missing float64 // fraction of benchmark dates absent from the symbol
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("rs alignment: %s missing %.0f%% of benchmark dates", e.Symbol, e.Missing*100)
}

// SlopeLookback is three trading weeks of daily bars.
const SlopeLookback = 15

// Engine computes relative strength against a fixed benchmark series.
type Engine struct {
	benchmark  *model.PriceSeries
	byDate     map[time.Time]float64 // benchmark close by calendar day
	maxMissing float64
}

// NewEngine creates an Engine for the given benchmark. maxMissing is the
// tolerated fraction of benchmark dates absent from a symbol (default 0.10
// when zero).
func NewEngine(benchmark *model.PriceSeries, maxMissing float64) *Engine {
	if maxMissing <= 0 {
		maxMissing = 0.10
	}
	byDate := make(map[time.Time]float64, benchmark.Len())
	for _, b := range benchmark.Bars {
		byDate[day(b.Date)] = b.Close
	}
	return &Engine{benchmark: benchmark, byDate: byDate, maxMissing: maxMissing}
}

// Compute aligns the symbol with the benchmark by exact date intersection
// and returns the scaled ratio series with its trailing slope.
func (e *Engine) Compute(series *model.PriceSeries) (model.RSObservation, error) {
	symbolByDate := make(map[time.Time]float64, series.Len())
	for _, b := range series.Bars {
		symbolByDate[day(b.Date)] = b.Close
	}

	ratio := make([]float64, 0, e.benchmark.Len())
	missing := 0
	for _, bb := range e.benchmark.Bars {
		sc, ok := symbolByDate[day(bb.Date)]
		if !ok {
			missing++
			continue
		}
		if bb.Close != 0 {
			ratio = append(ratio, sc/bb.Close*100)
		}
	}

	if e.benchmark.Len() > 0 {
		frac := float64(missing) / float64(e.benchmark.Len())
		if frac > e.maxMissing {
			return model.RSObservation{}, &AlignmentError{Symbol: series.Symbol, Missing: frac}
		}
	}
	if len(ratio) < SlopeLookback {
		return model.RSObservation{}, &AlignmentError{
			Symbol:  series.Symbol,
			Missing: 1 - float64(len(ratio))/float64(max(e.benchmark.Len(), 1)),
		}
	}

	slope, err := calculator.Slope(ratio, SlopeLookback)
	if err != nil {
		return model.RSObservation{}, fmt.Errorf("rs slope: %w", err)
	}
	return model.RSObservation{Ratio: ratio, Slope: slope}, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
