package classifier

import (
	"errors"
	"fmt"
	"math"

	"CycleScan/internal/calculator"
	"CycleScan/internal/model"
)

// ErrInsufficientData means the series has fewer than the minimum valid
// bars. Callers skip the symbol; it is not counted as a fetch error.
var ErrInsufficientData = errors.New("insufficient price history")

// Config holds the classification windows and thresholds.
type Config struct {
	MinBars      int     // minimum valid bars before classification
	ShortWindow  int     // short moving average window
	LongWindow   int     // long moving average window
	SlopeWindow  int     // trailing sub-window for MA slope regression
	VolWindow    int     // rolling return-volatility window
	TrailWindow  int     // trailing average window for volatility and volume
	BandWindow   int     // tight-band and consolidation lookback
	CrossWindow  int     // recency window for a short-MA cross
	FlatFrac     float64 // flat-slope threshold as a fraction of price per bar
	BandMax      float64 // max high/low spread for a tight base
	ExtendedPct  float64 // distribution extension above the short MA, percent
	BreakoutVol  float64 // volume ratio confirming a short-MA cross
	FailedMin    int     // failed breakout attempts marking distribution
}

// DefaultConfig returns the standard daily-bar configuration.
func DefaultConfig() Config {
	return Config{
		MinBars:     200,
		ShortWindow: 50,
		LongWindow:  200,
		SlopeWindow: 20,
		VolWindow:   20,
		TrailWindow: 60,
		BandWindow:  20,
		CrossWindow: 5,
		FlatFrac:    0.0005,
		BandMax:     0.10,
		ExtendedPct: 10.0,
		BreakoutVol: 1.5,
		FailedMin:   2,
	}
}

// Classifier assigns one of the four market-cycle phases to a price series.
// Classification is deterministic and side-effect-free.
type Classifier struct {
	cfg Config
}

// New creates a Classifier with the given configuration.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// criterion is one phase-defining condition with its satisfied reason.
type criterion struct {
	ok     bool
	reason string
}

// Classify converts a price series into a phase state. It returns
// ErrInsufficientData when fewer than MinBars valid bars exist.
func (c *Classifier) Classify(series *model.PriceSeries) (model.PhaseState, error) {
	if series == nil || series.Len() < c.cfg.MinBars {
		n := 0
		if series != nil {
			n = series.Len()
		}
		return model.PhaseState{}, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, n, c.cfg.MinBars)
	}

	closes := series.Closes()
	volumes := series.Volumes()
	close := closes[len(closes)-1]

	smaShortSeries, err := calculator.SMASeries(closes, c.cfg.ShortWindow)
	if err != nil {
		return model.PhaseState{}, fmt.Errorf("%w: short MA: %d bars", ErrInsufficientData, series.Len())
	}
	smaLongSeries, err := calculator.SMASeries(closes, c.cfg.LongWindow)
	if err != nil {
		return model.PhaseState{}, fmt.Errorf("%w: long MA: %d bars", ErrInsufficientData, series.Len())
	}
	smaShort := smaShortSeries[len(smaShortSeries)-1]
	smaLong := smaLongSeries[len(smaLongSeries)-1]

	slopeShort := maSlope(smaShortSeries, c.cfg.SlopeWindow)
	slopeLong := maSlope(smaLongSeries, c.cfg.SlopeWindow)
	flat := c.cfg.FlatFrac * close

	distance := (close - smaShort) / smaShort * 100

	breakoutLevel, _ := calculator.TrailingClosingHigh(series.Bars, c.cfg.BandWindow)
	breakout := close > breakoutLevel

	volRatio, volRatioErr := calculator.VolumeRatio(volumes, c.cfg.VolWindow)
	crossed := c.recentCross(closes, smaShortSeries)

	volContracting := c.volatilityBelowTrail(closes)
	volumeQuiet := c.volumeBelowTrail(volumes)

	high, low, _ := calculator.TrailingRange(series.Bars, c.cfg.BandWindow)
	tightBand := low > 0 && (high-low)/low <= c.cfg.BandMax

	failed := c.failedBreakouts(series.Bars)

	basing := []criterion{
		{math.Abs(slopeShort) <= flat, fmt.Sprintf("%d-bar MA slope near flat", c.cfg.ShortWindow)},
		{math.Abs(slopeLong) <= flat, fmt.Sprintf("%d-bar MA slope near flat", c.cfg.LongWindow)},
		{volContracting, "return volatility below trailing average"},
		{volumeQuiet, "volume drying up below trailing average"},
		{tightBand, fmt.Sprintf("trading in a tight %.0f%% band", c.cfg.BandMax*100)},
	}
	uptrend := []criterion{
		{close > smaShort, fmt.Sprintf("close above %d-bar MA", c.cfg.ShortWindow)},
		{smaShort > smaLong, fmt.Sprintf("%d-bar MA above %d-bar MA", c.cfg.ShortWindow, c.cfg.LongWindow)},
		{slopeShort > 0, fmt.Sprintf("%d-bar MA rising", c.cfg.ShortWindow)},
		{slopeLong > 0, fmt.Sprintf("%d-bar MA rising", c.cfg.LongWindow)},
		{breakout || (crossed && volRatioErr == nil && volRatio >= c.cfg.BreakoutVol),
			"breakout or volume-confirmed MA cross"},
	}
	distribution := []criterion{
		{distance >= c.cfg.ExtendedPct, fmt.Sprintf("extended %.1f%% above %d-bar MA", distance, c.cfg.ShortWindow)},
		{math.Abs(slopeShort) <= flat*0.5, fmt.Sprintf("%d-bar MA slope flattening", c.cfg.ShortWindow)},
		{failed >= c.cfg.FailedMin, fmt.Sprintf("%d failed breakout attempts", failed)},
		{close > smaLong, fmt.Sprintf("still above %d-bar MA", c.cfg.LongWindow)},
	}
	downtrend := []criterion{
		{close < smaShort, fmt.Sprintf("close below %d-bar MA", c.cfg.ShortWindow)},
		{close < smaLong, fmt.Sprintf("close below %d-bar MA", c.cfg.LongWindow)},
		{smaShort < smaLong, fmt.Sprintf("%d-bar MA below %d-bar MA", c.cfg.ShortWindow, c.cfg.LongWindow)},
		{slopeShort < 0, fmt.Sprintf("%d-bar MA falling", c.cfg.ShortWindow)},
		{slopeLong < 0, fmt.Sprintf("%d-bar MA falling", c.cfg.LongWindow)},
	}

	candidates := []struct {
		phase      model.Phase
		criteria   []criterion
		structural bool
	}{
		{model.PhaseBasing, basing, math.Abs(slopeShort) <= flat && math.Abs(slopeLong) <= flat},
		{model.PhaseUptrend, uptrend, close > smaShort && smaShort > smaLong && slopeShort > 0},
		{model.PhaseDistribution, distribution, distance >= c.cfg.ExtendedPct && math.Abs(slopeShort) <= flat*0.5},
		{model.PhaseDowntrend, downtrend, close < smaShort && smaShort < smaLong && slopeShort < 0},
	}

	best := candidates[0]
	bestFrac := satisfiedFraction(best.criteria)
	for _, cand := range candidates[1:] {
		frac := satisfiedFraction(cand.criteria)
		switch {
		case frac > bestFrac:
			best, bestFrac = cand, frac
		case frac == bestFrac && cand.structural && !best.structural:
			// Adjacent phases can partially overlap; prefer the one whose
			// slope signs and MA ordering actually match.
			best = cand
		}
	}

	state := model.PhaseState{
		Phase:           best.phase,
		Confidence:      math.Round(bestFrac * 100),
		SMAShort:        smaShort,
		SMALong:         smaLong,
		SlopeShort:      slopeShort,
		SlopeLong:       slopeLong,
		DistanceFromSMA: distance,
		Breakout:        breakout,
		BreakoutLevel:   breakoutLevel,
	}
	for _, cr := range best.criteria {
		if cr.ok {
			state.Reasons = append(state.Reasons, cr.reason)
		}
	}
	return state, nil
}

func satisfiedFraction(criteria []criterion) float64 {
	n := 0
	for _, cr := range criteria {
		if cr.ok {
			n++
		}
	}
	return float64(n) / float64(len(criteria))
}

// maSlope regresses the trailing window of an MA series. Long MA series
// near the minimum history can be shorter than the slope window; the slope
// is taken over what exists, or zero when fewer than two points remain.
func maSlope(series []float64, window int) float64 {
	if len(series) < 2 {
		return 0
	}
	if len(series) < window {
		window = len(series)
	}
	slope, err := calculator.Slope(series, window)
	if err != nil {
		return 0
	}
	return slope
}

// recentCross reports a close crossing above the short MA within the cross
// window.
func (c *Classifier) recentCross(closes, smaShort []float64) bool {
	offset := len(closes) - len(smaShort) // index of first MA value in closes
	for i := len(smaShort) - c.cfg.CrossWindow; i < len(smaShort); i++ {
		if i < 1 {
			continue
		}
		below := closes[offset+i-1] <= smaShort[i-1]
		above := closes[offset+i] > smaShort[i]
		if below && above {
			return true
		}
	}
	return false
}

func (c *Classifier) volatilityBelowTrail(closes []float64) bool {
	vols, err := calculator.RollingStdDev(calculator.Returns(closes), c.cfg.VolWindow)
	if err != nil || len(vols) < 2 {
		return false
	}
	current := vols[len(vols)-1]
	trail := vols[:len(vols)-1]
	if len(trail) > c.cfg.TrailWindow {
		trail = trail[len(trail)-c.cfg.TrailWindow:]
	}
	return current < calculator.Mean(trail)
}

func (c *Classifier) volumeBelowTrail(volumes []float64) bool {
	if len(volumes) < c.cfg.TrailWindow {
		return false
	}
	recent, err := calculator.SMA(volumes, c.cfg.VolWindow)
	if err != nil {
		return false
	}
	trail, err := calculator.SMA(volumes, c.cfg.TrailWindow)
	if err != nil {
		return false
	}
	return recent < trail
}

// failedBreakouts counts bars in the trailing band window whose intraday
// high cleared the prior closing high but closed back below it.
func (c *Classifier) failedBreakouts(bars []model.PriceBar) int {
	count := 0
	start := len(bars) - c.cfg.BandWindow
	if start < c.cfg.BandWindow {
		start = c.cfg.BandWindow
	}
	for i := start; i < len(bars); i++ {
		high := math.Inf(-1)
		for j := i - c.cfg.BandWindow; j < i; j++ {
			if bars[j].Close > high {
				high = bars[j].Close
			}
		}
		if bars[i].High > high && bars[i].Close < high {
			count++
		}
	}
	return count
}
