package volatility

import (
	"CycleScan/internal/calculator"
	"CycleScan/internal/model"
)

// Contraction thresholds: a current-to-trailing volatility ratio at or
// below Threshold counts as contracting; TightBound marks the tightest
// contraction worth full quality credit.
const (
	Threshold  = 0.7
	TightBound = 0.3
)

// Detector measures whether recent return volatility is contracting
// relative to its own trailing average.
type Detector struct {
	Window      int // rolling stddev window
	TrailWindow int // trailing average window over the vol series
}

// NewDetector returns a detector with the standard 20/60 daily windows.
func NewDetector() *Detector {
	return &Detector{Window: 20, TrailWindow: 60}
}

// Detect computes the volatility state for a series. Series too short for
// a trailing comparison are reported as not contracting.
func (d *Detector) Detect(series *model.PriceSeries) model.VolatilityState {
	vols, err := calculator.RollingStdDev(calculator.Returns(series.Closes()), d.Window)
	if err != nil || len(vols) < 2 {
		return model.VolatilityState{}
	}
	current := vols[len(vols)-1]
	trail := vols[:len(vols)-1]
	if len(trail) > d.TrailWindow {
		trail = trail[len(trail)-d.TrailWindow:]
	}
	avg := calculator.Mean(trail)
	if avg == 0 {
		return model.VolatilityState{}
	}

	ratio := current / avg
	if ratio > Threshold {
		return model.VolatilityState{}
	}

	// Quality scales linearly from the contraction threshold down to the
	// tight bound, clipped to [0,100].
	quality := (Threshold - ratio) / (Threshold - TightBound) * 100
	if quality > 100 {
		quality = 100
	}
	if quality < 0 {
		quality = 0
	}
	return model.VolatilityState{Contracting: true, Quality: quality}
}
