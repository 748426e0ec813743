package scorer

import (
	"CycleScan/internal/model"
)

// Acceptance thresholds and the hard over-extension cutoff.
const (
	BuyThreshold  = 70.0
	SellThreshold = 60.0
	MaxExtension  = 25.0 // percent above the short MA that disqualifies a buy
)

// Input carries everything the scorer needs for one symbol. Scoring is a
// pure function of this input.
type Input struct {
	Symbol        string
	Series        *model.PriceSeries
	Price         float64
	State         model.PhaseState
	RS            model.RSObservation
	Vol           model.VolatilityState
	PreviousPhase model.Phase // zero when unknown
	Fundamentals  *model.FundamentalsSummary
	VolumeRatio   float64 // latest volume vs 20-bar average, 0 when unknown
}

// Scorer combines phase, relative strength, volatility and fundamentals
// into 0-100 buy and sell scores with accept/reject decisions.
type Scorer struct{}

// New creates a Scorer.
func New() *Scorer { return &Scorer{} }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stagedVolume maps a volume ratio to points using the shared ratio stages.
func stagedVolume(ratio float64, points [4]float64) (float64, string) {
	switch {
	case ratio >= 1.5:
		return points[0], "strong volume"
	case ratio >= 1.3:
		return points[1], "good volume"
	case ratio >= 1.1:
		return points[2], "moderate volume"
	default:
		return points[3], "low volume"
	}
}
