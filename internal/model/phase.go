package model

import "fmt"

// Phase is one of the four discrete market-structure states.
type Phase int

const (
	PhaseBasing       Phase = 1 // tight base, flat MAs, drying volume
	PhaseUptrend      Phase = 2 // uptrend / breakout
	PhaseDistribution Phase = 3 // extended, flattening, failed breakouts
	PhaseDowntrend    Phase = 4 // downtrend below declining MAs
)

func (p Phase) String() string {
	switch p {
	case PhaseBasing:
		return "Phase 1 (Basing)"
	case PhaseUptrend:
		return "Phase 2 (Uptrend)"
	case PhaseDistribution:
		return "Phase 3 (Distribution)"
	case PhaseDowntrend:
		return "Phase 4 (Downtrend)"
	default:
		return fmt.Sprintf("Phase %d", int(p))
	}
}

// PhaseState is the classification result for one symbol. It is a pure
// function of the trailing window of a price series.
type PhaseState struct {
	Phase      Phase
	Confidence float64  // 0-100, fraction of defining criteria satisfied
	Reasons    []string // ordered, one per satisfied criterion

	// Supporting structure values consumed by the scorer.
	SMAShort        float64
	SMALong         float64
	SlopeShort      float64
	SlopeLong       float64
	DistanceFromSMA float64 // percent distance of close from short MA
	Breakout        bool
	BreakoutLevel   float64
}

// RSObservation holds a symbol's relative strength against the benchmark.
type RSObservation struct {
	Ratio []float64 // symbol close / benchmark close, scaled x100
	Slope float64   // OLS slope over the trailing 3 trading weeks
}

// VolatilityState describes whether recent volatility is contracting.
type VolatilityState struct {
	Contracting bool
	Quality     float64 // 0-100, tighter contraction scores higher
}
