package benchmark

import (
	"fmt"

	"CycleScan/internal/model"
)

// RISK-ON strength labels keyed on breadth.
const (
	StrengthStrong   = "Strong"
	StrengthModerate = "Moderate"
	StrengthWeak     = "Weak"
)

// Analyzer classifies the overall market regime from the benchmark's phase
// plus cross-sectional breadth. Pure function of its inputs.
type Analyzer struct {
	MinConfidence float64 // benchmark confidence needed for a regime call
	MinBreadth    float64 // minimum Phase 2 fraction for RISK-ON
}

// NewAnalyzer returns an analyzer with the default 60% confidence and 15%
// breadth thresholds.
func NewAnalyzer() *Analyzer {
	return &Analyzer{MinConfidence: 60, MinBreadth: 0.15}
}

// Analyze combines the benchmark phase state with universe breadth.
// RISK-OFF suppresses buy emission regardless of individual scores.
func (a *Analyzer) Analyze(bench model.PhaseState, breadth model.PhaseBreadth) model.RegimeSummary {
	frac := breadth.Fraction(model.PhaseUptrend)
	out := model.RegimeSummary{
		Regime:         model.RegimeMixed,
		BenchmarkState: bench,
		Breadth:        frac,
	}

	confident := bench.Confidence >= a.MinConfidence

	switch {
	case bench.Phase == model.PhaseUptrend && confident && frac >= a.MinBreadth:
		out.Regime = model.RegimeRiskOn
		switch {
		case frac >= 0.50:
			out.Strength = StrengthStrong
		case frac >= 0.25:
			out.Strength = StrengthModerate
		default:
			out.Strength = StrengthWeak
		}
		out.Reasons = append(out.Reasons,
			fmt.Sprintf("benchmark in %s at %.0f%% confidence", bench.Phase, bench.Confidence),
			fmt.Sprintf("breadth %.0f%% of universe in Phase 2", frac*100))

	case (bench.Phase == model.PhaseDistribution || bench.Phase == model.PhaseDowntrend) && confident:
		out.Regime = model.RegimeRiskOff
		out.Reasons = append(out.Reasons,
			fmt.Sprintf("benchmark in %s at %.0f%% confidence", bench.Phase, bench.Confidence),
			"buy signals suppressed")

	default:
		out.Reasons = append(out.Reasons,
			fmt.Sprintf("benchmark in %s at %.0f%% confidence, breadth %.0f%%",
				bench.Phase, bench.Confidence, frac*100))
	}
	return out
}
