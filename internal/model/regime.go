package model

// Regime classifies overall market conditions from the benchmark phase
// plus cross-sectional breadth.
type Regime string

const (
	RegimeRiskOn  Regime = "RISK-ON"
	RegimeRiskOff Regime = "RISK-OFF"
	RegimeMixed   Regime = "MIXED"
)

// RegimeSummary is the benchmark analysis published with every scan.
type RegimeSummary struct {
	Regime         Regime
	Strength       string // RISK-ON only: Strong / Moderate / Weak
	BenchmarkState PhaseState
	Breadth        float64 // fraction of universe in Phase 2
	Reasons        []string
}

// PhaseBreadth counts classified symbols per phase for one scan.
type PhaseBreadth struct {
	Counts map[Phase]int
	Total  int
}

// Fraction returns the fraction of classified symbols in the given phase.
func (b PhaseBreadth) Fraction(p Phase) float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Counts[p]) / float64(b.Total)
}
