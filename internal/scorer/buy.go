package scorer

import (
	"fmt"

	"CycleScan/internal/model"
)

// ScoreBuy scores a phase 1 -> 2 transition or phase 2 breakout candidate.
// Components: trend structure 40, volume 20, RS slope 20, volatility
// contraction 20, minus up to 15 of fundamental penalty.
func (s *Scorer) ScoreBuy(in Input) model.SignalScore {
	out := model.SignalScore{
		Symbol: in.Symbol,
		Kind:   model.SignalBuy,
		Phase:  in.State.Phase,
		Price:  in.Price,
	}

	if in.State.Phase != model.PhaseBasing && in.State.Phase != model.PhaseUptrend {
		out.Reasons = append(out.Reasons, fmt.Sprintf("wrong phase (%s)", in.State.Phase))
		return out
	}

	st := in.State
	disqualified := false

	// Trend structure (40).
	trend := 0.0
	switch st.Phase {
	case model.PhaseUptrend:
		trend += 30
		out.Reasons = append(out.Reasons, "in Phase 2 (uptrend)")
	case model.PhaseBasing:
		if in.Price > st.SMAShort*0.98 && st.SMAShort > st.SMALong && st.SlopeShort > 0 {
			trend += 25
			out.Reasons = append(out.Reasons, "transitioning Phase 1 -> Phase 2")
		} else {
			trend += 10
			out.Reasons = append(out.Reasons, "in Phase 1 (base building)")
		}
	}
	if st.Breakout {
		trend += 10
		out.BreakoutLevel = st.BreakoutLevel
		out.Reasons = append(out.Reasons, fmt.Sprintf("breakout above %.2f", st.BreakoutLevel))
	}
	if st.DistanceFromSMA > MaxExtension {
		trend -= 10
		disqualified = true
		out.Reasons = append(out.Reasons, fmt.Sprintf("over-extended: %.1f%% above short MA", st.DistanceFromSMA))
	}
	if trend > 40 {
		trend = 40
	}
	out.Components = append(out.Components, model.ComponentScore{
		Name: "trend structure", Points: trend, Max: 40,
	})

	// Volume confirmation (20).
	volPts, volNote := stagedVolume(in.VolumeRatio, [4]float64{20, 15, 10, 0})
	out.Components = append(out.Components, model.ComponentScore{
		Name: "volume confirmation", Points: volPts, Max: 20,
		Commentary: fmt.Sprintf("%s: %.1fx average", volNote, in.VolumeRatio),
	})

	// Relative strength slope (20).
	var rsPts float64
	switch slope := in.RS.Slope; {
	case slope > 2.0:
		rsPts = 20
	case slope > 1.0:
		rsPts = 15
	case slope > 0.5:
		rsPts = 10
	case slope > 0:
		rsPts = 5
	default:
		rsPts = 0
	}
	out.Components = append(out.Components, model.ComponentScore{
		Name: "rs slope", Points: rsPts, Max: 20,
		Commentary: fmt.Sprintf("slope %.2f", in.RS.Slope),
	})

	// Volatility contraction quality (20). A series not contracting still
	// earns a token 5 points.
	volatilityPts := 5.0
	if in.Vol.Contracting {
		volatilityPts = in.Vol.Quality * 0.2
		if volatilityPts > 20 {
			volatilityPts = 20
		}
		out.Reasons = append(out.Reasons, fmt.Sprintf("volatility contraction: %.0f%% quality", in.Vol.Quality))
	}
	out.Components = append(out.Components, model.ComponentScore{
		Name: "volatility contraction", Points: volatilityPts, Max: 20,
	})

	// Fundamental contradiction penalty, applied after the weighted sum.
	penalty := 0.0
	if f := in.Fundamentals; f != nil {
		if f.RevenueDeclining() {
			penalty += 5
			out.Reasons = append(out.Reasons, "revenue declining")
		}
		if f.EPSDeclining() {
			penalty += 5
			out.Reasons = append(out.Reasons, "EPS deteriorating")
		}
		if f.InventoryBuilding() {
			penalty += 5
			out.Reasons = append(out.Reasons, "inventory building")
		}
	}
	out.Penalty = penalty

	total := trend + volPts + rsPts + volatilityPts - penalty
	out.Total = clamp(total, 0, 100)

	// The over-extension rule is an absolute override: no score wins a
	// disqualified candidate back.
	out.Accepted = out.Total >= BuyThreshold && !disqualified
	if disqualified {
		out.Reasons = append(out.Reasons, "disqualified: over-extended beyond 25% of short MA")
	}
	return out
}
