package scorer

import (
	"fmt"

	"CycleScan/internal/calculator"
	"CycleScan/internal/model"
)

// ScoreSell scores a phase 2 -> 3/4 breakdown candidate. Components:
// breakdown structure 60, volume 30, RS weakness 10, plus a failed-breakout
// bonus, clamped to [0,100].
func (s *Scorer) ScoreSell(in Input) model.SignalScore {
	out := model.SignalScore{
		Symbol:   in.Symbol,
		Kind:     model.SignalSell,
		Phase:    in.State.Phase,
		Price:    in.Price,
		Severity: model.SeverityLow,
	}

	if in.State.Phase != model.PhaseDistribution && in.State.Phase != model.PhaseDowntrend {
		out.Reasons = append(out.Reasons, fmt.Sprintf("no sell signal (%s)", in.State.Phase))
		return out
	}

	st := in.State

	// Breakdown structure (60).
	breakdown := 0.0
	switch {
	case in.PreviousPhase == model.PhaseUptrend:
		breakdown += 30
		out.Reasons = append(out.Reasons, fmt.Sprintf("phase transition: %d -> %d", in.PreviousPhase, st.Phase))
	case st.Phase == model.PhaseDowntrend:
		breakdown += 25
		out.Reasons = append(out.Reasons, "in Phase 4 (downtrend)")
	case st.Phase == model.PhaseDistribution:
		breakdown += 15
		out.Reasons = append(out.Reasons, "in Phase 3 (distribution)")
	}
	if in.Price < st.SMAShort && st.SMAShort > 0 {
		pctBelow := (st.SMAShort - in.Price) / st.SMAShort * 100
		switch {
		case pctBelow > 5:
			breakdown += 20
		case pctBelow > 2:
			breakdown += 15
		default:
			breakdown += 10
		}
		out.BreakdownLevel = st.SMAShort
		out.Reasons = append(out.Reasons, fmt.Sprintf("below short MA by %.1f%%", pctBelow))
	}
	if st.SlopeShort < 0 {
		breakdown += 10
		out.Reasons = append(out.Reasons, fmt.Sprintf("short MA declining (slope %.4f)", st.SlopeShort))
	}
	if breakdown > 60 {
		breakdown = 60
	}
	out.Components = append(out.Components, model.ComponentScore{
		Name: "breakdown structure", Points: breakdown, Max: 60,
	})

	// Volume confirmation (30). High volume on a breakdown is bearish; even
	// a quiet breakdown keeps a floor of 5.
	volPts, volNote := stagedVolume(in.VolumeRatio, [4]float64{30, 20, 10, 5})
	out.Components = append(out.Components, model.ComponentScore{
		Name: "volume confirmation", Points: volPts, Max: 30,
		Commentary: fmt.Sprintf("%s: %.1fx average", volNote, in.VolumeRatio),
	})

	// RS weakness (10).
	var rsPts float64
	switch slope := in.RS.Slope; {
	case slope < -2.0:
		rsPts = 10
	case slope < -1.0:
		rsPts = 7
	case slope < 0:
		rsPts = 5
	default:
		rsPts = 0
	}
	out.Components = append(out.Components, model.ComponentScore{
		Name: "rs weakness", Points: rsPts, Max: 10,
		Commentary: fmt.Sprintf("slope %.2f", in.RS.Slope),
	})

	total := breakdown + volPts + rsPts

	// Failed breakout: the recent closing high cleared the short MA but
	// price fell back inside the base.
	if in.Series != nil {
		if recentHigh, err := calculator.TrailingClosingHigh(in.Series.Bars, 20); err == nil {
			if recentHigh > st.SMAShort && in.Price < st.SMAShort {
				total += 10
				out.Reasons = append(out.Reasons, "failed breakout: closed back inside base")
			}
		}
	}

	out.Total = clamp(total, 0, 100)
	switch {
	case out.Total >= 80:
		out.Severity = model.SeverityCritical
	case out.Total >= 70:
		out.Severity = model.SeverityHigh
	case out.Total >= 60:
		out.Severity = model.SeverityMedium
	}
	out.Accepted = out.Total >= SellThreshold
	return out
}
