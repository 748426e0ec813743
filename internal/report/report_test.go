package report

import (
	"strings"
	"testing"

	"CycleScan/internal/model"
	"CycleScan/internal/scan"
)

func TestFormatEmptyResult(t *testing.T) {
	out := Format(&scan.Result{
		Regime: model.RegimeSummary{Regime: model.RegimeMixed},
		State:  scan.StateCompleted,
	})
	if !strings.Contains(out, "no buy candidates") {
		t.Error("empty buy list needs its explicit marker")
	}
	if !strings.Contains(out, "no sell candidates") {
		t.Error("empty sell list needs its explicit marker")
	}
}

func TestFormatRankedSignals(t *testing.T) {
	result := &scan.Result{
		Buys: []model.SignalScore{
			{
				Symbol: "AAPL", Kind: model.SignalBuy, Total: 85, Accepted: true,
				Phase: model.PhaseUptrend, Price: 182.50, BreakoutLevel: 180,
				Components: []model.ComponentScore{
					{Name: "trend structure", Points: 40, Max: 40},
				},
			},
		},
		Sells: []model.SignalScore{
			{
				Symbol: "XYZ", Kind: model.SignalSell, Total: 72, Accepted: true,
				Phase: model.PhaseDowntrend, Severity: model.SeverityHigh, Price: 44.1,
			},
		},
		Regime: model.RegimeSummary{
			Regime:   model.RegimeRiskOn,
			Strength: "Moderate",
			Breadth:  0.4,
		},
		State: scan.StateCompleted,
		Stats: scan.Stats{UniverseSize: 1500, Filtered: 200, Processed: 1300},
	}

	out := Format(result)
	for _, want := range []string{"AAPL", "XYZ", "RISK-ON", "Moderate", "severity: high", "breakout level: 180.00", "1,500"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(out, "no buy candidates") {
		t.Error("populated buy list must not show the empty marker")
	}
}
