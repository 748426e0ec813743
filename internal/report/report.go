package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"CycleScan/internal/model"
	"CycleScan/internal/scan"
)

// ConsoleSink renders the scan report to a writer, stdout by default. It
// implements scan.ResultSink.
type ConsoleSink struct {
	Out io.Writer
}

func NewConsoleSink() *ConsoleSink { return &ConsoleSink{Out: os.Stdout} }

func (c *ConsoleSink) Publish(_ context.Context, result *scan.Result) error {
	_, err := io.WriteString(c.Out, Format(result))
	return err
}

// Format renders the full scan report.
func Format(result *scan.Result) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== Market Cycle Scan | %s ===\n\n", time.Now().Format("2006-01-02")))

	writeRegime(&b, result.Regime)
	writeSignals(&b, "BUY CANDIDATES", result.Buys, "no buy candidates")
	writeSignals(&b, "SELL CANDIDATES", result.Sells, "no sell candidates")
	writeStats(&b, result)

	return b.String()
}

func writeRegime(b *strings.Builder, rg model.RegimeSummary) {
	b.WriteString(fmt.Sprintf("Market regime: %s", rg.Regime))
	if rg.Regime == model.RegimeRiskOn && rg.Strength != "" {
		b.WriteString(fmt.Sprintf(" (%s)", rg.Strength))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Benchmark: phase %d (%s) at %.0f%% confidence\n",
		int(rg.BenchmarkState.Phase), rg.BenchmarkState.Phase, rg.BenchmarkState.Confidence))
	b.WriteString(fmt.Sprintf("Breadth: %.1f%% of universe in uptrend\n", rg.Breadth*100))
	for _, reason := range rg.Reasons {
		b.WriteString(fmt.Sprintf("  - %s\n", reason))
	}
	b.WriteString("\n")
}

func writeSignals(b *strings.Builder, title string, signals []model.SignalScore, emptyMsg string) {
	b.WriteString(fmt.Sprintf("--- %s (%d) ---\n", title, len(signals)))
	if len(signals) == 0 {
		b.WriteString(fmt.Sprintf("  %s\n\n", emptyMsg))
		return
	}
	for i, sig := range signals {
		b.WriteString(fmt.Sprintf("%2d. %-6s %5.1f pts | phase %d | %s\n",
			i+1, sig.Symbol, sig.Total, int(sig.Phase), humanize.Commaf(sig.Price)))
		if sig.Kind == model.SignalSell && sig.Severity != "" {
			b.WriteString(fmt.Sprintf("    severity: %s\n", sig.Severity))
		}
		if sig.BreakoutLevel > 0 {
			b.WriteString(fmt.Sprintf("    breakout level: %.2f\n", sig.BreakoutLevel))
		}
		if sig.BreakdownLevel > 0 {
			b.WriteString(fmt.Sprintf("    breakdown level: %.2f\n", sig.BreakdownLevel))
		}
		for _, comp := range sig.Components {
			b.WriteString(fmt.Sprintf("    %s: %+.0f/%.0f", comp.Name, comp.Points, comp.Max))
			if comp.Commentary != "" {
				b.WriteString(fmt.Sprintf(" (%s)", comp.Commentary))
			}
			b.WriteString("\n")
		}
		if sig.Penalty > 0 {
			b.WriteString(fmt.Sprintf("    fundamental penalty: -%.0f\n", sig.Penalty))
		}
		for _, reason := range sig.Reasons {
			b.WriteString(fmt.Sprintf("    note: %s\n", reason))
		}
	}
	b.WriteString("\n")
}

func writeStats(b *strings.Builder, result *scan.Result) {
	st := result.Stats
	b.WriteString("--- SCAN SUMMARY ---\n")
	b.WriteString(fmt.Sprintf("  state:     %s\n", result.State))
	b.WriteString(fmt.Sprintf("  universe:  %s symbols (%s filtered out)\n",
		humanize.Comma(int64(st.UniverseSize)), humanize.Comma(int64(st.Filtered))))
	b.WriteString(fmt.Sprintf("  processed: %s (%s skipped, %s errored)\n",
		humanize.Comma(int64(st.Processed)), humanize.Comma(int64(st.Skipped)),
		humanize.Comma(int64(st.Errored))))
	b.WriteString(fmt.Sprintf("  elapsed:   %s | trailing error rate %.1f%%\n",
		st.Elapsed.Round(time.Second), st.ErrorRate*100))
}
