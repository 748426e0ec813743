package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"CycleScan/internal/model"
)

func TestApplyFilters(t *testing.T) {
	entries := []model.UniverseEntry{
		{Symbol: "OK", LastPrice: 50, AvgVolume: 2_000_000},
		{Symbol: "PENNY", LastPrice: 2, AvgVolume: 5_000_000},
		{Symbol: "RICH", LastPrice: 20_000, AvgVolume: 2_000_000},
		{Symbol: "THIN", LastPrice: 50, AvgVolume: 100_000},
		{Symbol: "NOMETA"}, // no metadata passes through
	}
	opts := Options{MinPrice: 5, MaxPrice: 10_000, MinVolume: 500_000}

	kept, filtered := applyFilters(entries, opts)
	assert.Equal(t, 3, filtered)
	symbols := make([]string, len(kept))
	for i, e := range kept {
		symbols[i] = e.Symbol
	}
	assert.Equal(t, []string{"OK", "NOMETA"}, symbols)
}

func TestApplyFiltersTestMode(t *testing.T) {
	entries := make([]model.UniverseEntry, 40)
	for i := range entries {
		entries[i] = model.UniverseEntry{Symbol: string(rune('A' + i))}
	}
	opts := Options{MaxPrice: 10_000, TestMode: true, TestModeLimit: 25}

	kept, filtered := applyFilters(entries, opts)
	assert.Len(t, kept, 25)
	assert.Equal(t, 15, filtered)
}

func TestSessionRemaining(t *testing.T) {
	cp := model.NewScanCheckpoint("s", "r", 3)
	cp.MarkProcessed("BBB")
	session := &Session{
		ID: "s",
		Universe: []model.UniverseEntry{
			{Symbol: "AAA"}, {Symbol: "BBB"}, {Symbol: "CCC"},
		},
		Checkpoint: cp,
	}

	remaining := session.Remaining()
	assert.Len(t, remaining, 2)
	assert.Equal(t, "AAA", remaining[0].Symbol)
	assert.Equal(t, "CCC", remaining[1].Symbol)
}

func TestOptionsDefaults(t *testing.T) {
	opts := (&Options{SaveInterval: 500}).withDefaults()
	assert.Equal(t, "default", opts.SessionID)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, checkpointMaxInterval, opts.SaveInterval, "save interval caps at the checkpoint maximum")
	assert.Equal(t, "SPY", opts.Benchmark)
}
