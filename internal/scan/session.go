package scan

import (
	"CycleScan/internal/model"
)

// Session ties one scan run to its universe snapshot and checkpoint. It is
// created at scan start, mutated only by the orchestrator's aggregation
// loop, and discarded on completion; the checkpoint alone survives.
type Session struct {
	ID         string
	RunID      string
	Universe   []model.UniverseEntry // post-filter snapshot
	Checkpoint *model.ScanCheckpoint
}

// Remaining returns the symbols not yet committed to the checkpoint, in
// universe order. A resumed session never reprocesses a committed symbol
// and never drops one that is still pending.
func (s *Session) Remaining() []model.UniverseEntry {
	out := make([]model.UniverseEntry, 0, len(s.Universe))
	for _, e := range s.Universe {
		if !s.Checkpoint.IsProcessed(e.Symbol) {
			out = append(out, e)
		}
	}
	return out
}

// applyFilters drops universe entries failing the coarse price and volume
// pre-filters, then caps the snapshot in test mode. Entries without
// metadata (zero price) pass through; the post-fetch checks still apply.
func applyFilters(entries []model.UniverseEntry, opts Options) (kept []model.UniverseEntry, filtered int) {
	kept = make([]model.UniverseEntry, 0, len(entries))
	for _, e := range entries {
		if e.LastPrice > 0 && (e.LastPrice < opts.MinPrice || e.LastPrice > opts.MaxPrice) {
			filtered++
			continue
		}
		if opts.MinVolume > 0 && e.AvgVolume > 0 && e.AvgVolume < opts.MinVolume {
			filtered++
			continue
		}
		kept = append(kept, e)
	}
	if opts.TestMode && len(kept) > opts.TestModeLimit {
		filtered += len(kept) - opts.TestModeLimit
		kept = kept[:opts.TestModeLimit]
	}
	return kept, filtered
}
