package model

import "time"

// CheckpointSchemaVersion is bumped on any incompatible change to the
// persisted checkpoint layout. Loading a record with a different version
// fails closed.
const CheckpointSchemaVersion = 1

// ScanCheckpoint is the durable record of batch-scan progress. It is the
// only entity that survives across runs.
type ScanCheckpoint struct {
	Version           int                 `json:"version"`
	SessionID         string              `json:"session_id"`
	RunID             string              `json:"run_id"`
	TotalUniverseSize int                 `json:"total_universe_size"`
	Processed         map[string]struct{} `json:"-"`
	ProcessedList     []string            `json:"processed"`
	ErrorCount        int                 `json:"error_count"`
	StartedAt         time.Time           `json:"started_at"`
	LastSavedAt       time.Time           `json:"last_saved_at"`
}

// NewScanCheckpoint creates a fresh checkpoint for a session.
func NewScanCheckpoint(sessionID, runID string, universeSize int) *ScanCheckpoint {
	return &ScanCheckpoint{
		Version:           CheckpointSchemaVersion,
		SessionID:         sessionID,
		RunID:             runID,
		TotalUniverseSize: universeSize,
		Processed:         make(map[string]struct{}),
		StartedAt:         time.Now().UTC(),
	}
}

// MarkProcessed records a symbol as fully committed.
func (c *ScanCheckpoint) MarkProcessed(symbol string) {
	if c.Processed == nil {
		c.Processed = make(map[string]struct{})
	}
	if _, ok := c.Processed[symbol]; ok {
		return
	}
	c.Processed[symbol] = struct{}{}
	c.ProcessedList = append(c.ProcessedList, symbol)
}

// IsProcessed reports whether a symbol was already committed.
func (c *ScanCheckpoint) IsProcessed(symbol string) bool {
	_, ok := c.Processed[symbol]
	return ok
}

// RebuildIndex reconstructs the lookup set after JSON decoding.
func (c *ScanCheckpoint) RebuildIndex() {
	c.Processed = make(map[string]struct{}, len(c.ProcessedList))
	for _, s := range c.ProcessedList {
		c.Processed[s] = struct{}{}
	}
}
