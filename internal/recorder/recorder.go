package recorder

import (
	"context"

	"CycleScan/internal/model"
	"CycleScan/internal/scan"
)

// Recorder persists scan history. Phase history from prior runs feeds the
// transition checks of the next one.
type Recorder interface {
	scan.ResultSink
	PreviousPhases() (map[string]model.Phase, error)
	Close() error
}

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Publish(_ context.Context, _ *scan.Result) error { return nil }

func (n *NoopRecorder) PreviousPhases() (map[string]model.Phase, error) {
	return map[string]model.Phase{}, nil
}

func (n *NoopRecorder) Close() error { return nil }
