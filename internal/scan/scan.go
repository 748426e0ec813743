package scan

import (
	"context"
	"time"

	"CycleScan/internal/model"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Options is the validated scan configuration surface.
type Options struct {
	SessionID     string
	Resume        bool
	ClearProgress bool
	MinPrice      float64
	MaxPrice      float64
	MinVolume     float64
	RateInterval  time.Duration
	TestMode      bool
	TestModeLimit int
	Workers       int
	SaveInterval  int
	Lookback      int // daily bars requested per symbol
	Benchmark     string
}

// checkpointMaxInterval caps how many symbols of work an interruption can
// lose, whatever the configured save interval says.
const checkpointMaxInterval = 100

func (o *Options) withDefaults() Options {
	out := *o
	if out.SessionID == "" {
		out.SessionID = "default"
	}
	if out.MaxPrice <= 0 {
		out.MaxPrice = 10000
	}
	if out.RateInterval <= 0 {
		out.RateInterval = time.Second
	}
	if out.TestModeLimit <= 0 {
		out.TestModeLimit = 25
	}
	if out.Workers <= 0 {
		out.Workers = 4
	}
	if out.SaveInterval <= 0 || out.SaveInterval > checkpointMaxInterval {
		out.SaveInterval = checkpointMaxInterval
	}
	if out.Lookback <= 0 {
		out.Lookback = 500
	}
	if out.Benchmark == "" {
		out.Benchmark = "SPY"
	}
	return out
}

// Stats summarizes one scan run for the final report.
type Stats struct {
	UniverseSize int
	Filtered     int // dropped by price/volume pre-filters
	Processed    int
	Skipped      int // insufficient history, alignment, not found
	Errored      int
	StartedAt    time.Time
	Elapsed      time.Duration
	ErrorRate    float64 // trailing window rate at completion
}

// Result is the orchestrator output handed to result sinks.
type Result struct {
	Buys   []model.SignalScore // accepted, ranked by score desc
	Sells  []model.SignalScore
	Regime model.RegimeSummary
	Phases map[string]model.Phase // current phase per scored symbol
	Stats  Stats
	State  State
}

// ResultSink consumes ranked candidates. Lists arrive sorted descending by
// score with ties broken by symbol lexical order.
type ResultSink interface {
	Publish(ctx context.Context, result *Result) error
}
