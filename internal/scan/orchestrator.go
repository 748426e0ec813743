package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"CycleScan/internal/benchmark"
	"CycleScan/internal/calculator"
	"CycleScan/internal/checkpoint"
	"CycleScan/internal/classifier"
	"CycleScan/internal/model"
	"CycleScan/internal/provider"
	"CycleScan/internal/ratelimit"
	"CycleScan/internal/scorer"
	"CycleScan/internal/strength"
	"CycleScan/internal/volatility"
)

// progressEvery controls how often the progress line is emitted.
const progressEvery = 25

// Orchestrator drives the batch scan: universe -> filters -> rate-limited
// fetch -> classify/score -> checkpoint -> ranked results.
type Orchestrator struct {
	opts Options

	universe     provider.UniverseProvider
	prices       provider.PriceDataProvider
	fundamentals provider.FundamentalsProvider // nil disables the penalty check
	store        checkpoint.Store
	sinks        []ResultSink

	limiter    *ratelimit.Limiter
	retry      provider.RetryPolicy
	classify   *classifier.Classifier
	score      *scorer.Scorer
	vol        *volatility.Detector
	analyzer   *benchmark.Analyzer
	prevPhases map[string]model.Phase // last known phase per symbol

	state atomic.Int32
}

// New wires an orchestrator. prevPhases may be nil when no prior scan
// history exists.
func New(
	opts Options,
	universe provider.UniverseProvider,
	prices provider.PriceDataProvider,
	fundamentals provider.FundamentalsProvider,
	store checkpoint.Store,
	prevPhases map[string]model.Phase,
	sinks ...ResultSink,
) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		opts:         opts,
		universe:     universe,
		prices:       prices,
		fundamentals: fundamentals,
		store:        store,
		sinks:        sinks,
		limiter:      ratelimit.New(opts.RateInterval),
		retry:        provider.DefaultRetryPolicy(),
		classify:     classifier.New(classifier.DefaultConfig()),
		score:        scorer.New(),
		vol:          volatility.NewDetector(),
		analyzer:     benchmark.NewAnalyzer(),
		prevPhases:   prevPhases,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) { o.state.Store(int32(s)) }

// symbolOutcome is the single message type funneled into the aggregator.
// Exactly one is emitted per symbol pulled off the queue.
type symbolOutcome struct {
	symbol  string
	buy     model.SignalScore
	sell    model.SignalScore
	phase   model.Phase
	scored  bool
	skipped bool
	errored bool
	err     error
}

// Run executes one scan session to completion, pause, or abort. Per-symbol
// failures never stop the scan; only universe/benchmark fetch failure at
// session start or a checkpoint write failure is fatal.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	o.setState(StateRunning)
	started := time.Now()
	runID := uuid.NewString()

	log.Info().
		Str("session", o.opts.SessionID).
		Str("run", runID).
		Str("source", o.prices.Name()).
		Dur("rate_interval", o.opts.RateInterval).
		Int("workers", o.opts.Workers).
		Msg("scan starting")

	session, filtered, err := o.openSession(ctx, runID)
	if err != nil {
		o.setState(StateAborted)
		return nil, err
	}

	benchSeries, err := o.fetchBenchmark(ctx)
	if err != nil {
		o.setState(StateAborted)
		return nil, fmt.Errorf("benchmark %s: %w", o.opts.Benchmark, err)
	}
	benchState, err := o.classify.Classify(benchSeries)
	if err != nil {
		o.setState(StateAborted)
		return nil, fmt.Errorf("classify benchmark %s: %w", o.opts.Benchmark, err)
	}
	rsEngine := strength.NewEngine(benchSeries, 0)

	remaining := session.Remaining()
	log.Info().
		Int("universe", len(session.Universe)).
		Int("already_processed", len(session.Universe)-len(remaining)).
		Int("remaining", len(remaining)).
		Msg("scan session ready")

	result, err := o.runLoop(ctx, session, remaining, rsEngine, benchState, started, filtered)
	if err != nil {
		return nil, err
	}

	for _, sink := range o.sinks {
		if perr := sink.Publish(ctx, result); perr != nil {
			log.Error().Err(perr).Msg("result sink publish failed")
		}
	}
	return result, nil
}

// openSession fetches the universe, applies pre-filters and loads or
// creates the checkpoint.
func (o *Orchestrator) openSession(ctx context.Context, runID string) (*Session, int, error) {
	entries, err := o.universe.FetchUniverse(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch universe: %w", err)
	}
	kept, filtered := applyFilters(entries, o.opts)

	if o.opts.ClearProgress {
		if err := o.store.Clear(o.opts.SessionID); err != nil {
			return nil, 0, fmt.Errorf("clear progress: %w", err)
		}
		log.Info().Str("session", o.opts.SessionID).Msg("checkpoint cleared")
	}

	var cp *model.ScanCheckpoint
	if o.opts.Resume && !o.opts.ClearProgress {
		cp, err = o.store.Load(o.opts.SessionID)
		switch {
		case err == nil:
			cp.RunID = runID
			if cp.TotalUniverseSize != len(kept) {
				log.Warn().
					Int("checkpoint_total", cp.TotalUniverseSize).
					Int("current_total", len(kept)).
					Msg("universe changed since checkpoint; pending symbols rebuilt from current universe")
				cp.TotalUniverseSize = len(kept)
			}
			log.Info().Int("processed", len(cp.ProcessedList)).Msg("resuming from checkpoint")
		case errors.Is(err, checkpoint.ErrNotFound):
			cp = model.NewScanCheckpoint(o.opts.SessionID, runID, len(kept))
		default:
			return nil, 0, fmt.Errorf("load checkpoint: %w", err)
		}
	} else {
		cp = model.NewScanCheckpoint(o.opts.SessionID, runID, len(kept))
	}

	return &Session{
		ID:         o.opts.SessionID,
		RunID:      runID,
		Universe:   kept,
		Checkpoint: cp,
	}, filtered, nil
}

func (o *Orchestrator) fetchBenchmark(ctx context.Context) (*model.PriceSeries, error) {
	var series *model.PriceSeries
	err := o.retry.Do(ctx, func() error {
		if err := o.limiter.Acquire(ctx); err != nil {
			return err
		}
		var ferr error
		series, ferr = o.prices.FetchPrices(ctx, o.opts.Benchmark, o.opts.Lookback)
		o.observeFetch(ferr)
		return ferr
	})
	return series, err
}

// runLoop owns the worker pool and the single aggregation point. Only the
// aggregator touches the checkpoint, the stats and the result buffers, so
// checkpoint writes are never interleaved.
func (o *Orchestrator) runLoop(
	ctx context.Context,
	session *Session,
	remaining []model.UniverseEntry,
	rsEngine *strength.Engine,
	benchState model.PhaseState,
	started time.Time,
	filtered int,
) (*Result, error) {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan model.UniverseEntry)
	outcomes := make(chan symbolOutcome)

	go func() {
		defer close(jobs)
		for _, entry := range remaining {
			select {
			case jobs <- entry:
			case <-workCtx.Done():
				return
			}
		}
	}()

	workers := o.opts.Workers
	if workers > len(remaining) && len(remaining) > 0 {
		workers = len(remaining)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				outcome, ok := o.processSymbol(workCtx, entry, rsEngine)
				if !ok {
					return // cancelled before the fetch was committed
				}
				select {
				case outcomes <- outcome:
				case <-workCtx.Done():
					// The aggregator aborted; drop the outcome.
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	cp := session.Checkpoint
	stats := Stats{
		UniverseSize: len(session.Universe),
		Filtered:     filtered,
		Processed:    len(cp.ProcessedList),
		StartedAt:    started,
	}
	breadth := model.PhaseBreadth{Counts: make(map[model.Phase]int)}
	phases := make(map[string]model.Phase)
	var buys, sells []model.SignalScore
	sinceSave := 0
	handled := 0

	var abortErr error
	for outcome := range outcomes {
		if abortErr != nil {
			continue // drain remaining outcomes after abort
		}

		handled++
		stats.Processed++
		switch {
		case outcome.errored:
			stats.Errored++
			cp.ErrorCount++
		case outcome.skipped:
			stats.Skipped++
		}
		if outcome.scored {
			breadth.Counts[outcome.phase]++
			breadth.Total++
			phases[outcome.symbol] = outcome.phase
			if outcome.buy.Accepted {
				buys = append(buys, outcome.buy)
			}
			if outcome.sell.Accepted {
				sells = append(sells, outcome.sell)
			}
		}
		cp.MarkProcessed(outcome.symbol)

		sinceSave++
		if sinceSave >= o.opts.SaveInterval {
			if err := o.store.Save(cp); err != nil {
				abortErr = fmt.Errorf("checkpoint save: %w", err)
				cancel()
				continue
			}
			sinceSave = 0
		}

		if handled == 1 || handled%progressEvery == 0 {
			o.logProgress(stats.Processed, len(session.Universe), started)
		}
	}

	if abortErr != nil {
		o.setState(StateAborted)
		log.Error().Err(abortErr).
			Str("session", session.ID).
			Int("processed", stats.Processed).
			Msg("scan aborted; clear or repair the checkpoint before re-running")
		return nil, abortErr
	}

	// Workers are done; persist the final position.
	if err := o.store.Save(cp); err != nil {
		o.setState(StateAborted)
		return nil, fmt.Errorf("checkpoint save: %w", err)
	}

	stats.Elapsed = time.Since(started)
	stats.ErrorRate = o.limiter.ErrorRate()

	regime := o.analyzer.Analyze(benchState, breadth)
	if regime.Regime == model.RegimeRiskOff {
		// Demoted candidates stay in the result so sinks can show what the
		// regime vetoed.
		for i := range buys {
			buys[i].Accepted = false
			buys[i].Reasons = append(buys[i].Reasons, "suppressed: market regime RISK-OFF")
		}
		log.Warn().Int("suppressed", len(buys)).Msg("RISK-OFF regime: buy candidates suppressed")
	}
	rankSignals(buys)
	rankSignals(sells)

	result := &Result{
		Buys:   buys,
		Sells:  sells,
		Regime: regime,
		Phases: phases,
		Stats:  stats,
	}

	if ctx.Err() != nil && stats.Processed < len(session.Universe) {
		o.setState(StatePaused)
		result.State = StatePaused
		log.Info().
			Int("processed", stats.Processed).
			Int("total", len(session.Universe)).
			Msg("scan paused; checkpoint saved")
		return result, nil
	}

	// Full completion retires the checkpoint.
	if err := o.store.Clear(session.ID); err != nil {
		log.Error().Err(err).Msg("completed scan could not clear checkpoint")
	}
	o.setState(StateCompleted)
	result.State = StateCompleted
	log.Info().
		Int("processed", stats.Processed).
		Int("buys", len(buys)).
		Int("sells", len(sells)).
		Str("regime", string(regime.Regime)).
		Dur("elapsed", stats.Elapsed).
		Msg("scan completed")
	return result, nil
}

// processSymbol runs the full per-symbol pipeline. The boolean is false
// only when cancellation struck before any work was committed; otherwise
// an outcome is always produced so the symbol is accounted for exactly
// once. Cancellation is never observed mid-computation.
func (o *Orchestrator) processSymbol(ctx context.Context, entry model.UniverseEntry, rsEngine *strength.Engine) (symbolOutcome, bool) {
	out := symbolOutcome{symbol: entry.Symbol}

	var series *model.PriceSeries
	err := o.retry.Do(ctx, func() error {
		if aerr := o.limiter.Acquire(ctx); aerr != nil {
			return aerr
		}
		var ferr error
		series, ferr = o.prices.FetchPrices(ctx, entry.Symbol, o.opts.Lookback)
		o.observeFetch(ferr)
		return ferr
	})
	if err != nil {
		if ctx.Err() != nil {
			return symbolOutcome{}, false
		}
		switch {
		case errors.Is(err, provider.ErrNotFound):
			out.skipped = true
			log.Debug().Str("symbol", entry.Symbol).Msg("symbol not found, skipped")
		default:
			out.errored = true
			out.err = err
			log.Debug().Err(err).Str("symbol", entry.Symbol).Msg("fetch failed, skipped")
		}
		return out, true
	}

	state, err := o.classify.Classify(series)
	if err != nil {
		// Fewer than the minimum bars is not an error for rate-limit
		// purposes; the symbol just lacks history.
		out.skipped = true
		log.Debug().Err(err).Str("symbol", entry.Symbol).Msg("classification skipped")
		return out, true
	}

	rs, err := rsEngine.Compute(series)
	if err != nil {
		out.skipped = true
		log.Debug().Err(err).Str("symbol", entry.Symbol).Msg("rs alignment skipped")
		return out, true
	}

	volState := o.vol.Detect(series)
	volumeRatio, _ := calculator.VolumeRatio(series.Volumes(), 20)

	input := scorer.Input{
		Symbol:        entry.Symbol,
		Series:        series,
		Price:         series.LastClose(),
		State:         state,
		RS:            rs,
		Vol:           volState,
		PreviousPhase: o.prevPhases[entry.Symbol],
		VolumeRatio:   volumeRatio,
	}

	// Fundamentals only corroborate phase 1/2 buy candidates.
	if o.fundamentals != nil &&
		(state.Phase == model.PhaseBasing || state.Phase == model.PhaseUptrend) {
		input.Fundamentals = o.fetchFundamentals(ctx, entry.Symbol)
	}

	out.buy = o.score.ScoreBuy(input)
	out.sell = o.score.ScoreSell(input)
	out.phase = state.Phase
	out.scored = true
	return out, true
}

// fetchFundamentals is best effort: any failure just drops the penalty
// check for this symbol.
func (o *Orchestrator) fetchFundamentals(ctx context.Context, symbol string) *model.FundamentalsSummary {
	if err := o.limiter.Acquire(ctx); err != nil {
		return nil
	}
	summary, err := o.fundamentals.FetchFundamentals(ctx, symbol)
	if err != nil {
		if !errors.Is(err, provider.ErrUnavailable) {
			o.observeFetch(err)
			log.Debug().Err(err).Str("symbol", symbol).Msg("fundamentals fetch failed")
		}
		return nil
	}
	o.observeFetch(nil)
	return summary
}

// observeFetch feeds one fetch outcome into the adaptive limiter. Missing
// symbols are data absence, not provider trouble.
func (o *Orchestrator) observeFetch(err error) {
	switch {
	case err == nil:
		o.limiter.Observe(false)
	case errors.Is(err, provider.ErrRateLimited):
		o.limiter.ObserveRateLimited()
	case errors.Is(err, provider.ErrNotFound):
		o.limiter.Observe(false)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Cancellation is not a provider failure.
	default:
		o.limiter.Observe(true)
	}
}

// logProgress emits the fixed operator progress line:
// processed/total (percent%) | rate req/sec | error_rate% | eta.
func (o *Orchestrator) logProgress(processed, total int, started time.Time) {
	elapsed := time.Since(started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(processed) / elapsed
	}
	eta := time.Duration(0)
	if rate > 0 {
		eta = time.Duration(float64(total-processed)/rate) * time.Second
	}
	pct := 0.0
	if total > 0 {
		pct = float64(processed) / float64(total) * 100
	}
	log.Info().Msgf("%d/%d (%.1f%%) | %.2f req/sec | %.1f%% errors | ETA %s",
		processed, total, pct, rate, o.limiter.ErrorRate()*100, eta.Round(time.Second))
}

// rankSignals sorts descending by score with a stable symbol tie-break.
func rankSignals(signals []model.SignalScore) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Total != signals[j].Total {
			return signals[i].Total > signals[j].Total
		}
		return signals[i].Symbol < signals[j].Symbol
	})
}
