package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"CycleScan/internal/model"
	"CycleScan/internal/scan"
)

// SQLiteRecorder persists scan runs, emitted signals and per-symbol phase
// history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so ad-hoc queries can read while a scan is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			state          TEXT,
			universe_size  INTEGER,
			filtered       INTEGER,
			processed      INTEGER,
			skipped        INTEGER,
			errored        INTEGER,
			elapsed_secs   REAL,
			error_rate     REAL,
			regime         TEXT,
			regime_strength TEXT,
			breadth        REAL,
			bench_phase    INTEGER,
			bench_confidence REAL,
			buy_count      INTEGER,
			sell_count     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON scan_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          INTEGER NOT NULL,
			timestamp       INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			kind            TEXT NOT NULL,
			total           REAL,
			penalty         REAL,
			accepted        INTEGER,
			severity        TEXT,
			phase           INTEGER,
			price           REAL,
			breakout_level  REAL,
			breakdown_level REAL,
			reasons         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS phase_history (
			symbol     TEXT PRIMARY KEY,
			phase      INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Publish records one completed (or paused) scan run. It implements
// scan.ResultSink.
func (r *SQLiteRecorder) Publish(ctx context.Context, result *scan.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	st := result.Stats
	rg := result.Regime

	res, err := tx.Exec(`INSERT INTO scan_runs
		(timestamp, state, universe_size, filtered, processed, skipped, errored,
		 elapsed_secs, error_rate, regime, regime_strength, breadth,
		 bench_phase, bench_confidence, buy_count, sell_count)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		now, result.State.String(), st.UniverseSize, st.Filtered, st.Processed,
		st.Skipped, st.Errored, st.Elapsed.Seconds(), st.ErrorRate,
		string(rg.Regime), rg.Strength, rg.Breadth,
		int(rg.BenchmarkState.Phase), rg.BenchmarkState.Confidence,
		len(result.Buys), len(result.Sells),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	for _, sig := range result.Buys {
		if err := insertSignal(tx, runID, now, sig); err != nil {
			return err
		}
	}
	for _, sig := range result.Sells {
		if err := insertSignal(tx, runID, now, sig); err != nil {
			return err
		}
	}

	for symbol, phase := range result.Phases {
		if _, err := tx.Exec(`INSERT INTO phase_history (symbol, phase, updated_at)
			VALUES (?,?,?)
			ON CONFLICT(symbol) DO UPDATE SET phase=excluded.phase, updated_at=excluded.updated_at`,
			symbol, int(phase), now,
		); err != nil {
			return fmt.Errorf("upsert phase %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug().Int64("run", runID).Int("phases", len(result.Phases)).Msg("scan run recorded")
	return nil
}

func insertSignal(tx *sql.Tx, runID int64, ts int64, sig model.SignalScore) error {
	accepted := 0
	if sig.Accepted {
		accepted = 1
	}
	_, err := tx.Exec(`INSERT INTO signals
		(run_id, timestamp, symbol, kind, total, penalty, accepted, severity,
		 phase, price, breakout_level, breakdown_level, reasons)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		runID, ts, sig.Symbol, string(sig.Kind), sig.Total, sig.Penalty,
		accepted, sig.Severity, int(sig.Phase), sig.Price,
		sig.BreakoutLevel, sig.BreakdownLevel, strings.Join(sig.Reasons, "; "),
	)
	if err != nil {
		return fmt.Errorf("insert signal %s: %w", sig.Symbol, err)
	}
	return err
}

// PreviousPhases loads the latest recorded phase per symbol.
func (r *SQLiteRecorder) PreviousPhases() (map[string]model.Phase, error) {
	rows, err := r.db.Query(`SELECT symbol, phase FROM phase_history`)
	if err != nil {
		return nil, fmt.Errorf("query phase history: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Phase)
	for rows.Next() {
		var symbol string
		var phase int
		if err := rows.Scan(&symbol, &phase); err != nil {
			return nil, fmt.Errorf("scan phase row: %w", err)
		}
		out[symbol] = model.Phase(phase)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
