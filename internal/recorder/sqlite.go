package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"DeclineWatch/internal/model"
)

// marketAll keys the whole-run histogram in bucket_counts.
const marketAll = "ALL"

// SQLiteRecorder persists analysis runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			selection   TEXT,
			period_days INTEGER,
			requested   INTEGER,
			analyzed    INTEGER,
			excluded    INTEGER,
			mean_pct    REAL,
			median_pct  REAL,
			stddev_pct  REAL,
			min_pct     REAL,
			max_pct     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS decline_records (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL REFERENCES runs(run_id),
			code              TEXT NOT NULL,
			name              TEXT,
			market            TEXT,
			drawdown_pct      REAL,
			peak_date         INTEGER,
			trough_date       INTEGER,
			peak_price        REAL,
			trough_price      REAL,
			period_return_pct REAL,
			current_price     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON decline_records(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_code ON decline_records(code)`,

		`CREATE TABLE IF NOT EXISTS bucket_counts (
			run_id   TEXT NOT NULL REFERENCES runs(run_id),
			market   TEXT NOT NULL,
			position INTEGER NOT NULL,
			label    TEXT NOT NULL,
			count    INTEGER NOT NULL,
			PRIMARY KEY (run_id, market, label)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullable(v model.StatValue) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.Value, Valid: v.Defined}
}

func statValue(n sql.NullFloat64) model.StatValue {
	if !n.Valid {
		return model.Undefined()
	}
	return model.Defined(n.Float64)
}

// RecordRun writes the run headline, every record and the bucket histograms
// in one transaction.
func (r *SQLiteRecorder) RecordRun(result *model.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s := result.Summary()
	_, err = tx.Exec(`INSERT INTO runs
		(run_id, started_at, finished_at, selection, period_days,
		 requested, analyzed, excluded,
		 mean_pct, median_pct, stddev_pct, min_pct, max_pct)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.RunID, s.StartedAt.Unix(), s.FinishedAt.Unix(), s.Selection, s.PeriodDays,
		s.Requested, s.Analyzed, s.Excluded,
		nullable(s.Mean), nullable(s.Median), nullable(s.StdDev), nullable(s.Min), nullable(s.Max),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO decline_records
		(run_id, code, name, market, drawdown_pct, peak_date, trough_date,
		 peak_price, trough_price, period_return_pct, current_price)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare records: %w", err)
	}
	defer stmt.Close()
	for _, rec := range result.Records {
		if _, err := stmt.Exec(s.RunID, rec.Stock.Code, rec.Stock.Name, string(rec.Stock.Market),
			rec.DrawdownPct, rec.PeakDate.Unix(), rec.TroughDate.Unix(),
			rec.PeakPrice, rec.TroughPrice, rec.PeriodReturnPct, rec.CurrentPrice); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Stock.Code, err)
		}
	}

	if err := insertBuckets(tx, s.RunID, marketAll, result.Stats); err != nil {
		return err
	}
	for m, st := range result.MarketBreakdown {
		if err := insertBuckets(tx, s.RunID, string(m), st); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertBuckets(tx *sql.Tx, runID, market string, st model.MarketStats) error {
	for i, label := range st.Labels {
		_, err := tx.Exec(`INSERT INTO bucket_counts (run_id, market, position, label, count)
			VALUES (?,?,?,?,?)`, runID, market, i, label, st.Histogram[label])
		if err != nil {
			return fmt.Errorf("insert bucket %s/%s: %w", market, label, err)
		}
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) ListRuns(limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT run_id, started_at, finished_at, selection, period_days,
		requested, analyzed, excluded, mean_pct, median_pct, stddev_pct, min_pct, max_pct
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.RunSummary{}
	for rows.Next() {
		var s model.RunSummary
		var started, finished int64
		var mean, median, stddev, lo, hi sql.NullFloat64
		if err := rows.Scan(&s.RunID, &started, &finished, &s.Selection, &s.PeriodDays,
			&s.Requested, &s.Analyzed, &s.Excluded, &mean, &median, &stddev, &lo, &hi); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt = time.Unix(started, 0).UTC()
		s.FinishedAt = time.Unix(finished, 0).UTC()
		s.Mean, s.Median, s.StdDev = statValue(mean), statValue(median), statValue(stddev)
		s.Min, s.Max = statValue(lo), statValue(hi)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// BucketCounts returns the stored histogram of a run for one market, or for
// the whole run when market is empty.
func (r *SQLiteRecorder) BucketCounts(runID, market string) (labels []string, counts map[string]int, err error) {
	if market == "" {
		market = marketAll
	}
	rows, err := r.db.Query(`SELECT label, count FROM bucket_counts
		WHERE run_id = ? AND market = ? ORDER BY position`, runID, market)
	if err != nil {
		return nil, nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	counts = make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, nil, fmt.Errorf("scan bucket: %w", err)
		}
		labels = append(labels, label)
		counts[label] = n
	}
	return labels, counts, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
