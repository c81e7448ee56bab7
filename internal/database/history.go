package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pgnscraper/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "pgnscraper.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB is the SQLite run history.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		seeds TEXT NOT NULL,
		downloaded INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		interrupted INTEGER NOT NULL DEFAULT 0,
		failure_file TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seed TEXT NOT NULL,
		url TEXT NOT NULL,
		outcome TEXT NOT NULL,
		path TEXT,
		bytes INTEGER,
		attempts INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url);
	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		code INTEGER,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_failures_url ON failures(url);
	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a run with its outcomes and failures in one transaction
// and returns the new run ID.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.RunReport) (int64, error) {
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run: %w", err)
	}

	seeds := make([]string, len(run.Seeds))
	for i, s := range run.Seeds {
		seeds[i] = s.Seed
	}
	downloaded, skipped, failed := run.Totals()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, seeds, downloaded, skipped, failed, interrupted, failure_file, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		strings.Join(seeds, "\n"),
		downloaded, skipped, failed,
		run.Interrupted,
		run.FailureFile,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, seed := range run.Seeds {
		for _, o := range seed.Outcomes {
			if o.Kind == model.OutcomeCancelled {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO downloads (run_id, seed, url, outcome, path, bytes, attempts)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			`, runID, seed.Seed, o.URL, o.Kind.String(), o.Path, o.Bytes, o.Attempts); err != nil {
				return 0, fmt.Errorf("failed to insert download: %w", err)
			}
		}
	}

	for _, e := range run.Failures {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO failures (run_id, url, kind, code, reason)
		VALUES (?, ?, ?, ?, ?)
		`, runID, e.URL, e.Failure.Kind.String(), e.Failure.Code, e.Failure.Reason); err != nil {
			return 0, fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RunSummary is one row of the run list.
type RunSummary struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	Seeds       []string
	Downloaded  int
	Skipped     int
	Failed      int
	Interrupted bool
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, started_at, finished_at, seeds, downloaded, skipped, failed, interrupted
	FROM runs
	ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r                 RunSummary
			started, finished string
			seeds             string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &seeds, &r.Downloaded, &r.Skipped, &r.Failed, &r.Interrupted); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		if seeds != "" {
			r.Seeds = strings.Split(seeds, "\n")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the full report of a stored run.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}

// RunFailures returns the failures recorded for a run, sorted by URL.
func (h *HistoryDB) RunFailures(ctx context.Context, runID int64) ([]model.FailureEntry, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT url, kind, code, reason FROM failures
	WHERE run_id = ?
	ORDER BY url
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	var entries []model.FailureEntry
	for rows.Next() {
		var (
			e      model.FailureEntry
			kind   string
			code   sql.NullInt64
			reason sql.NullString
		)
		if err := rows.Scan(&e.URL, &kind, &code, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		k, err := model.ParseFailureKind(kind)
		if err != nil {
			return nil, err
		}
		e.Failure = model.Failure{Kind: k, Code: int(code.Int64), Reason: reason.String}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FailureCount is how often a URL has failed across runs.
type FailureCount struct {
	URL      string
	Runs     int
	LastKind model.FailureKind
	LastSeen time.Time
}

// RecurringFailures returns URLs that failed in at least minRuns runs,
// most frequent first.
func (h *HistoryDB) RecurringFailures(ctx context.Context, minRuns int) ([]FailureCount, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT f.url, COUNT(DISTINCT f.run_id) AS n,
		(SELECT f2.kind FROM failures f2 WHERE f2.url = f.url ORDER BY f2.run_id DESC LIMIT 1),
		MAX(r.started_at)
	FROM failures f JOIN runs r ON r.id = f.run_id
	GROUP BY f.url
	HAVING n >= ?
	ORDER BY n DESC, f.url
	`, minRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring failures: %w", err)
	}
	defer rows.Close()

	var out []FailureCount
	for rows.Next() {
		var (
			fc       FailureCount
			kind     string
			lastSeen string
		)
		if err := rows.Scan(&fc.URL, &fc.Runs, &kind, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan failure count: %w", err)
		}
		k, err := model.ParseFailureKind(kind)
		if err != nil {
			return nil, err
		}
		fc.LastKind = k
		fc.LastSeen = parseTimestamp(lastSeen)
		out = append(out, fc)
	}
	return out, rows.Err()
}

// timestampLayout is fixed-width so stored values sort lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats lists the formats SQLite may hand back.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
