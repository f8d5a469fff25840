package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mpsm/bsprof/internal/profile"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  INTEGER NOT NULL,
	command     TEXT    NOT NULL,
	jobs        INTEGER NOT NULL,
	exit_code   INTEGER NOT NULL,
	elapsed_ns  INTEGER NOT NULL,
	user_ns     INTEGER NOT NULL,
	system_ns   INTEGER NOT NULL,
	max_rss     INTEGER NOT NULL,
	interval_ns INTEGER NOT NULL,
	samples     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	cpu_name    TEXT    NOT NULL,
	os          TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS datapoints (
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	elapsed_ns  INTEGER NOT NULL,
	cpu_usage   REAL    NOT NULL,
	memory_used INTEGER NOT NULL,
	load1       REAL,
	load5       REAL,
	load15      REAL,
	cpus        TEXT    NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         int64
	StartedAt  time.Time
	Command    []string
	Jobs       int
	ExitCode   int
	Elapsed    time.Duration
	UserTime   time.Duration
	SystemTime time.Duration
	MaxRSS     int64
	Samples    int
	Skipped    int
}

// SQLiteStore keeps a history of profiled runs in an SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// One writer at a time; the profiler never needs more.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveRecord stores rec and its samples in one transaction and returns the
// new run ID.
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec profile.Record) (id int64, err error) {
	command, err := json.Marshal(rec.Command)
	if err != nil {
		return 0, fmt.Errorf("encoding command: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs
		(started_at, command, jobs, exit_code, elapsed_ns, user_ns, system_ns, max_rss,
		 interval_ns, samples, skipped, cpu_name, os)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Series.Start.UnixNano(), string(command), rec.Jobs, rec.Result.ExitCode,
		int64(rec.Result.Elapsed), int64(rec.Result.Rusage.UserTime), int64(rec.Result.Rusage.SystemTime),
		rec.Result.Rusage.MaxRSS, int64(rec.Series.Interval), rec.Series.Len(), rec.Series.Skipped,
		rec.SystemInfo.CPUName, rec.SystemInfo.OS)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO datapoints
		(run_id, seq, elapsed_ns, cpu_usage, memory_used, load1, load5, load15, cpus)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing datapoint insert: %w", err)
	}
	defer stmt.Close()

	for i, smp := range rec.Series.Samples {
		cpus, err := json.Marshal(smp.CPUsUtilization)
		if err != nil {
			return 0, fmt.Errorf("encoding per-core usage: %w", err)
		}
		var l1, l5, l15 sql.NullFloat64
		if smp.LoadAvg != nil {
			l1 = sql.NullFloat64{Float64: smp.LoadAvg.Load1, Valid: true}
			l5 = sql.NullFloat64{Float64: smp.LoadAvg.Load5, Valid: true}
			l15 = sql.NullFloat64{Float64: smp.LoadAvg.Load15, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, i, int64(smp.Elapsed), smp.CPUUsage,
			int64(smp.MemoryUsed), l1, l5, l15, string(cpus)); err != nil {
			return 0, fmt.Errorf("inserting datapoint %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Runs lists the stored runs, oldest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, command, jobs, exit_code,
		elapsed_ns, user_ns, system_ns, max_rss, samples, skipped FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r                         RunSummary
			started                   int64
			command                   string
			elapsed, userNs, systemNs int64
		)
		if err := rows.Scan(&r.ID, &started, &command, &r.Jobs, &r.ExitCode,
			&elapsed, &userNs, &systemNs, &r.MaxRSS, &r.Samples, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(command), &r.Command); err != nil {
			return nil, fmt.Errorf("decoding command of run %d: %w", r.ID, err)
		}
		r.StartedAt = time.Unix(0, started)
		r.Elapsed = time.Duration(elapsed)
		r.UserTime = time.Duration(userNs)
		r.SystemTime = time.Duration(systemNs)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Datapoints returns the samples of one run in the order they were taken.
func (s *SQLiteStore) Datapoints(ctx context.Context, runID int64) ([]profile.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT elapsed_ns, cpu_usage, memory_used, load1, load5, load15, cpus
		FROM datapoints WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying datapoints: %w", err)
	}
	defer rows.Close()

	var out []profile.Sample
	for rows.Next() {
		var (
			smp          profile.Sample
			elapsed, mem int64
			l1, l5, l15  sql.NullFloat64
			cpus         string
		)
		if err := rows.Scan(&elapsed, &smp.CPUUsage, &mem, &l1, &l5, &l15, &cpus); err != nil {
			return nil, fmt.Errorf("scanning datapoint: %w", err)
		}
		smp.Elapsed = time.Duration(elapsed)
		smp.MemoryUsed = uint64(mem)
		if l1.Valid {
			smp.LoadAvg = &profile.LoadAvg{Load1: l1.Float64, Load5: l5.Float64, Load15: l15.Float64}
		}
		if err := json.Unmarshal([]byte(cpus), &smp.CPUsUtilization); err != nil {
			return nil, fmt.Errorf("decoding per-core usage: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}
