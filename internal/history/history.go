// Package history records pipeline runs in a SQL store (sqlite or postgres).
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Timestamps are stored as fixed-width UTC text so they sort and scan the
// same way on both backends.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Config selects the backend. Driver is sqlite or postgres.
type Config struct {
	Driver string
	DSN    string
}

// Run is one recorded pipeline invocation.
type Run struct {
	ID           string    `db:"id" json:"id"`
	File         string    `db:"file" json:"file"`
	Command      string    `db:"command" json:"command"`
	Rows         int       `db:"n_rows" json:"rows"`
	Cols         int       `db:"n_cols" json:"cols"`
	Health       float64   `db:"health" json:"health"`
	MissingPct   float64   `db:"missing_pct" json:"missing_pct"`
	DuplicatePct float64   `db:"duplicate_pct" json:"duplicate_pct"`
	AnomalyPct   float64   `db:"anomaly_pct" json:"anomaly_pct"`
	Flagged      int       `db:"flagged" json:"flagged"`
	CreatedAt    time.Time `db:"-" json:"created_at"`
}

type runRow struct {
	Run
	Created string `db:"created_at"`
}

// Filter narrows List. Zero Limit means 50.
type Filter struct {
	File  string
	Limit int
}

// Store is a run-history database.
type Store struct {
	db *sqlx.DB
}

// Open connects to the configured backend and ensures the schema exists.
// For sqlite the parent directory of the DSN is created.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var driver string
	switch cfg.Driver {
	case "sqlite", "":
		driver = "sqlite"
		if dir := filepath.Dir(cfg.DSN); cfg.DSN != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history dir: %w", err)
			}
		}
	case "postgres":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unknown history driver %q (use sqlite or postgres)", cfg.Driver)
	}
	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if driver == "sqlite" {
		// a single connection keeps :memory: databases and file locks consistent
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect history: %w", err)
	}
	s := &Store{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the runs table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		file TEXT NOT NULL,
		command TEXT NOT NULL,
		n_rows INTEGER NOT NULL,
		n_cols INTEGER NOT NULL,
		health DOUBLE PRECISION NOT NULL,
		missing_pct DOUBLE PRECISION NOT NULL,
		duplicate_pct DOUBLE PRECISION NOT NULL,
		anomaly_pct DOUBLE PRECISION NOT NULL,
		flagged INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// Record inserts a run, assigning an ID and creation time when unset.
func (s *Store) Record(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	query := s.db.Rebind(`INSERT INTO runs (
		id, file, command, n_rows, n_cols, health, missing_pct, duplicate_pct, anomaly_pct, flagged, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.File, r.Command, r.Rows, r.Cols, r.Health, r.MissingPct, r.DuplicatePct, r.AnomalyPct, r.Flagged,
		r.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, file, command, n_rows, n_cols, health, missing_pct, duplicate_pct, anomaly_pct, flagged, created_at FROM runs`
	var args []any
	if f.File != "" {
		query += ` WHERE file = ?`
		args = append(args, f.File)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]Run, len(rows))
	for i, row := range rows {
		run := row.Run
		t, err := time.Parse(timeLayout, row.Created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for run %s: %w", run.ID, err)
		}
		run.CreatedAt = t
		out[i] = run
	}
	return out, nil
}
