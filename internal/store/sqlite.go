package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"finvestigator/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ForecastRunStore = (*SQLiteStore)(nil)

// SQLiteStore implements ForecastRunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, switches it
// to WAL mode and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol        TEXT NOT NULL,
			years         INTEGER NOT NULL,
			history_rows  INTEGER NOT NULL,
			forecast_rows INTEGER NOT NULL,
			last_close    REAL,
			final_yhat    REAL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecast_runs_created ON forecast_runs(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a forecast run. A zero CreatedAt is set to now.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.ForecastRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO forecast_runs (symbol, years, history_rows, forecast_rows, last_close, final_yhat, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Symbol, run.Years, run.HistoryRows, run.ForecastRows,
		run.LastClose, run.FinalYHat, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert forecast run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("forecast run id: %w", err)
	}
	run.ID = id
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, years, history_rows, forecast_rows, last_close, final_yhat, created_at
		 FROM forecast_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query forecast runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ForecastRun
	for rows.Next() {
		var (
			r         domain.ForecastRun
			createdMs int64
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Years, &r.HistoryRows, &r.ForecastRows,
			&r.LastClose, &r.FinalYHat, &createdMs); err != nil {
			return nil, fmt.Errorf("scan forecast run: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
