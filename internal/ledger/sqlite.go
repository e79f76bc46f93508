package ledger

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/sitehead/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the ledger at dbPath.
// Use ":memory:" for an in-memory ledger.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create ledger directory").
				WithContext("path", dbPath).Build()
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryState, "open ledger database").
			WithContext("path", dbPath).Build()
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ferrors.WrapError(err, ferrors.CategoryState, "initialize ledger schema").
			WithContext("path", dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		page TEXT PRIMARY KEY,
		input_hash TEXT NOT NULL,
		output_hash TEXT NOT NULL,
		signature TEXT NOT NULL,
		processed_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		unchanged INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Lookup returns the entry for page, if any.
func (s *SQLiteStore) Lookup(ctx context.Context, page string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e Entry
	var processed int64
	err := s.db.QueryRowContext(ctx,
		"SELECT page, input_hash, output_hash, signature, processed_at FROM pages WHERE page = ?", page,
	).Scan(&e.Page, &e.InputHash, &e.OutputHash, &e.Signature, &processed)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, ferrors.WrapError(err, ferrors.CategoryState, "query page entry").
			WithContext("page", page).Build()
	}
	e.ProcessedAt = time.UnixMilli(processed)
	return e, true, nil
}

// Record inserts or replaces the entry for e.Page.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (page, input_hash, output_hash, signature, processed_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(page) DO UPDATE SET input_hash = excluded.input_hash, output_hash = excluded.output_hash,
			signature = excluded.signature, processed_at = excluded.processed_at`,
		e.Page, e.InputHash, e.OutputHash, e.Signature, e.ProcessedAt.UnixMilli(),
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryState, "record page entry").
			WithContext("page", e.Page).Build()
	}
	return nil
}

// Forget removes the entry for page. Forgetting an unknown page is not an error.
func (s *SQLiteStore) Forget(ctx context.Context, page string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM pages WHERE page = ?", page); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryState, "forget page entry").
			WithContext("page", page).Build()
	}
	return nil
}

// RecordRun appends r to the run history.
func (s *SQLiteStore) RecordRun(ctx context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, duration_ms, processed, unchanged, skipped, failed, outcome) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.StartedAt.UnixMilli(), r.Duration.Milliseconds(), r.Processed, r.Unchanged, r.Skipped, r.Failed, r.Outcome,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryState, "record run").
			WithContext("run_id", r.ID).Build()
	}
	return nil
}

// Runs returns up to limit runs, most recent first. A limit <= 0 returns all.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, duration_ms, processed, unchanged, skipped, failed, outcome FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryState, "query runs").Build()
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, durationMS int64
		if err := rows.Scan(&r.ID, &started, &durationMS, &r.Processed, &r.Unchanged, &r.Skipped, &r.Failed, &r.Outcome); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryState, "scan run").Build()
		}
		r.StartedAt = time.UnixMilli(started)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryState, "iterate runs").Build()
	}
	return runs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
