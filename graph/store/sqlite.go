package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It records steps in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Local runs that should leave an inspectable trail
//
// Features:
//   - Single file database (e.g., "./runs.db")
//   - Auto-migration on first use
//   - WAL mode for concurrent reads
//
// Schema:
//   - stategraph_steps: one row per (run_id, step)
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./runs.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// Example:
//
//	st, err := store.NewSQLiteStore("./runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time; a single connection also keeps
	// ":memory:" databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	const stepsTable = `
		CREATE TABLE IF NOT EXISTS stategraph_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			next_node TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE(run_id, step)
		)
	`
	if _, err := s.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create stategraph_steps table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// SaveStep persists a step. A row with the same run ID and step number is
// replaced.
func (s *SQLiteStore) SaveStep(ctx context.Context, rec StepRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	const query = `
		INSERT INTO stategraph_steps (run_id, step, node_id, next_node, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			node_id = excluded.node_id,
			next_node = excluded.next_node,
			state = excluded.state,
			created_at = excluded.created_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.RunID, rec.Step, rec.NodeID, rec.Next, string(rec.State), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// Steps returns every step of a run ordered by step number.
func (s *SQLiteStore) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	const query = `
		SELECT run_id, step, node_id, next_node, state, created_at
		FROM stategraph_steps
		WHERE run_id = ?
		ORDER BY step ASC
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	return collectSteps(rows)
}

// LoadLatest returns the step with the highest step number of a run.
func (s *SQLiteStore) LoadLatest(ctx context.Context, runID string) (StepRecord, error) {
	if err := s.checkOpen(); err != nil {
		return StepRecord{}, err
	}

	const query = `
		SELECT run_id, step, node_id, next_node, state, created_at
		FROM stategraph_steps
		WHERE run_id = ?
		ORDER BY step DESC
		LIMIT 1
	`
	rec, err := scanStep(s.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return StepRecord{}, ErrNotFound
	}
	if err != nil {
		return StepRecord{}, fmt.Errorf("failed to load latest step: %w", err)
	}
	return rec, nil
}

// Close closes the database connection.
//
// After Close, all operations return ErrClosed. Calling Close multiple times
// is safe.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStep(row scanner) (StepRecord, error) {
	var (
		rec     StepRecord
		state   string
		created int64
	)
	if err := row.Scan(&rec.RunID, &rec.Step, &rec.NodeID, &rec.Next, &state, &created); err != nil {
		return StepRecord{}, err
	}
	rec.State = []byte(state)
	rec.CreatedAt = time.Unix(0, created)
	return rec, nil
}

func collectSteps(rows *sql.Rows) ([]StepRecord, error) {
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		rec, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
