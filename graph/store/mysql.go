package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for:
//   - Shared audit trails written by many processes
//   - Long-lived run history queried after the fact
//
// Schema:
//   - stategraph_steps: one row per (run_id, step)
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
//
// Example DSNs:
//
//	user:password@tcp(localhost:3306)/workflows
//	user:password@/workflows (uses localhost:3306)
//
// Security Warning:
//
//	NEVER hardcode credentials in your source code. Use environment variables:
//	    dsn := os.Getenv("STATEGRAPH_MYSQL_DSN")
//	    st, err := store.NewMySQLStore(dsn)
//
// The store creates its table if it does not exist and configures connection
// pooling.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore{db: db}
	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

// mysqlConfig parses dsn and applies the settings the store relies on.
func mysqlConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("mysql: empty DSN")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	return cfg, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	const stepsTable = `
		CREATE TABLE IF NOT EXISTS stategraph_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			next_node VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_run_id (run_id),
			UNIQUE KEY unique_run_step (run_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create stategraph_steps table: %w", err)
	}
	return nil
}

func (m *MySQLStore) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

const mysqlUpsertStep = `
	INSERT INTO stategraph_steps (run_id, step, node_id, next_node, state, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		node_id = VALUES(node_id),
		next_node = VALUES(next_node),
		state = VALUES(state),
		created_at = VALUES(created_at)
`

// SaveStep persists a step. A row with the same run ID and step number is
// replaced.
func (m *MySQLStore) SaveStep(ctx context.Context, rec StepRecord) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	_, err := m.db.ExecContext(ctx, mysqlUpsertStep,
		rec.RunID, rec.Step, rec.NodeID, rec.Next, rec.State, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// SaveSteps atomically saves several steps in one transaction. Either every
// record is saved or none is.
func (m *MySQLStore) SaveSteps(ctx context.Context, recs []StepRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return m.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, mysqlUpsertStep)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UnixNano()
		for _, rec := range recs {
			if _, err := stmt.ExecContext(ctx, rec.RunID, rec.Step, rec.NodeID, rec.Next, rec.State, now); err != nil {
				return fmt.Errorf("failed to save step %d of run %s: %w", rec.Step, rec.RunID, err)
			}
		}
		return nil
	})
}

// Steps returns every step of a run ordered by step number.
func (m *MySQLStore) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	const query = `
		SELECT run_id, step, node_id, next_node, state, created_at
		FROM stategraph_steps
		WHERE run_id = ?
		ORDER BY step ASC
	`
	rows, err := m.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	return collectSteps(rows)
}

// LoadLatest returns the step with the highest step number of a run.
func (m *MySQLStore) LoadLatest(ctx context.Context, runID string) (StepRecord, error) {
	if err := m.checkOpen(); err != nil {
		return StepRecord{}, err
	}
	const query = `
		SELECT run_id, step, node_id, next_node, state, created_at
		FROM stategraph_steps
		WHERE run_id = ?
		ORDER BY step DESC
		LIMIT 1
	`
	rec, err := scanStep(m.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return StepRecord{}, ErrNotFound
	}
	if err != nil {
		return StepRecord{}, fmt.Errorf("failed to load latest step: %w", err)
	}
	return rec, nil
}

// WithTransaction executes fn within a database transaction. The transaction
// is rolled back if fn returns an error and committed otherwise.
func (m *MySQLStore) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection. Calling Close multiple times is safe.
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

// Stats returns database connection pool statistics.
func (m *MySQLStore) Stats() sql.DBStats {
	return m.db.Stats()
}
