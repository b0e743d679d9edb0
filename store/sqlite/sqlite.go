/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Stands in for the host ledger's world state when the engine runs as a
  standalone service. The schema is a single key/value table; the engine
  owns all meaning of keys and values.

KEY TABLE:
  state: state_key TEXT PRIMARY KEY, state_value BLOB, updated_at TEXT

PREFIX SCANS:
  ScanPrefix uses a half-open key range [prefix, prefixEnd) so the primary
  key index serves it. Keys compare with SQLite's default BINARY
  collation, which matches Go string ordering.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The pool is limited to a single
  connection so ":memory:" databases are shared by every call.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/trade-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- World state (key/value, keys namespaced by the engine)
	CREATE TABLE IF NOT EXISTS state (
		state_key TEXT PRIMARY KEY,
		state_value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STATE STORE (ledger.Store interface)
// =============================================================================

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT state_value FROM state WHERE state_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any existing value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO state (state_key, state_value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET state_value = excluded.state_value, updated_at = excluded.updated_at
	`
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// ScanPrefix visits every pair whose key starts with prefix, in key order.
// Rows are read fully before fn is called, so fn may use the store.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, fn ledger.ScanFunc) error {
	rows, err := s.scan(ctx, prefix)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r.key, r.value); err != nil {
			return err
		}
	}
	return nil
}

type row struct {
	key   string
	value []byte
}

func (s *Store) scan(ctx context.Context, prefix string) ([]row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rows *sql.Rows
		err  error
	)
	if end, ok := prefixEnd(prefix); ok {
		rows, err = s.db.QueryContext(ctx,
			"SELECT state_key, state_value FROM state WHERE state_key >= ? AND state_key < ? ORDER BY state_key", prefix, end)
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT state_key, state_value FROM state WHERE state_key >= ? ORDER BY state_key", prefix)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// prefixEnd returns the smallest string greater than every string with the
// given prefix. ok is false when no such bound exists (empty prefix or all
// 0xff bytes), meaning the scan is unbounded above.
func prefixEnd(prefix string) (string, bool) {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1]), true
		}
	}
	return "", false
}
