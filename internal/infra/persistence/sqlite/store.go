// Package sqlite persists the in-memory state to a single SQLite table as
// JSON blobs, one row per collection bucket. It snapshots the full state
// after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"standcore/internal/infra/persistence/memory"
	"standcore/pkg/domain"
)

type (
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// Snapshot aliases the serialisable in-memory snapshot.
	Snapshot = memory.Snapshot
)

var _ domain.PersistentStore = (*Store)(nil)

var buckets = []string{"ingredients", "menu_items", "sales"}

// Store wraps the in-memory store with SQLite snapshot persistence.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *RulesEngine) (*Store, error) {
	if path == "" {
		path = "standcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := Snapshot{}
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		found = true
		switch bucket {
		case "ingredients":
			if err := json.Unmarshal(payload, &snapshot.Ingredients); err != nil {
				return fmt.Errorf("decode ingredients: %w", err)
			}
		case "menu_items":
			if err := json.Unmarshal(payload, &snapshot.MenuItems); err != nil {
				return fmt.Errorf("decode menu items: %w", err)
			}
		case "sales":
			if err := json.Unmarshal(payload, &snapshot.Sales); err != nil {
				return fmt.Errorf("decode sales: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if !found {
		return nil
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case "ingredients":
			data, err = json.Marshal(snapshot.Ingredients)
		case "menu_items":
			data, err = json.Marshal(snapshot.MenuItems)
		case "sales":
			data, err = json.Marshal(snapshot.Sales)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies fn within a transaction, then snapshots state to
// SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Seed replaces the full state with the provided snapshot and flushes it.
func (s *Store) Seed(snapshot Snapshot) error {
	s.ImportState(snapshot)
	return s.persist()
}

// Reset clears all buckets and the in-memory state.
func (s *Store) Reset() error {
	s.mu.Lock()
	_, err := s.db.Exec(`DELETE FROM state`)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	s.ImportState(Snapshot{})
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
