// Package jsonfile persists the in-memory state as one JSON file per
// collection in a data directory. It snapshots the full state after every
// successful transaction, writing each file through a temp-then-rename so a
// crash never leaves a half-written collection behind.
//
// A flush failure restores the already-flushed files to their prior contents
// and reports the failure as a domain.TransactionFailure. The in-memory state
// keeps the committed transaction in that case, so memory and disk diverge
// until the next successful flush rewrites every collection file from memory.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"standcore/internal/infra/persistence/memory"
	"standcore/pkg/domain"
)

type (
	// Ingredient aliases domain.Ingredient.
	Ingredient = domain.Ingredient
	// MenuItem aliases domain.MenuItem.
	MenuItem = domain.MenuItem
	// SaleRecord aliases domain.SaleRecord.
	SaleRecord = domain.SaleRecord
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// Snapshot aliases the in-memory snapshot this store serialises.
	Snapshot = memory.Snapshot
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	ingredientsFile = "ingredients.json"
	menuFile        = "menu.json"
	salesFile       = "sales.json"
)

var collectionFiles = []string{ingredientsFile, menuFile, salesFile}

// renameFile is swapped in tests to simulate flush failures.
var renameFile = os.Rename

// Store wraps the in-memory store with per-collection JSON file persistence.
type Store struct {
	*memory.Store
	mu  sync.Mutex
	dir string
}

// NewStore opens (or creates) the data directory and loads any existing
// collection files into memory. Missing files are treated as empty
// collections; a corrupt file is an error so stale data is never silently
// dropped.
func NewStore(dir string, engine *RulesEngine) (*Store, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), dir: dir}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the configured data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) load() error {
	snapshot := Snapshot{}
	loadFile := func(name string, target any) error {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		return nil
	}
	if err := loadFile(ingredientsFile, &snapshot.Ingredients); err != nil {
		return err
	}
	if err := loadFile(menuFile, &snapshot.MenuItems); err != nil {
		return err
	}
	if err := loadFile(salesFile, &snapshot.Sales); err != nil {
		return err
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) encodeCollection(name string, snapshot Snapshot) ([]byte, error) {
	switch name {
	case ingredientsFile:
		return json.MarshalIndent(snapshot.Ingredients, "", "  ")
	case menuFile:
		return json.MarshalIndent(snapshot.MenuItems, "", "  ")
	case salesFile:
		return json.MarshalIndent(snapshot.Sales, "", "  ")
	}
	return nil, fmt.Errorf("unknown collection file %q", name)
}

// writeCollection replaces one collection file atomically.
func (s *Store) writeCollection(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := renameFile(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// persist flushes every collection file. If a write fails partway, the files
// already flushed are restored from their prior contents best-effort and the
// failure reports which were flushed and which were restored.
func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()

	prior := make(map[string][]byte, len(collectionFiles))
	for _, name := range collectionFiles {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("snapshot prior %s: %w", name, err)
		}
		prior[name] = data
	}

	var flushed []string
	for _, name := range collectionFiles {
		data, err := s.encodeCollection(name, snapshot)
		if err == nil {
			err = s.writeCollection(name, data)
		}
		if err != nil {
			return s.rollback(flushed, prior, err)
		}
		flushed = append(flushed, name)
	}
	return nil
}

func (s *Store) rollback(flushed []string, prior map[string][]byte, cause error) error {
	var restored []string
	for _, name := range flushed {
		data, ok := prior[name]
		if !ok {
			if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
				restored = append(restored, name)
			}
			continue
		}
		if err := s.writeCollection(name, data); err == nil {
			restored = append(restored, name)
		}
	}
	return domain.TransactionFailure{Flushed: flushed, Restored: restored, Err: cause}
}

// RunInTransaction applies fn in memory, then flushes every collection file
// if the transaction succeeded.
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
// Used on first start when the collection files do not exist yet.
func (s *Store) Seed(snapshot Snapshot) error {
	s.ImportState(snapshot)
	return s.persist()
}

// Reset deletes every collection file and clears the in-memory state. The
// next start re-seeds from the remote source.
func (s *Store) Reset() error {
	s.mu.Lock()
	for _, name := range collectionFiles {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.mu.Unlock()
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	s.mu.Unlock()
	s.ImportState(Snapshot{})
	return nil
}
