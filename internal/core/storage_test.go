package core

import (
	"context"
	"path/filepath"
	"testing"

	"standcore/internal/config"
	"standcore/internal/infra/persistence/jsonfile"
	"standcore/internal/infra/persistence/memory"
	"standcore/internal/infra/persistence/sqlite"
	"standcore/pkg/domain"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(config.Config{StorageDriver: "memory"}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("store type %T, want memory", store)
	}
}

func TestOpenPersistentStoreJSONFile(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenPersistentStore(config.Config{StorageDriver: "jsonfile", DataDir: dir}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*jsonfile.Store); !ok {
		t.Fatalf("store type %T, want jsonfile", store)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stand.db")
	store, err := OpenPersistentStore(config.Config{StorageDriver: "sqlite", SQLitePath: path}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ss, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("store type %T, want sqlite", store)
	}
	defer ss.Close()
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, err := OpenPersistentStore(config.Config{StorageDriver: "carrier-pigeon"}, nil); err == nil {
		t.Fatal("unknown driver must fail")
	}
}

func TestDurableStoreSatisfiesPersistentStore(t *testing.T) {
	var store DurableStore = memory.NewStore(nil)
	var _ domain.PersistentStore = store

	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateIngredient(domain.Ingredient{
			Category: domain.CategoryBread,
			Name:     "simple",
			Type:     "standard",
			Stock:    1,
		})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(store.ListIngredients()) != 0 {
		t.Fatal("reset left state behind")
	}
}
