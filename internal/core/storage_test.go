package core

import (
	"context"
	"path/filepath"
	"testing"

	"fibretrace/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("FIBRETRACE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return nil
	}); err != nil {
		t.Fatalf("empty transaction: %v", err)
	}
}

func TestOpenPersistentStoreSQLiteDefault(t *testing.T) {
	t.Setenv("FIBRETRACE_STORAGE_DRIVER", "")
	t.Setenv("FIBRETRACE_SQLITE_PATH", filepath.Join(t.TempDir(), "trace.db"))
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if s, ok := store.(*sqlite.Store); ok {
		defer func() { _ = s.Close() }()
	} else {
		t.Fatalf("default driver must be sqlite, got %T", store)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("FIBRETRACE_STORAGE_DRIVER", "gibberish")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
