package sqlite

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, filepath.Join(t.TempDir(), "settings.db"))

	if _, err := store.Get(ctx, settings.Namespace, settings.KeySavedTraps); !stderrors.Is(err, settings.ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
	if err := store.Set(ctx, settings.Namespace, settings.KeySavedTraps, `[{"id":"a"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, settings.Namespace, settings.KeySavedTraps, `[]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := store.Get(ctx, settings.Namespace, settings.KeySavedTraps)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "[]" {
		t.Fatalf("Get = %q, want []", got)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set(ctx, settings.Namespace, settings.KeyProximityDistance, "3"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := openTestStore(t, path)
	got, err := second.Get(ctx, settings.Namespace, settings.KeyProximityDistance)
	if err != nil || got != "3" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSetRequiresKey(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "settings.db"))
	if err := store.Set(context.Background(), settings.Namespace, "", "x"); err == nil {
		t.Fatal("expected error for empty key")
	}
}
