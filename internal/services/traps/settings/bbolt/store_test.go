package bbolt

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
)

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "settings.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, settings.Namespace, settings.KeySavedTraps); !stderrors.Is(err, settings.ErrNotFound) {
		t.Fatalf("Get before bucket exists = %v, want ErrNotFound", err)
	}
	if err := store.Set(ctx, settings.Namespace, settings.KeyAutoRevealTraps, "false"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := store.Get(ctx, settings.Namespace, settings.KeySavedTraps); !stderrors.Is(err, settings.ErrNotFound) {
		t.Fatalf("Get missing key = %v, want ErrNotFound", err)
	}
	got, err := store.Get(ctx, settings.Namespace, settings.KeyAutoRevealTraps)
	if err != nil || got != "false" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}

func TestStoreRejectsCanceledContext(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "settings.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Set(ctx, settings.Namespace, "k", "v"); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Set = %v, want context.Canceled", err)
	}
}

func TestFlagsOverBolt(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "settings.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	flags := settings.Flags{Store: store}
	if err := flags.Set(ctx, settings.KeyEnableProximityTriggers, "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	values, err := flags.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !values.EnableProximityTriggers {
		t.Fatal("expected proximity triggers enabled")
	}
}
