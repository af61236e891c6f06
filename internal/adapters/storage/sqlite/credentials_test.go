package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

var _ app.CredentialStore = (*CredentialStore)(nil)

func TestCredentialStoreRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "trackit.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if _, ok, err := store.Get(ctx); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
	}
	user := domain.User{ID: 7, Username: "ada", Email: "ada@example.com", Timezone: "UTC"}
	if err := store.Set(ctx, "tok-1", user); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() reopen error = %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	got, ok, err := reopened.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if got.Token != "tok-1" || got.User.ID != 7 || got.User.Email != "ada@example.com" {
		t.Fatalf("unexpected credentials %#v", got)
	}
	at, ok, err := reopened.UpdatedAt(ctx)
	if err != nil || !ok || !at.Equal(now) {
		t.Fatalf("UpdatedAt() = %v ok %v err %v", at, ok, err)
	}
}

func TestCredentialStoreSetReplacesAndClearRemoves(t *testing.T) {
	ctx := context.Background()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Set(ctx, "", domain.User{}); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
	_ = store.Set(ctx, "old", domain.User{ID: 1, Username: "a"})
	_ = store.Set(ctx, "new", domain.User{ID: 2, Username: "b"})
	got, _, _ := store.Get(ctx)
	if got.Token != "new" || got.User.Username != "b" {
		t.Fatalf("expected replaced session, got %#v", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := store.Get(ctx); ok {
		t.Fatal("expected no session after Clear()")
	}
	if _, ok, _ := store.UpdatedAt(ctx); ok {
		t.Fatal("expected no timestamp after Clear()")
	}
	if store.Clears() != 1 {
		t.Fatalf("Clears() = %d, want 1", store.Clears())
	}
}

func TestCredentialStoreToleratesCorruptUserRow(t *testing.T) {
	ctx := context.Background()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.db.ExecContext(ctx, `INSERT INTO session_kv(key, value, updated_at) VALUES (?, 'tok', ''), (?, '{not json', '')`, KeyToken, KeyUser); err != nil {
		t.Fatalf("seed error = %v", err)
	}
	got, ok, err := store.Get(ctx)
	if err != nil || !ok || got.Token != "tok" || got.User.ID != 0 {
		t.Fatalf("Get() = %#v ok %v err %v", got, ok, err)
	}
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	b, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	_ = a.Set(ctx, "tok", domain.User{ID: 1})
	if _, ok, _ := b.Get(ctx); ok {
		t.Fatal("in-memory stores share state")
	}
}

func TestCredentialStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Set(ctx, "tok", domain.User{ID: 1}); err != nil {
				t.Errorf("Set() error = %v", err)
			}
			_, _, _ = store.Get(ctx)
		}()
	}
	wg.Wait()
	if got, ok, _ := store.Get(ctx); !ok || got.Token != "tok" {
		t.Fatalf("unexpected final session %#v", got)
	}
}
