package dess

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dessmon/dessmon-core/internal/infrastructure/database"
)

func newTestStore(t *testing.T) *SQLiteSessionStore {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE auth_sessions (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			secret TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("creating auth_sessions: %v", err)
	}

	store, err := NewSQLiteSessionStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteSessionStore() error: %v", err)
	}
	return store
}

func TestSQLiteSessionStore_LoadEmpty(t *testing.T) {
	store := newTestStore(t)

	session, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if session != nil {
		t.Errorf("Load() = %+v, want nil on empty store", session)
	}
}

func TestSQLiteSessionStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second).UTC()
	saved := Session{
		Token:     "tok",
		Secret:    "sec",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}

	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() returned nil after Save")
	}
	if loaded.Token != saved.Token || loaded.Secret != saved.Secret {
		t.Errorf("loaded = %+v, want %+v", loaded, saved)
	}
	if !loaded.ExpiresAt.Equal(saved.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", loaded.ExpiresAt, saved.ExpiresAt)
	}
}

func TestSQLiteSessionStore_SaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	first := Session{Token: "old", Secret: "old", ExpiresAt: now, CreatedAt: now}
	second := Session{Token: "new", Secret: "new", ExpiresAt: now.Add(time.Hour), CreatedAt: now}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Token != "new" {
		t.Errorf("Token = %q, want the newer session", loaded.Token)
	}
}

func TestSQLiteSessionStore_Clear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Save(ctx, Session{Token: "t", Secret: "s", ExpiresAt: now, CreatedAt: now}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	session, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if session != nil {
		t.Errorf("Load() = %+v after Clear, want nil", session)
	}

	// Clearing an empty store is not an error.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear() on empty store: %v", err)
	}
}
