package fleet

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dessmon/dessmon-core/internal/infrastructure/database"
	_ "github.com/dessmon/dessmon-core/migrations" // Registers embedded migrations
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "fleet.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository() error: %v", err)
	}
	return repo
}

func testFleet() ([]Collector, []Device) {
	collectors := []Collector{
		{PN: "W001", ProjectID: 7, Alias: "garage"},
		{PN: "W002", ProjectID: 7, Alias: "roof"},
	}
	devices := []Device{
		{SN: "Q001", PN: "W001", Devcode: 2376, Devaddr: 1, Alias: "inverter-a"},
		{SN: "Q002", PN: "W002", Devcode: 2449, Devaddr: 1, Alias: "inverter-b"},
	}
	return collectors, devices
}

func TestRepository_SyncAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	collectors, devices := testFleet()
	if err := repo.SyncCollectors(ctx, collectors, now); err != nil {
		t.Fatalf("SyncCollectors() error: %v", err)
	}
	if err := repo.SyncDevices(ctx, devices, now); err != nil {
		t.Fatalf("SyncDevices() error: %v", err)
	}

	gotCollectors, err := repo.ListCollectors(ctx)
	if err != nil {
		t.Fatalf("ListCollectors() error: %v", err)
	}
	if len(gotCollectors) != 2 {
		t.Fatalf("got %d collectors, want 2", len(gotCollectors))
	}
	if !gotCollectors[0].Online || gotCollectors[0].PN != "W001" {
		t.Errorf("collector = %+v", gotCollectors[0])
	}
	if gotCollectors[0].FirstSeen.IsZero() {
		t.Error("first_seen not recorded")
	}

	gotDevices, err := repo.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(gotDevices) != 2 {
		t.Fatalf("got %d devices, want 2", len(gotDevices))
	}
	if gotDevices[0].Devcode != 2376 || !gotDevices[0].Online {
		t.Errorf("device = %+v", gotDevices[0])
	}
}

func TestRepository_AbsentDevicesMarkedOfflineNotDeleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	collectors, devices := testFleet()
	if err := repo.SyncCollectors(ctx, collectors, now); err != nil {
		t.Fatalf("SyncCollectors() error: %v", err)
	}
	if err := repo.SyncDevices(ctx, devices, now); err != nil {
		t.Fatalf("SyncDevices() error: %v", err)
	}

	// Q002 drops out of the next enumeration.
	later := now.Add(5 * time.Minute)
	if err := repo.SyncDevices(ctx, devices[:1], later); err != nil {
		t.Fatalf("second SyncDevices() error: %v", err)
	}

	got, err := repo.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d devices, want 2 (absent device kept)", len(got))
	}
	for _, d := range got {
		switch d.SN {
		case "Q001":
			if !d.Online {
				t.Error("Q001 should stay online")
			}
		case "Q002":
			if d.Online {
				t.Error("Q002 should be offline after dropping out")
			}
		}
	}
}

func TestRepository_UpsertPreservesFirstSeen(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	collectors, devices := testFleet()
	if err := repo.SyncCollectors(ctx, collectors, first); err != nil {
		t.Fatalf("SyncCollectors() error: %v", err)
	}
	if err := repo.SyncDevices(ctx, devices, first); err != nil {
		t.Fatalf("SyncDevices() error: %v", err)
	}
	if err := repo.SyncDevices(ctx, devices, second); err != nil {
		t.Fatalf("second SyncDevices() error: %v", err)
	}

	got, err := repo.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if !got[0].FirstSeen.Equal(first) {
		t.Errorf("FirstSeen = %v, want %v", got[0].FirstSeen, first)
	}
	if !got[0].LastSeen.Equal(second) {
		t.Errorf("LastSeen = %v, want %v", got[0].LastSeen, second)
	}
}

func TestRepository_Prune(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	collectors, devices := testFleet()
	if err := repo.SyncCollectors(ctx, collectors, old); err != nil {
		t.Fatalf("SyncCollectors() error: %v", err)
	}
	if err := repo.SyncDevices(ctx, devices, old); err != nil {
		t.Fatalf("SyncDevices() error: %v", err)
	}

	// Everything drops out of the account.
	now := old.Add(60 * 24 * time.Hour)
	if err := repo.SyncCollectors(ctx, nil, now); err != nil {
		t.Fatalf("empty SyncCollectors() error: %v", err)
	}
	if err := repo.SyncDevices(ctx, nil, now); err != nil {
		t.Fatalf("empty SyncDevices() error: %v", err)
	}

	removed, err := repo.Prune(ctx, 30*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if removed != 4 {
		t.Errorf("Prune() removed %d rows, want 4", removed)
	}

	gotDevices, err := repo.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(gotDevices) != 0 {
		t.Errorf("devices remain after prune: %+v", gotDevices)
	}
}

func TestRegistry_SyncAndLookup(t *testing.T) {
	repo := newTestRepo(t)
	registry, err := NewRegistry(repo)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	ctx := context.Background()

	if err := registry.Load(ctx); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := registry.Devices(); len(got) != 0 {
		t.Fatalf("fresh registry has %d devices", len(got))
	}

	collectors, devices := testFleet()
	if err := registry.Sync(ctx, collectors, devices, time.Now()); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	if got := registry.Devices(); len(got) != 2 || got[0].SN != "Q001" {
		t.Errorf("Devices() = %+v", got)
	}

	d, ok := registry.Device("Q002")
	if !ok || d.PN != "W002" {
		t.Errorf("Device(Q002) = %+v, %v", d, ok)
	}

	c, ok := registry.Collector("W001")
	if !ok || c.Alias != "garage" {
		t.Errorf("Collector(W001) = %+v, %v", c, ok)
	}

	if _, ok := registry.Device("nope"); ok {
		t.Error("unexpected device hit")
	}
}

func TestRegistry_LoadRestoresPreviousRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	collectors, devices := testFleet()
	if err := repo.SyncCollectors(ctx, collectors, time.Now()); err != nil {
		t.Fatalf("SyncCollectors() error: %v", err)
	}
	if err := repo.SyncDevices(ctx, devices, time.Now()); err != nil {
		t.Fatalf("SyncDevices() error: %v", err)
	}

	// A new registry over the same repository sees the persisted fleet.
	registry, err := NewRegistry(repo)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	if err := registry.Load(ctx); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := registry.Devices(); len(got) != 2 {
		t.Errorf("Devices() = %+v", got)
	}
}
