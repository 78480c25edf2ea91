package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/custody-scheduler/internal/persistence"
	"github.com/example/custody-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage   *sqlite.Storage
	Entries   persistence.ScheduleRepository
	Conflicts persistence.ConflictRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated database in a temporary directory. Close
// is optional; the harness also registers it with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")

	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:   storage,
		Entries:   storage,
		Conflicts: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedEntries stores the fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedEntries(tb testing.TB, fixtures ...EntryFixture) {
	tb.Helper()
	for _, fixture := range fixtures {
		if err := h.Entries.CreateEntry(context.Background(), fixture.Persistence()); err != nil {
			tb.Fatalf("seed entry %s: %v", fixture.ID, err)
		}
	}
}
