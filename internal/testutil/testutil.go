// Package testutil provides shared test helpers for setting up vaults,
// databases and query executors.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/sift/internal/cache"
	"github.com/starford/sift/internal/index"
	"github.com/starford/sift/internal/monitor"
	"github.com/starford/sift/internal/query"
	"github.com/starford/sift/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sift-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestExecutor creates a query executor over a small cache without a
// janitor and without Prometheus registration.
func TestExecutor(t *testing.T) *query.Executor {
	t.Helper()
	store := cache.New(cache.Config{MaxSize: 100, DefaultTTL: time.Minute})
	t.Cleanup(store.Close)
	mon := monitor.New(monitor.Config{HistorySize: 100}, monitor.WithLogger(Logger()))
	return query.NewExecutor(store, mon, 0, Logger())
}

// WriteNote writes a file into a vault directory, creating parents.
func WriteNote(t *testing.T, vaultDir, rel, content string) {
	t.Helper()
	abs := filepath.Join(vaultDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
