// Package testutil provides shared test helpers for setting up stores,
// caches, and index databases.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/poi/internal/index"
	"github.com/starford/poi/internal/listing"
	"github.com/starford/poi/internal/store"
)

// QuietLogger returns a logger that only reports errors, keeping test output
// readable.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Clock returns a deterministic wall clock starting at the given
// YYYYMMDDHHMMSS stamp and advancing by step on every reading.
func Clock(start string, step time.Duration) func() time.Time {
	t, err := time.ParseInLocation("20060102150405", start, time.Local)
	if err != nil {
		panic(err)
	}
	cur := t.Add(-step)
	return func() time.Time {
		cur = cur.Add(step)
		return cur
	}
}

// TestStore creates a temporary note store with a deterministic clock.
func TestStore(t *testing.T, now func() time.Time) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), ".poi", QuietLogger(), store.WithClock(now))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

// TestCaches creates a listing cache and last-note pointer in a temporary
// state directory.
func TestCaches(t *testing.T) (*listing.Cache, *listing.LastNote) {
	t.Helper()
	dir := t.TempDir()
	return listing.NewCache(filepath.Join(dir, "listing.json")), listing.NewLastNote(filepath.Join(dir, "lastnote"))
}

// TestDB creates a temporary search index database that is automatically
// cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
