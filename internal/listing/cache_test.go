package listing

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/poi/internal/apperr"
)

func tempCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(filepath.Join(t.TempDir(), "listing.json"))
}

func TestRebuildAndResolve(t *testing.T) {
	c := tempCache(t)
	// Oldest to newest: index 0 is the earliest, N-1 the most recent.
	m, err := c.Rebuild([]string{"2024/01/a.poi", "2024/02/b.poi", "2024/03/c.poi"})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("len = %d, want 3", len(m))
	}
	if p, _ := c.Resolve(0); p != "2024/01/a.poi" {
		t.Errorf("Resolve(0) = %q, want oldest", p)
	}
	if p, _ := c.Resolve(2); p != "2024/03/c.poi" {
		t.Errorf("Resolve(2) = %q, want newest", p)
	}
}

func TestRebuildReplacesWholesale(t *testing.T) {
	c := tempCache(t)
	_, _ = c.Rebuild([]string{"a", "b", "c"})
	_, _ = c.Rebuild([]string{"x"})

	if p, _ := c.Resolve(0); p != "x" {
		t.Errorf("Resolve(0) = %q, want %q", p, "x")
	}
	if _, err := c.Resolve(1); !errors.Is(err, apperr.ErrIndexNotFound) {
		t.Errorf("stale index survived rebuild: %v", err)
	}
}

func TestResolve_NoListingYet(t *testing.T) {
	c := tempCache(t)
	if _, err := c.Resolve(0); !errors.Is(err, apperr.ErrIndexNotFound) {
		t.Errorf("err = %v, want ErrIndexNotFound", err)
	}
}

func TestPatch(t *testing.T) {
	c := tempCache(t)
	_, _ = c.Rebuild([]string{"old", "other", "old"})

	if err := c.Patch("old", "new"); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	m, _ := c.Load()
	if m[0] != "new" || m[2] != "new" {
		t.Errorf("entries not patched: %v", m)
	}
	if m[1] != "other" {
		t.Errorf("unrelated entry changed: %v", m)
	}
}

func TestPatch_AbsentPathIsNoop(t *testing.T) {
	c := tempCache(t)
	_, _ = c.Rebuild([]string{"a"})
	if err := c.Patch("missing", "new"); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	m, _ := c.Load()
	if m[0] != "a" {
		t.Errorf("cache changed: %v", m)
	}
}

func TestRemove(t *testing.T) {
	c := tempCache(t)
	_, _ = c.Rebuild([]string{"a", "b"})
	if err := c.Remove("b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := c.Resolve(1); !errors.Is(err, apperr.ErrIndexNotFound) {
		t.Errorf("removed entry still resolves: %v", err)
	}
	if p, _ := c.Resolve(0); p != "a" {
		t.Errorf("unrelated entry lost: %q", p)
	}
}

func TestCacheFileFormat(t *testing.T) {
	// The on-disk shape is a JSON object with decimal-string keys.
	c := tempCache(t)
	_, _ = c.Rebuild([]string{"a", "b"})

	data, err := os.ReadFile(c.path)
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("cache file is not a string-keyed JSON object: %v", err)
	}
	if raw["0"] != "a" || raw["1"] != "b" {
		t.Errorf("raw = %v", raw)
	}
}
