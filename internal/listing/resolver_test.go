package listing

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/poi/internal/apperr"
	"github.com/starford/poi/internal/identity"
	"github.com/starford/poi/internal/models"
)

// fakeLoader decodes paths like a store would, without any files on disk.
type fakeLoader struct {
	missing map[string]bool
}

func (f *fakeLoader) Load(rel string) (models.Note, error) {
	if f.missing[rel] {
		return models.Note{}, fmt.Errorf("loader: %s does not exist", rel)
	}
	c, e, v, err := identity.DecodeFilename(path.Base(rel), ".poi")
	if err != nil {
		return models.Note{}, err
	}
	return models.Note{Path: rel, Created: c, Edited: e, Viewed: v}, nil
}

func notePath(stamp string) string {
	return "2024/03/" + strings.Repeat(stamp, 3) + ".poi"
}

func testResolver(t *testing.T) (*Resolver, *Cache, *LastNote) {
	t.Helper()
	dir := t.TempDir()
	cache := NewCache(filepath.Join(dir, "listing.json"))
	last := NewLastNote(filepath.Join(dir, "lastnote"))
	return NewResolver(&fakeLoader{}, cache, last), cache, last
}

func TestResolve_Index(t *testing.T) {
	r, cache, last := testResolver(t)
	p0, p1 := notePath("20240301100000"), notePath("20240302100000")
	_, _ = cache.Rebuild([]string{p0, p1})

	n, err := r.Resolve("1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n.Path != p1 {
		t.Errorf("path = %q, want %q", n.Path, p1)
	}
	want, _ := time.ParseInLocation(identity.Layout, "20240302100000", time.Local)
	if !n.Created.Equal(want) {
		t.Errorf("created = %v, want %v", n.Created, want)
	}
	// Every successful resolution becomes the new last note.
	if got, _ := last.Get(); got != p1 {
		t.Errorf("last note = %q, want %q", got, p1)
	}
}

func TestResolve_LastTokenFollowsIndexResolution(t *testing.T) {
	// "_" right after resolving index 2 returns the same note, with no
	// cache rebuild in between.
	r, cache, _ := testResolver(t)
	paths := []string{notePath("20240301100000"), notePath("20240302100000"), notePath("20240303100000")}
	_, _ = cache.Rebuild(paths)

	byIndex, err := r.Resolve("2")
	if err != nil {
		t.Fatalf("Resolve(2): %v", err)
	}
	byToken, err := r.Resolve(LastToken)
	if err != nil {
		t.Fatalf("Resolve(_): %v", err)
	}
	if byToken.Path != byIndex.Path {
		t.Errorf("_ resolved %q, index 2 resolved %q", byToken.Path, byIndex.Path)
	}
}

func TestResolve_NoLastNote(t *testing.T) {
	r, _, _ := testResolver(t)
	if _, err := r.Resolve(LastToken); !errors.Is(err, apperr.ErrNoLastNote) {
		t.Errorf("err = %v, want ErrNoLastNote", err)
	}
}

func TestResolve_IndexNotFound(t *testing.T) {
	r, cache, _ := testResolver(t)
	_, _ = cache.Rebuild([]string{notePath("20240301100000")})
	if _, err := r.Resolve("5"); !errors.Is(err, apperr.ErrIndexNotFound) {
		t.Errorf("err = %v, want ErrIndexNotFound", err)
	}
}

func TestResolve_BadToken(t *testing.T) {
	r, cache, last := testResolver(t)
	_, _ = cache.Rebuild([]string{notePath("20240301100000")})

	for _, tok := range []string{"abc", "-1", "1.5", ""} {
		if _, err := r.Resolve(tok); err == nil {
			t.Errorf("Resolve(%q) succeeded, want error", tok)
		}
	}
	// A failed resolution must not move the pointer.
	if _, err := last.Get(); !errors.Is(err, apperr.ErrNoLastNote) {
		t.Errorf("pointer set by failed resolution: %v", err)
	}
}

func TestResolve_InvalidIdentityOnDisk(t *testing.T) {
	// The cache can point at a file renamed externally to a shape the
	// codec no longer understands.
	dir := t.TempDir()
	cache := NewCache(filepath.Join(dir, "listing.json"))
	last := NewLastNote(filepath.Join(dir, "lastnote"))
	r := NewResolver(&fakeLoader{}, cache, last)
	_, _ = cache.Rebuild([]string{"2024/03/renamed-by-hand.poi"})

	if _, err := r.Resolve("0"); !errors.Is(err, apperr.ErrInvalidIdentity) {
		t.Errorf("err = %v, want ErrInvalidIdentity", err)
	}
}
