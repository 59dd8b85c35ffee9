package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/poi/internal/apperr"
	"github.com/starford/poi/internal/models"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedClock(s string) func() time.Time {
	t, err := time.ParseInLocation("20060102150405", s, time.Local)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func tempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(t.TempDir(), ".poi", discard(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), ".poi", discard())
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestNew_RootIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(f, ".poi", discard()); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestCreate(t *testing.T) {
	s := tempStore(t, WithClock(fixedClock("20240301100000")))
	n, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := "2024/03/" + strings.Repeat("20240301100000", 3) + ".poi"
	if n.Path != want {
		t.Errorf("path = %q, want %q", n.Path, want)
	}
	if !n.Created.Equal(n.Edited) || !n.Created.Equal(n.Viewed) {
		t.Errorf("fresh note timestamps differ: %+v", n)
	}
	abs, _ := s.Abs(n.Path)
	if _, err := os.Stat(abs); err != nil {
		t.Errorf("note file missing: %v", err)
	}
}

func TestCreate_CollisionRetry(t *testing.T) {
	// Two notes created within the same wall-clock second must still
	// produce two distinct files.
	s := tempStore(t, WithClock(fixedClock("20240301100000")))
	a, err := s.Create()
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	b, err := s.Create()
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if a.Path == b.Path {
		t.Fatalf("collision not resolved, both notes at %q", a.Path)
	}
	if !b.Created.Equal(a.Created.Add(time.Second)) {
		t.Errorf("retry should advance one second: %v vs %v", a.Created, b.Created)
	}
}

func TestTouch_Edited(t *testing.T) {
	s := tempStore(t, WithClock(fixedClock("20240301100000")))
	n, _ := s.Create()

	later := fixedClock("20240301110000")
	s.now = later

	got, err := s.Touch(n, models.SortEdited)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if !got.Edited.Equal(later()) || !got.Viewed.Equal(later()) {
		t.Errorf("edit must also advance viewed: %+v", got)
	}
	if got.Edited.Before(n.Edited) || got.Viewed.Before(n.Viewed) {
		t.Errorf("timestamps moved backwards: %+v", got)
	}
	if !got.Created.Equal(n.Created) {
		t.Errorf("created changed on touch: %v", got.Created)
	}
	if filepath.Dir(got.Path) != filepath.Dir(n.Path) {
		t.Errorf("note changed directory: %q -> %q", n.Path, got.Path)
	}
	if _, err := s.Load(got.Path); err != nil {
		t.Errorf("renamed file not loadable: %v", err)
	}
	if _, err := s.Read(n.Path); err == nil {
		t.Error("old path still readable after rename")
	}
}

func TestTouch_ViewedOnly(t *testing.T) {
	s := tempStore(t, WithClock(fixedClock("20240301100000")))
	n, _ := s.Create()
	s.now = fixedClock("20240301110000")

	got, err := s.Touch(n, models.SortViewed)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if !got.Edited.Equal(n.Edited) {
		t.Errorf("view must not advance edited: %+v", got)
	}
	if !got.Viewed.After(n.Viewed) {
		t.Errorf("viewed not advanced: %+v", got)
	}
}

func TestTouch_SameSecondIsNoop(t *testing.T) {
	s := tempStore(t, WithClock(fixedClock("20240301100000")))
	n, _ := s.Create()

	got, err := s.Touch(n, models.SortViewed)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if got.Path != n.Path {
		t.Errorf("same-second touch renamed: %q -> %q", n.Path, got.Path)
	}
}

func TestRename_Conflict(t *testing.T) {
	s := tempStore(t, WithClock(fixedClock("20240301100000")))
	a, _ := s.Create()
	b, _ := s.Create()

	if err := s.Rename(a.Path, b.Path); !errors.Is(err, apperr.ErrRenameConflict) {
		t.Errorf("err = %v, want ErrRenameConflict", err)
	}
}

func TestEnumerate(t *testing.T) {
	s := tempStore(t, WithClock(fixedClock("20240301100000")))
	a, _ := s.Create()
	b, _ := s.Create()

	// Junk that must be skipped, not abort the listing.
	_ = s.Write("2024/03/garbage.poi", []byte("bad name"))
	_ = s.Write("2024/03/readme.txt", []byte("not a note"))
	_ = s.Write(".poi/backups/"+strings.Repeat("20230101000000", 3)+".poi", []byte("backup copy"))

	notes, err := s.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(notes), notes)
	}
	seen := map[string]bool{}
	for _, n := range notes {
		seen[n.Path] = true
		if !n.Created.Equal(n.Edited) || !n.Created.Equal(n.Viewed) {
			t.Errorf("fresh note timestamps differ: %+v", n)
		}
	}
	if !seen[a.Path] || !seen[b.Path] {
		t.Errorf("missing notes in %v", seen)
	}
}

func TestLoad_InvalidName(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("2024/03/garbage.poi", []byte("x"))
	if _, err := s.Load("2024/03/garbage.poi"); !errors.Is(err, apperr.ErrInvalidIdentity) {
		t.Errorf("err = %v, want ErrInvalidIdentity", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	n, _ := s.Create()
	if err := s.Delete(n); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read(n.Path); err == nil {
		t.Error("expected error reading deleted note")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)
	for _, p := range []string{"../../etc/passwd", "../outside.poi", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}
