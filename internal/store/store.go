// Package store maps logical notes to files on disk. It owns the
// rename-on-mutation scheme: every touch re-encodes the filename through the
// identity codec and renames the file in place.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/poi/internal/apperr"
	"github.com/starford/poi/internal/identity"
	"github.com/starford/poi/internal/models"
)

// Store implements note storage backed by the local file system.
type Store struct {
	root   string // absolute path to the store root
	ext    string // note file extension, e.g. ".poi"
	logger *slog.Logger
	now    func() time.Time
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store rooted at the given directory. The directory must
// already exist; a missing or non-directory root fails with
// apperr.ErrStoreUnavailable.
func New(root, ext string, logger *slog.Logger, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("store: %w: %s", apperr.ErrStoreUnavailable, abs)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: %w: root is not a directory: %s", apperr.ErrStoreUnavailable, abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{root: abs, ext: ext, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute store root.
func (s *Store) Root() string { return s.root }

// Ext returns the configured note extension.
func (s *Store) Ext() string { return s.ext }

// Abs resolves a store-relative slash path to an absolute one and rejects
// any result that escapes the root (directory traversal).
func (s *Store) Abs(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("store: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(s.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("store: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("store: path escapes store root: %s", rel)
	}
	return abs, nil
}

// Create makes a fresh note whose three timestamps all equal the current
// wall-clock second and writes an empty file for it. When the name is taken
// (two notes created within the same second) the candidate clock value is
// advanced by one second and the create retried until a free name is found.
func (s *Store) Create() (models.Note, error) {
	now := s.now().Truncate(time.Second)
	for {
		stem := identity.Encode(now, now, now)
		rel := path.Join(identity.Dir(now), stem+s.ext)
		abs, err := s.Abs(rel)
		if err != nil {
			return models.Note{}, err
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return models.Note{}, fmt.Errorf("store: %w: mkdir: %v", apperr.ErrStoreUnavailable, err)
		}
		f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				now = now.Add(time.Second)
				continue
			}
			return models.Note{}, fmt.Errorf("store: %w: create: %v", apperr.ErrStoreUnavailable, err)
		}
		if err := f.Close(); err != nil {
			return models.Note{}, fmt.Errorf("store: close new note: %w", err)
		}
		return models.Note{Path: rel, Created: now, Edited: now, Viewed: now}, nil
	}
}

// Touch advances the note's timestamps for the given mode, re-encodes the
// filename, and renames the file. TouchViewed advances viewed only;
// TouchEdited advances edited and viewed together (editing implies viewing).
// The note never leaves its directory. Fails with apperr.ErrRenameConflict
// when the destination already exists.
func (s *Store) Touch(n models.Note, mode string) (models.Note, error) {
	now := s.now().Truncate(time.Second)
	out := n
	switch mode {
	case models.SortEdited:
		out.Edited = now
		out.Viewed = now
	case models.SortViewed:
		out.Viewed = now
	default:
		return models.Note{}, fmt.Errorf("store: unknown touch mode %q", mode)
	}

	stem := identity.Encode(out.Created, out.Edited, out.Viewed)
	out.Path = path.Join(path.Dir(n.Path), stem+s.ext)
	if out.Path == n.Path {
		// Touched twice within the same second; nothing to rename.
		return out, nil
	}
	return out, s.rename(n.Path, out.Path)
}

// Rename moves a note file between store-relative paths, refusing to
// clobber an existing destination.
func (s *Store) Rename(oldRel, newRel string) error {
	return s.rename(oldRel, newRel)
}

func (s *Store) rename(oldRel, newRel string) error {
	absOld, err := s.Abs(oldRel)
	if err != nil {
		return err
	}
	absNew, err := s.Abs(newRel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absNew); err == nil {
		return fmt.Errorf("store: %w: %s", apperr.ErrRenameConflict, newRel)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("store: mkdir for rename: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// Enumerate scans the store recursively for files bearing the configured
// extension and decodes each filename. Files that fail to decode are
// reported at warn level and skipped; enumeration continues. Order is
// unspecified.
func (s *Store) Enumerate() ([]models.Note, error) {
	var out []models.Note
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			// State and other dot-directories hold no live notes.
			if strings.HasPrefix(d.Name(), ".") && p != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), s.ext) {
			return nil
		}
		c, e, v, err := identity.DecodeFilename(d.Name(), s.ext)
		if err != nil {
			s.logger.Warn("skipping invalid filename", slog.String("name", d.Name()), slog.String("error", err.Error()))
			return nil
		}
		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil {
			return relErr
		}
		out = append(out, models.Note{Path: filepath.ToSlash(rel), Created: c, Edited: e, Viewed: v})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: enumerate: %w", err)
	}
	return out, nil
}

// Load decodes a note from its store-relative path without touching disk
// beyond an existence check.
func (s *Store) Load(rel string) (models.Note, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return models.Note{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		return models.Note{}, fmt.Errorf("store: stat %s: %w", rel, err)
	}
	c, e, v, err := identity.DecodeFilename(path.Base(rel), s.ext)
	if err != nil {
		return models.Note{}, err
	}
	return models.Note{Path: rel, Created: c, Edited: e, Viewed: v}, nil
}

// Read returns the raw bytes of a note file.
func (s *Store) Read(rel string) ([]byte, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", rel, err)
	}
	return data, nil
}

// Write atomically replaces a note's content: tmp file, fsync, rename.
func (s *Store) Write(rel string, content []byte) error {
	abs, err := s.Abs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".poi-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("store: rename temp: %w", err)
	}
	success = true
	return nil
}

// Delete removes a note file. The listing cache and last-note pointer are
// dependent caches maintained by callers, not by the store.
func (s *Store) Delete(n models.Note) error {
	abs, err := s.Abs(n.Path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("store: delete %s: %w", n.Path, err)
	}
	return nil
}
