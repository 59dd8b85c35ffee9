// Package noteservice coordinates the note store with the dependent caches
// layered on top of it. Every rename or delete flows through here so that a
// logical note is never lost between the store, the listing index cache, and
// the last-note pointer.
package noteservice

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/starford/poi/internal/checksum"
	"github.com/starford/poi/internal/index"
	"github.com/starford/poi/internal/listing"
	"github.com/starford/poi/internal/models"
	"github.com/starford/poi/internal/parser"
	"github.com/starford/poi/internal/store"
)

// Service wires the store, the listing caches, and the search index.
type Service struct {
	store     *store.Store
	cache     *listing.Cache
	last      *listing.LastNote
	resolver  *listing.Resolver
	idx       index.NoteIndex
	tagPrefix string
	logger    *slog.Logger
}

// NewService creates a service over the given collaborators. idx may be nil
// when the search index is not open (e.g. before init).
func NewService(st *store.Store, cache *listing.Cache, last *listing.LastNote, idx index.NoteIndex, tagPrefix string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		cache:     cache,
		last:      last,
		resolver:  listing.NewResolver(st, cache, last),
		idx:       idx,
		tagPrefix: tagPrefix,
		logger:    logger,
	}
}

// Add creates a fresh note, optionally seeding a tag line on line 10, and
// makes it the last note.
func (s *Service) Add(tags []string) (models.Note, error) {
	n, err := s.store.Create()
	if err != nil {
		return models.Note{}, err
	}
	if len(tags) > 0 {
		seed := strings.Repeat("\n", 9) + parser.TagLine(s.tagPrefix, tags)
		if err := s.store.Write(n.Path, []byte(seed)); err != nil {
			return models.Note{}, err
		}
	}
	if err := s.last.Set(n.Path); err != nil {
		return models.Note{}, err
	}
	if err := s.Reindex(n); err != nil {
		s.logger.Warn("add: index failed", slog.String("path", n.Path), slog.String("error", err.Error()))
	}
	return n, nil
}

// ListOptions filter and order a listing.
type ListOptions struct {
	Terms         []string  // every term must appear in the note text
	CaseSensitive bool      // term matching is case-insensitive by default
	Sort          string    // models.SortCreated (default), SortEdited, SortViewed
	Since         time.Time // keep notes created at or after this instant
	Before        time.Time // keep notes created strictly before this instant
}

// List enumerates the store, filters and sorts the notes, rebuilds the
// listing index cache, and returns the entries oldest first: entry 0 is the
// chronologically earliest item of the result set, N-1 the most recent,
// whichever timestamp was sorted by.
func (s *Service) List(opts ListOptions) ([]models.Entry, error) {
	notes, err := s.store.Enumerate()
	if err != nil {
		return nil, err
	}

	mode := opts.Sort
	if mode == "" {
		mode = models.SortCreated
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].Stamp(mode).Before(notes[j].Stamp(mode))
	})

	var entries []models.Entry
	var paths []string
	for _, n := range notes {
		if !opts.Since.IsZero() && n.Created.Before(opts.Since) {
			continue
		}
		if !opts.Before.IsZero() && !n.Created.Before(opts.Before) {
			continue
		}
		data, err := s.store.Read(n.Path)
		if err != nil {
			s.logger.Warn("list: read failed", slog.String("path", n.Path), slog.String("error", err.Error()))
			continue
		}
		if !matchTerms(string(data), opts.Terms, opts.CaseSensitive) {
			continue
		}
		res := parser.Parse(data, s.tagPrefix)
		entries = append(entries, models.Entry{
			Index: len(entries),
			Note:  n,
			Title: res.Title,
			Stamp: n.Stamp(mode),
		})
		paths = append(paths, n.Path)
	}

	if _, err := s.cache.Rebuild(paths); err != nil {
		return nil, err
	}
	return entries, nil
}

// Content returns a note's raw text without touching any timestamp, as for
// the pre-delete preview.
func (s *Service) Content(n models.Note) ([]byte, error) {
	return s.store.Read(n.Path)
}

// Resolve turns an index token into a note and makes it the last note.
func (s *Service) Resolve(token string) (models.Note, error) {
	return s.resolver.Resolve(token)
}

// View resolves a note, advances its viewed timestamp (renaming the file),
// and returns the note with its content.
func (s *Service) View(token string) (models.Note, []byte, error) {
	n, err := s.resolver.Resolve(token)
	if err != nil {
		return models.Note{}, nil, err
	}
	touched, err := s.touch(n, models.SortViewed)
	if err != nil {
		return models.Note{}, nil, err
	}
	data, err := s.store.Read(touched.Path)
	if err != nil {
		return models.Note{}, nil, err
	}
	return touched, data, nil
}

// Edit resolves a note, advances its edited and viewed timestamps (renaming
// the file), and copies the pre-edit content into the backup directory.
// Callers run the editor on the returned note and then Reindex it.
func (s *Service) Edit(token string, backup func(n models.Note, data []byte) error) (models.Note, error) {
	n, err := s.resolver.Resolve(token)
	if err != nil {
		return models.Note{}, err
	}
	touched, err := s.touch(n, models.SortEdited)
	if err != nil {
		return models.Note{}, err
	}
	if backup != nil {
		data, err := s.store.Read(touched.Path)
		if err != nil {
			return models.Note{}, err
		}
		if err := backup(touched, data); err != nil {
			s.logger.Warn("edit: backup failed", slog.String("path", touched.Path), slog.String("error", err.Error()))
		}
	}
	return touched, nil
}

// Random picks a uniformly random note, advances its viewed timestamp, and
// returns it with its content.
func (s *Service) Random() (models.Note, []byte, error) {
	notes, err := s.store.Enumerate()
	if err != nil {
		return models.Note{}, nil, err
	}
	if len(notes) == 0 {
		return models.Note{}, nil, fmt.Errorf("noteservice: store is empty")
	}
	n := notes[rand.Intn(len(notes))]
	touched, err := s.touch(n, models.SortViewed)
	if err != nil {
		return models.Note{}, nil, err
	}
	data, err := s.store.Read(touched.Path)
	if err != nil {
		return models.Note{}, nil, err
	}
	return touched, data, nil
}

// Delete removes a note and purges every reference to it: the listing cache
// entry, the last-note pointer (when it pointed here), and the search index
// row.
func (s *Service) Delete(n models.Note) error {
	if err := s.store.Delete(n); err != nil {
		return err
	}
	if err := s.cache.Remove(n.Path); err != nil {
		return err
	}
	if err := s.last.ClearIf(n.Path); err != nil {
		return err
	}
	if s.idx != nil {
		if err := s.idx.DeleteNote(n.Path); err != nil {
			s.logger.Warn("delete: index purge failed", slog.String("path", n.Path), slog.String("error", err.Error()))
		}
	}
	return nil
}

// SweepMove records one file relocation performed by Sweep.
type SweepMove struct {
	From, To string
}

// Sweep moves any note whose on-disk location disagrees with the canonical
// year/month directory of its creation time, patching the caches for every
// move so earlier listings keep resolving.
func (s *Service) Sweep() ([]SweepMove, error) {
	notes, err := s.store.Enumerate()
	if err != nil {
		return nil, err
	}
	var moves []SweepMove
	for _, n := range notes {
		canonical := n.CanonicalPath(s.store.Ext())
		if canonical == n.Path {
			continue
		}
		if err := s.store.Rename(n.Path, canonical); err != nil {
			return moves, err
		}
		if err := s.afterRename(n.Path, canonical); err != nil {
			return moves, err
		}
		moves = append(moves, SweepMove{From: n.Path, To: canonical})
	}
	return moves, nil
}

// Search queries the full-text index.
func (s *Service) Search(query string, limit int) ([]index.SearchResult, error) {
	if s.idx == nil {
		return nil, fmt.Errorf("noteservice: search index not open")
	}
	return s.idx.Search(query, limit)
}

// Reindex parses a note's current content and upserts it into the search
// index. A nil index makes this a no-op.
func (s *Service) Reindex(n models.Note) error {
	if s.idx == nil {
		return nil
	}
	data, err := s.store.Read(n.Path)
	if err != nil {
		return err
	}
	res := parser.Parse(data, s.tagPrefix)
	return s.idx.UpsertNote(index.NoteRow{
		Path:      n.Path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: time.Now(),
	}, res.Body)
}

// touch renames the note for the given mode and immediately repairs every
// record that referred to the old path, in a fixed order: listing cache,
// last-note pointer, search index.
func (s *Service) touch(n models.Note, mode string) (models.Note, error) {
	touched, err := s.store.Touch(n, mode)
	if err != nil {
		return models.Note{}, err
	}
	if touched.Path != n.Path {
		if err := s.afterRename(n.Path, touched.Path); err != nil {
			return models.Note{}, err
		}
	}
	if err := s.last.Set(touched.Path); err != nil {
		return models.Note{}, err
	}
	return touched, nil
}

// afterRename patches the listing cache, the last-note pointer, and the
// search index from oldPath to newPath.
func (s *Service) afterRename(oldPath, newPath string) error {
	if err := s.cache.Patch(oldPath, newPath); err != nil {
		return err
	}
	cur, err := s.last.Get()
	if err == nil && cur == oldPath {
		if err := s.last.Set(newPath); err != nil {
			return err
		}
	}
	if s.idx != nil {
		if err := s.idx.MovePath(oldPath, newPath); err != nil {
			s.logger.Warn("rename: index move failed", slog.String("path", newPath), slog.String("error", err.Error()))
		}
	}
	return nil
}

func matchTerms(text string, terms []string, caseSensitive bool) bool {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	for _, term := range terms {
		if !caseSensitive {
			term = strings.ToLower(term)
		}
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}
