package index

import (
	"log/slog"
	"time"

	"github.com/starford/poi/internal/checksum"
	"github.com/starford/poi/internal/models"
	"github.com/starford/poi/internal/parser"
)

// Storage is the slice of the note store the index needs.
type Storage interface {
	Enumerate() ([]models.Note, error)
	Read(rel string) ([]byte, error)
	Root() string
	Ext() string
}

// Sync walks the store and brings the index up to date:
//   - new/changed notes are parsed and upserted
//   - notes removed from disk are deleted from the index
func Sync(db *DB, store Storage, tagPrefix string, logger *slog.Logger) error {
	notes, err := store.Enumerate()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		disk[n.Path] = struct{}{}

		data, err := store.Read(n.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", n.Path), slog.String("error", err.Error()))
			continue
		}
		if checksums[n.Path] == checksum.Sum(data) {
			continue
		}
		if err := indexNote(db, n.Path, data, tagPrefix); err != nil {
			logger.Warn("sync: index failed", slog.String("path", n.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", n.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexNote parses data and upserts it into the DB.
func indexNote(db *DB, path string, data []byte, tagPrefix string) error {
	res := parser.Parse(data, tagPrefix)
	return db.UpsertNote(NoteRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: time.Now(),
	}, res.Body)
}
