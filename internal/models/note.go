// Package models defines the domain types for poi.
package models

import (
	"path"
	"time"

	"github.com/starford/poi/internal/identity"
)

// Sort modes accepted by listings.
const (
	SortCreated = "created"
	SortEdited  = "edited"
	SortViewed  = "viewed"
)

// Note is a plain-text note identified by its own history: the creation,
// edit, and view timestamps are encoded in the filename and the file is
// renamed whenever one of them advances.
type Note struct {
	Path    string    `json:"path"` // store-relative, e.g. "2024/03/<stem>.poi"
	Created time.Time `json:"created"`
	Edited  time.Time `json:"edited"`
	Viewed  time.Time `json:"viewed"`
}

// Stamp returns the timestamp selected by the given sort mode, defaulting
// to the creation time for unknown modes.
func (n Note) Stamp(mode string) time.Time {
	switch mode {
	case SortEdited:
		return n.Edited
	case SortViewed:
		return n.Viewed
	default:
		return n.Created
	}
}

// Stem returns the filename stem encoding the note's history.
func (n Note) Stem() string {
	return identity.Encode(n.Created, n.Edited, n.Viewed)
}

// CanonicalPath returns where the note belongs on disk: the year/month
// directory of its creation time plus the encoded filename.
func (n Note) CanonicalPath(ext string) string {
	return path.Join(identity.Dir(n.Created), n.Stem()+ext)
}

// Entry is one row of a listing: a note plus its display metadata.
type Entry struct {
	Index int       `json:"index"`
	Note  Note      `json:"note"`
	Title string    `json:"title"`
	Stamp time.Time `json:"stamp"` // the timestamp the listing was sorted by
}
