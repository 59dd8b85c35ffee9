package listing

import (
	"fmt"
	"strconv"

	"github.com/starford/poi/internal/models"
)

// LastToken is the shorthand for "the note most recently touched".
const LastToken = "_"

// NoteLoader decodes a note from its store-relative path.
type NoteLoader interface {
	Load(rel string) (models.Note, error)
}

// Resolver turns a command-line index token into a fully identified note by
// consulting the last-note pointer or the listing index cache. Every
// successful resolution becomes the new last note, whatever its source.
type Resolver struct {
	loader NoteLoader
	cache  *Cache
	last   *LastNote
}

// NewResolver wires a resolver over the given loader and caches.
func NewResolver(loader NoteLoader, cache *Cache, last *LastNote) *Resolver {
	return &Resolver{loader: loader, cache: cache, last: last}
}

// Resolve accepts either LastToken or a non-negative base-10 integer
// referencing the last listing's index space.
func (r *Resolver) Resolve(token string) (models.Note, error) {
	var rel string
	if token == LastToken {
		p, err := r.last.Get()
		if err != nil {
			return models.Note{}, err
		}
		rel = p
	} else {
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 {
			return models.Note{}, fmt.Errorf("listing: invalid index token %q", token)
		}
		p, err := r.cache.Resolve(idx)
		if err != nil {
			return models.Note{}, err
		}
		rel = p
	}

	n, err := r.loader.Load(rel)
	if err != nil {
		return models.Note{}, err
	}
	if err := r.last.Set(n.Path); err != nil {
		return models.Note{}, err
	}
	return n, nil
}
