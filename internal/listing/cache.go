// Package listing maintains the ephemeral listing index cache, the last-note
// pointer, and the resolver that turns command-line index tokens into notes.
package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/poi/internal/apperr"
)

// Cache is the persisted mapping from listing indices to store-relative note
// paths. It is rebuilt in full on every listing and patched in place when a
// referenced note is renamed or deleted, so indices printed by the last
// listing keep resolving between listings.
type Cache struct {
	path string // cache file location
}

// NewCache returns a Cache persisted at the given file path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Rebuild replaces the whole cache with the given ordered paths, oldest
// first: index 0 is the chronologically earliest item of the filtered,
// sorted result set and N-1 the most recent, whichever timestamp the caller
// sorted by.
func (c *Cache) Rebuild(orderedPaths []string) (map[int]string, error) {
	m := make(map[int]string, len(orderedPaths))
	for i, p := range orderedPaths {
		m[i] = p
	}
	if err := c.persist(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the current mapping. A missing cache file yields an empty map.
func (c *Cache) Load() (map[int]string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[int]string{}, nil
		}
		return nil, fmt.Errorf("listing: read cache: %w", err)
	}
	var m map[int]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("listing: parse cache: %w", err)
	}
	if m == nil {
		m = map[int]string{}
	}
	return m, nil
}

// Resolve looks up a listing index. Absent keys (listing never run, index
// out of range, or note deleted since) fail with apperr.ErrIndexNotFound.
func (c *Cache) Resolve(index int) (string, error) {
	m, err := c.Load()
	if err != nil {
		return "", err
	}
	p, ok := m[index]
	if !ok {
		return "", fmt.Errorf("listing: %w: %d", apperr.ErrIndexNotFound, index)
	}
	return p, nil
}

// Patch rewrites every entry equal to oldPath to newPath. A no-op when the
// path is not present (the note was not part of the last listing).
func (c *Cache) Patch(oldPath, newPath string) error {
	m, err := c.Load()
	if err != nil {
		return err
	}
	dirty := false
	for i, p := range m {
		if p == oldPath {
			m[i] = newPath
			dirty = true
		}
	}
	if !dirty {
		return nil
	}
	return c.persist(m)
}

// Remove deletes every entry equal to path, after the note itself is gone.
func (c *Cache) Remove(path string) error {
	m, err := c.Load()
	if err != nil {
		return err
	}
	dirty := false
	for i, p := range m {
		if p == path {
			delete(m, i)
			dirty = true
		}
	}
	if !dirty {
		return nil
	}
	return c.persist(m)
}

// persist writes the mapping atomically: tmp file, then rename.
func (c *Cache) persist(m map[int]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("listing: encode cache: %w", err)
	}
	return atomicWrite(c.path, data)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("listing: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".poi-tmp-*")
	if err != nil {
		return fmt.Errorf("listing: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("listing: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("listing: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("listing: rename temp: %w", err)
	}
	return nil
}
