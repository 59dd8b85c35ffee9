package listing

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/starford/poi/internal/apperr"
)

// LastNote is the single-slot pointer to the most recently resolved note,
// persisted as one line of text holding a store-relative path. It backs the
// "_" shorthand.
type LastNote struct {
	path string // pointer file location
}

// NewLastNote returns a LastNote persisted at the given file path.
func NewLastNote(path string) *LastNote {
	return &LastNote{path: path}
}

// Set records notePath as the last touched note.
func (l *LastNote) Set(notePath string) error {
	return atomicWrite(l.path, []byte(notePath+"\n"))
}

// Get returns the current pointer value, failing with apperr.ErrNoLastNote
// when no note has been touched yet.
func (l *LastNote) Get() (string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNoLastNote
		}
		return "", fmt.Errorf("listing: read last note: %w", err)
	}
	p := strings.TrimSpace(string(data))
	if p == "" {
		return "", apperr.ErrNoLastNote
	}
	return p, nil
}

// Clear removes the pointer. Clearing an absent pointer is not an error.
func (l *LastNote) Clear() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("listing: clear last note: %w", err)
	}
	return nil
}

// ClearIf clears the pointer only when it currently equals notePath, as
// after deleting the pointed-to note.
func (l *LastNote) ClearIf(notePath string) error {
	cur, err := l.Get()
	if err != nil {
		if errors.Is(err, apperr.ErrNoLastNote) {
			return nil
		}
		return err
	}
	if cur != notePath {
		return nil
	}
	return l.Clear()
}
