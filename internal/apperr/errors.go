// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrInvalidIdentity means a filename does not decode to a note identity.
	ErrInvalidIdentity = errors.New("invalid note identity")
	// ErrStoreUnavailable means the store root is missing or not usable.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRenameConflict means a rename destination already exists.
	ErrRenameConflict = errors.New("rename conflict")
	// ErrIndexNotFound means the index was not part of the last listing.
	ErrIndexNotFound = errors.New("index not in last listing")
	// ErrNoLastNote means no note has been resolved yet.
	ErrNoLastNote = errors.New("last note not available")
)
