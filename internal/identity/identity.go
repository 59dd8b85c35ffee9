// Package identity encodes and decodes the three-timestamp note identity
// embedded in filenames. It is pure and performs no I/O.
package identity

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/poi/internal/apperr"
)

// Layout is the fixed-width timestamp format used in filename stems.
const Layout = "20060102150405"

// stampLen is the width of one encoded timestamp.
const stampLen = len(Layout)

// StemLen is the length of a full filename stem: created, edited, and
// viewed stamps concatenated.
const StemLen = 3 * stampLen

// Encode returns the filename stem for the given timestamps, truncated to
// whole seconds, in the fixed order created then edited then viewed.
func Encode(created, edited, viewed time.Time) string {
	return created.Format(Layout) + edited.Format(Layout) + viewed.Format(Layout)
}

// Decode parses a filename stem back into its three timestamps. Any shape
// other than three valid 14-digit stamps fails with apperr.ErrInvalidIdentity.
func Decode(stem string) (created, edited, viewed time.Time, err error) {
	if len(stem) != StemLen {
		err = fmt.Errorf("%w: stem %q has length %d, want %d", apperr.ErrInvalidIdentity, stem, len(stem), StemLen)
		return
	}
	if created, err = parseStamp(stem[:stampLen]); err != nil {
		return
	}
	if edited, err = parseStamp(stem[stampLen : 2*stampLen]); err != nil {
		return
	}
	viewed, err = parseStamp(stem[2*stampLen:])
	return
}

// DecodeFilename strips ext from name and decodes the remaining stem.
func DecodeFilename(name, ext string) (created, edited, viewed time.Time, err error) {
	if !strings.HasSuffix(name, ext) {
		err = fmt.Errorf("%w: filename %q lacks extension %q", apperr.ErrInvalidIdentity, name, ext)
		return
	}
	return Decode(strings.TrimSuffix(name, ext))
}

// Dir returns the store-relative year/month directory for a creation time.
// The directory depends on created only, so a note never moves between
// directories even though its filename changes.
func Dir(created time.Time) string {
	return path.Join(created.Format("2006"), created.Format("01"))
}

func parseStamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", apperr.ErrInvalidIdentity, s)
	}
	return t, nil
}
