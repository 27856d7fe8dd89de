//go:build !mupdf || !cgo

package doc

import "errors"

// ErrNotAvailable is returned by Open when the module was built without
// the MuPDF backend.
var ErrNotAvailable = errors.New("doc: mupdf backend not available (build with -tags mupdf)")

// Open requires the MuPDF backend. Build with -tags mupdf to enable it.
func Open(path string, zoom float64, fontPath string) (Document, error) {
	return nil, ErrNotAvailable
}

// IsAvailable reports whether the MuPDF backend was compiled in.
func IsAvailable() bool { return false }
