// Package doc defines the document text/vector layer accessor consumed by
// the translation pipeline: span- and line-level text with geometry, a
// redaction registration primitive, an atomic batch-apply primitive, and a
// styled-text insertion primitive.
//
// The production implementation is a MuPDF binding built with -tags mupdf;
// an in-memory implementation backs tests.
package doc

import (
	"image"

	"pdf-layout-translator/internal/geom"
)

// TextSpan is an immutable glyph run extracted from a page's native
// content. Spans are captured before redaction and never mutated.
type TextSpan struct {
	Text  string
	Rect  geom.Rect // point space
	Font  string
	Size  float64
	Bold  bool
	Color uint32 // 0xRRGGBB
}

// TextLine is a native text line with its bounding geometry. Lines are the
// unit of orphan rescue: a line no detected box covers becomes its own block.
type TextLine struct {
	Text string
	Rect geom.Rect // point space
}

// TextStyle describes how inserted text is drawn.
type TextStyle struct {
	Font  string
	Size  float64
	Bold  bool
	Color uint32 // 0xRRGGBB
}

// Document is an open paginated document. A Document is owned by a single
// processing task; concurrent mutation of one Document is not supported.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int
	// Page returns the page at the given zero-based index.
	Page(index int) (Page, error)
	// Save writes the current document state to path.
	Save(path string) error
	// Close releases the underlying resources.
	Close() error
}

// Page exposes one page's text layer and mutation primitives.
//
// Redactions are two-phase: AddRedaction registers a pending removal
// rectangle, ApplyRedactions commits every pending removal in a single
// page-wide operation. Once applied, the original glyphs inside the
// redacted regions are gone; callers must capture spans first.
type Page interface {
	// Number returns the zero-based page index.
	Number() int
	// Bounds returns the page rectangle in point space.
	Bounds() geom.Rect
	// Zoom returns the fixed factor relating point space to the pixel
	// space of RenderImage.
	Zoom() float64
	// RenderImage renders the page as an image at the page zoom factor,
	// the input expected by the layout detector.
	RenderImage() (image.Image, error)
	// Spans returns the page's glyph runs with style and geometry.
	Spans() ([]TextSpan, error)
	// Lines returns the page's native text lines with geometry.
	Lines() ([]TextLine, error)
	// AddRedaction registers a pending text removal over r (point space).
	AddRedaction(r geom.Rect)
	// PendingRedactions returns the number of registered, unapplied
	// redaction rectangles.
	PendingRedactions() int
	// ApplyRedactions commits all pending redactions atomically. With
	// preserveGraphics set, vector drawings and raster images inside the
	// redacted rectangles are left untouched; only text is removed.
	ApplyRedactions(preserveGraphics bool) error
	// DiscardRedactions drops all pending redactions without applying.
	DiscardRedactions()
	// InsertTextBox draws text into r with the given style. It returns
	// false without drawing when the text does not fit at style.Size,
	// unless force is set, in which case the text is drawn anyway and
	// may overflow the rectangle.
	InsertTextBox(r geom.Rect, text string, style TextStyle, force bool) (bool, error)
}
