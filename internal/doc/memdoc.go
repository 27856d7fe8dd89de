package doc

import (
	"errors"
	"image"
	"os"

	"pdf-layout-translator/internal/geom"
)

// MemDocument is an in-memory Document implementation. It backs tests and
// lets the pipeline run end to end without a native PDF backend.
type MemDocument struct {
	pages  []*MemPage
	closed bool
}

// NewMemDocument creates a document from the given pages.
func NewMemDocument(pages ...*MemPage) *MemDocument {
	for i, p := range pages {
		p.number = i
	}
	return &MemDocument{pages: pages}
}

func (d *MemDocument) PageCount() int { return len(d.pages) }

func (d *MemDocument) Page(index int) (Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, errors.New("page index out of range")
	}
	return d.pages[index], nil
}

func (d *MemDocument) Save(path string) error {
	// There is no native byte stream to serialize; write a marker so the
	// output path exists for callers that check it.
	return os.WriteFile(path, []byte("memdoc"), 0644)
}

func (d *MemDocument) Close() error {
	d.closed = true
	return nil
}

// Insertion records one InsertTextBox call on a MemPage.
type Insertion struct {
	Rect   geom.Rect
	Text   string
	Style  TextStyle
	Forced bool
}

// MemPage is an in-memory Page. Spans and lines are set up front; applied
// redactions remove intersecting spans and lines, emulating a content
// stream text strip.
type MemPage struct {
	number  int
	bounds  geom.Rect
	zoom    float64
	spans   []TextSpan
	lines   []TextLine
	pending []geom.Rect

	// Drawings and Images model the vector/raster content of the page;
	// they survive ApplyRedactions with preserveGraphics set.
	Drawings []geom.Rect
	Images   []geom.Rect

	// Insertions records every text insertion for assertions.
	Insertions []Insertion

	// Applied records each committed batch of redaction rectangles.
	Applied [][]geom.Rect

	// FailApply makes ApplyRedactions return an error, simulating an
	// underlying document mutation failure.
	FailApply error
}

// NewMemPage creates a page with the given geometry and content.
func NewMemPage(bounds geom.Rect, zoom float64, spans []TextSpan, lines []TextLine) *MemPage {
	return &MemPage{bounds: bounds, zoom: zoom, spans: spans, lines: lines}
}

func (p *MemPage) Number() int       { return p.number }
func (p *MemPage) Bounds() geom.Rect { return p.bounds }
func (p *MemPage) Zoom() float64     { return p.zoom }

func (p *MemPage) RenderImage() (image.Image, error) {
	w := int(p.bounds.Width() * p.zoom)
	h := int(p.bounds.Height() * p.zoom)
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (p *MemPage) Spans() ([]TextSpan, error) {
	out := make([]TextSpan, len(p.spans))
	copy(out, p.spans)
	return out, nil
}

func (p *MemPage) Lines() ([]TextLine, error) {
	out := make([]TextLine, len(p.lines))
	copy(out, p.lines)
	return out, nil
}

func (p *MemPage) AddRedaction(r geom.Rect) {
	p.pending = append(p.pending, r)
}

func (p *MemPage) PendingRedactions() int { return len(p.pending) }

func (p *MemPage) ApplyRedactions(preserveGraphics bool) error {
	if p.FailApply != nil {
		return p.FailApply
	}
	if len(p.pending) == 0 {
		return nil
	}

	var keptSpans []TextSpan
	for _, s := range p.spans {
		if !intersectsAny(s.Rect, p.pending) {
			keptSpans = append(keptSpans, s)
		}
	}
	p.spans = keptSpans

	var keptLines []TextLine
	for _, l := range p.lines {
		if !intersectsAny(l.Rect, p.pending) {
			keptLines = append(keptLines, l)
		}
	}
	p.lines = keptLines

	if !preserveGraphics {
		var keptDraw []geom.Rect
		for _, d := range p.Drawings {
			if !intersectsAny(d, p.pending) {
				keptDraw = append(keptDraw, d)
			}
		}
		p.Drawings = keptDraw
	}

	batch := make([]geom.Rect, len(p.pending))
	copy(batch, p.pending)
	p.Applied = append(p.Applied, batch)
	p.pending = nil
	return nil
}

func (p *MemPage) DiscardRedactions() { p.pending = nil }

func (p *MemPage) InsertTextBox(r geom.Rect, text string, style TextStyle, force bool) (bool, error) {
	fits := TextFits(r, text, style.Size)
	if !fits && !force {
		return false, nil
	}
	p.Insertions = append(p.Insertions, Insertion{Rect: r, Text: text, Style: style, Forced: force})
	return fits, nil
}

func intersectsAny(r geom.Rect, rects []geom.Rect) bool {
	for _, o := range rects {
		if r.Intersects(o) {
			return true
		}
	}
	return false
}
