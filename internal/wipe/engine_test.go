package wipe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/geom"
	"pdf-layout-translator/internal/layout"
)

func newPage(spans []doc.TextSpan) *doc.MemPage {
	return doc.NewMemPage(geom.NewRect(0, 0, 595, 842), 3.0, spans, nil)
}

func textBlock(r geom.Rect) *layout.Block {
	return &layout.Block{Kind: layout.KindText, Rect: r, Source: layout.SourceDetected}
}

func TestWipeTightness(t *testing.T) {
	// The committed rectangle is the natural union of the matched spans:
	// inside the expanded detector box, and at least as big as the spans.
	spans := []doc.TextSpan{
		{Text: "first", Rect: geom.NewRect(12, 10, 80, 22), Size: 10},
		{Text: "second", Rect: geom.NewRect(12, 24, 95, 36), Size: 10},
	}
	page := newPage(spans)
	block := textBlock(geom.NewRect(10, 8, 120, 40))

	engine := NewEngine(layout.DefaultPolicy())
	require.NoError(t, engine.Wipe(page, []*layout.Block{block}))

	spanUnion := spans[0].Rect.Union(spans[1].Rect)
	assert.Equal(t, spanUnion, block.WipeRect, "wipe rect must be the span union")

	expanded := block.Rect.Expand(layout.DefaultPolicy().WipeMargin)
	assert.True(t, expanded.Contains(block.WipeRect), "wipe rect must stay inside the expanded box")

	require.Len(t, page.Applied, 1)
	assert.Equal(t, []geom.Rect{spanUnion}, page.Applied[0])
}

func TestWipeMarginCatchesBoundaryGlyphs(t *testing.T) {
	// A span poking 2pt past the detector box is still matched thanks to
	// the 3pt search margin.
	spans := []doc.TextSpan{
		{Text: "clipped", Rect: geom.NewRect(98, 10, 112, 20), Size: 10},
	}
	page := newPage(spans)
	block := textBlock(geom.NewRect(10, 8, 100, 22))

	require.NoError(t, NewEngine(layout.DefaultPolicy()).Wipe(page, []*layout.Block{block}))
	assert.False(t, block.Skipped)
	assert.Len(t, block.Spans, 1)
}

func TestSkippedBlockProducesNoRemoval(t *testing.T) {
	page := newPage([]doc.TextSpan{
		{Text: "elsewhere", Rect: geom.NewRect(400, 700, 500, 712), Size: 10},
	})
	block := textBlock(geom.NewRect(10, 10, 100, 40))

	require.NoError(t, NewEngine(layout.DefaultPolicy()).Wipe(page, []*layout.Block{block}))
	assert.True(t, block.Skipped)
	assert.Empty(t, block.Spans)
	assert.Empty(t, page.Applied, "no apply should happen with zero removals")
}

func TestProtectedBlockRejected(t *testing.T) {
	page := newPage(nil)
	figure := &layout.Block{Kind: layout.KindFigure, Rect: geom.NewRect(0, 0, 100, 100)}

	err := NewEngine(layout.DefaultPolicy()).Wipe(page, []*layout.Block{figure})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtectedBlock)
	assert.Empty(t, page.Applied)
}

func TestSpanConsumedByOneBlockOnly(t *testing.T) {
	// A span on the boundary of two blocks is consumed by the first
	// block in order, never counted twice.
	shared := doc.TextSpan{Text: "boundary", Rect: geom.NewRect(95, 10, 125, 22), Size: 10}
	page := newPage([]doc.TextSpan{shared})

	left := textBlock(geom.NewRect(0, 0, 100, 30))
	right := textBlock(geom.NewRect(100, 0, 200, 30))

	require.NoError(t, NewEngine(layout.DefaultPolicy()).Wipe(page, []*layout.Block{left, right}))

	assert.Len(t, left.Spans, 1)
	assert.False(t, left.Skipped)
	assert.True(t, right.Skipped, "second block must not re-consume the span")
}

func TestGraphicsSurviveWipe(t *testing.T) {
	page := newPage([]doc.TextSpan{
		{Text: "caption text", Rect: geom.NewRect(10, 10, 100, 22), Size: 10},
	})
	border := geom.NewRect(5, 5, 110, 30)
	page.Drawings = []geom.Rect{border}

	block := textBlock(geom.NewRect(8, 8, 105, 25))
	require.NoError(t, NewEngine(layout.DefaultPolicy()).Wipe(page, []*layout.Block{block}))

	spans, err := page.Spans()
	require.NoError(t, err)
	assert.Empty(t, spans, "text must be removed")
	assert.Equal(t, []geom.Rect{border}, page.Drawings, "vector content must survive")
}

func TestApplyFailureDiscardsAndReverts(t *testing.T) {
	spans := []doc.TextSpan{
		{Text: "content", Rect: geom.NewRect(10, 10, 100, 22), Size: 10},
	}
	page := newPage(spans)
	page.FailApply = errors.New("xref table damaged")

	block := textBlock(geom.NewRect(8, 8, 105, 25))
	err := NewEngine(layout.DefaultPolicy()).Wipe(page, []*layout.Block{block})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrApplyFailed)

	assert.Zero(t, page.PendingRedactions(), "pending removals must be discarded")
	got, err := page.Spans()
	require.NoError(t, err)
	assert.Len(t, got, 1, "original text must remain intact")
}

func TestAtomicSingleApply(t *testing.T) {
	// Three blocks produce three removal rectangles but exactly one
	// page-wide apply.
	spans := []doc.TextSpan{
		{Text: "a", Rect: geom.NewRect(10, 10, 50, 20), Size: 10},
		{Text: "b", Rect: geom.NewRect(10, 100, 50, 110), Size: 10},
		{Text: "c", Rect: geom.NewRect(10, 200, 50, 210), Size: 10},
	}
	page := newPage(spans)
	blocks := []*layout.Block{
		textBlock(geom.NewRect(8, 8, 55, 22)),
		textBlock(geom.NewRect(8, 98, 55, 112)),
		textBlock(geom.NewRect(8, 198, 55, 212)),
	}

	require.NoError(t, NewEngine(layout.DefaultPolicy()).Wipe(page, blocks))
	require.Len(t, page.Applied, 1, "all removals must commit in one apply")
	assert.Len(t, page.Applied[0], 3)
}
