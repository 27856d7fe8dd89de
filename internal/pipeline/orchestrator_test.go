package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/detect"
	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/geom"
	"pdf-layout-translator/internal/governor"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/render"
	"pdf-layout-translator/internal/translate"
	"pdf-layout-translator/internal/wipe"
)

type fakeDetector struct {
	boxes []layout.Box
	err   error
}

func (f *fakeDetector) Detect(_ context.Context, _ image.Image) ([]layout.Box, error) {
	return f.boxes, f.err
}

func (f *fakeDetector) Close() error { return nil }

type fakeTranslator struct {
	err error
}

func (f *fakeTranslator) Translate(_ context.Context, req translate.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "译文：" + req.Text, nil
}

func newOrchestrator(det detect.Detector, tr translate.Translator) *Orchestrator {
	gov := governor.New()
	policy := layout.DefaultPolicy()
	return NewOrchestrator(
		det,
		layout.NewAssembler(policy),
		wipe.NewEngine(policy),
		render.NewEngine(render.DefaultConfig(), tr, gov),
		gov,
		0,
	)
}

// testPage builds a page with one paragraph span, at zoom 3 so detector
// pixel space is 3x point space.
func testPage() *doc.MemPage {
	spans := []doc.TextSpan{
		{Text: "paragraph text to translate", Rect: geom.NewRect(10, 10, 300, 60),
			Font: "Times-Roman", Size: 11, Color: 0x000000},
	}
	return doc.NewMemPage(geom.NewRect(0, 0, 595, 842), 3.0, spans, nil)
}

// textBoxPixels covers the testPage span in detector pixel space.
func textBoxPixels() layout.Box {
	return layout.Box{Kind: layout.KindText, Rect: geom.NewRect(24, 24, 960, 210), Confidence: 0.9}
}

func TestProcessPageHappyPath(t *testing.T) {
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels()}}
	page := testPage()

	result := newOrchestrator(det, &fakeTranslator{}).ProcessPage(context.Background(), page)

	assert.Equal(t, StateCommitted, result.State)
	assert.False(t, result.Passthrough)
	assert.NoError(t, result.Err)
	assert.Equal(t, []PageState{
		StateDetected, StateAssembled, StateWiped, StateRendered, StateCommitted,
	}, result.Trace, "states must advance strictly in order")

	spans, err := page.Spans()
	require.NoError(t, err)
	assert.Empty(t, spans, "original text must be wiped")
	require.Len(t, page.Insertions, 1)
	assert.Contains(t, page.Insertions[0].Text, "译文")
}

func TestDetectionFailurePassesPageThrough(t *testing.T) {
	det := &fakeDetector{err: errors.New("backend unavailable")}
	page := testPage()

	result := newOrchestrator(det, &fakeTranslator{}).ProcessPage(context.Background(), page)

	assert.Equal(t, StateCommitted, result.State)
	assert.True(t, result.Passthrough)
	var perr *PipelineError
	require.ErrorAs(t, result.Err, &perr)
	assert.Equal(t, ErrDetection, perr.Code)

	// The page is untouched: text intact, nothing drawn.
	spans, err := page.Spans()
	require.NoError(t, err)
	assert.Len(t, spans, 1)
	assert.Empty(t, page.Insertions)
	assert.Empty(t, page.Applied)
}

func TestWipeFailureFailsPageCleanly(t *testing.T) {
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels()}}
	page := testPage()
	page.FailApply = errors.New("content stream damaged")

	result := newOrchestrator(det, &fakeTranslator{}).ProcessPage(context.Background(), page)

	assert.Equal(t, StateFailed, result.State)
	var perr *PipelineError
	require.ErrorAs(t, result.Err, &perr)
	assert.Equal(t, ErrWipe, perr.Code)

	// Reverted, not half-processed: text intact, nothing pending,
	// nothing drawn.
	spans, err := page.Spans()
	require.NoError(t, err)
	assert.Len(t, spans, 1)
	assert.Zero(t, page.PendingRedactions())
	assert.Empty(t, page.Insertions)
}

func TestProtectedRegionsNeverWiped(t *testing.T) {
	// A figure with caption text inside it: the figure region must not
	// be redacted even though it contains spans.
	figurePx := layout.Box{Kind: layout.KindFigure, Rect: geom.NewRect(30, 600, 900, 1500), Confidence: 0.95}
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels(), figurePx}}

	spans := []doc.TextSpan{
		{Text: "paragraph text to translate", Rect: geom.NewRect(10, 10, 300, 60),
			Font: "Times-Roman", Size: 11},
		{Text: "axis label", Rect: geom.NewRect(50, 300, 150, 320),
			Font: "Helvetica", Size: 8},
	}
	page := doc.NewMemPage(geom.NewRect(0, 0, 595, 842), 3.0, spans, nil)

	result := newOrchestrator(det, &fakeTranslator{}).ProcessPage(context.Background(), page)
	require.Equal(t, StateCommitted, result.State)

	figurePt := geom.FromPixels(figurePx.Rect, 3.0)
	for _, batch := range page.Applied {
		for _, r := range batch {
			assert.False(t, figurePt.Contains(r),
				"redaction %+v lies inside the protected figure", r)
		}
	}

	remaining, err := page.Spans()
	require.NoError(t, err)
	require.Len(t, remaining, 1, "figure text must survive the wipe")
	assert.Equal(t, "axis label", remaining[0].Text)
}

func TestTranslationFailureStillCommits(t *testing.T) {
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels()}}
	page := testPage()

	result := newOrchestrator(det, &fakeTranslator{err: errors.New("timeout")}).
		ProcessPage(context.Background(), page)

	assert.Equal(t, StateCommitted, result.State)
	require.Len(t, page.Insertions, 1, "original text must be re-inserted")
	assert.Equal(t, "paragraph text to translate", page.Insertions[0].Text)
}
