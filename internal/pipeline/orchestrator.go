// Package pipeline sequences detection, assembly, wipe, and render per
// page, and aggregates per-page results into the output document.
package pipeline

import (
	"context"
	"time"

	"pdf-layout-translator/internal/detect"
	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/governor"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/render"
	"pdf-layout-translator/internal/wipe"
)

// PageState tracks a page through the pipeline. Transitions are strictly
// sequential; a failed page carries StateFailed regardless of how far it
// got.
type PageState int

const (
	StatePending PageState = iota
	StateDetected
	StateAssembled
	StateWiped
	StateRendered
	StateCommitted
	StateFailed
)

var stateNames = map[PageState]string{
	StatePending:   "pending",
	StateDetected:  "detected",
	StateAssembled: "assembled",
	StateWiped:     "wiped",
	StateRendered:  "rendered",
	StateCommitted: "committed",
	StateFailed:    "failed",
}

func (s PageState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// PageResult is the outcome of processing one page.
type PageResult struct {
	Page   int
	State  PageState
	Blocks int
	// Passthrough marks a page left untouched after a recoverable
	// detection failure.
	Passthrough bool
	// Err is set for passthrough and failed pages.
	Err error
	// Trace records the states the page moved through, in order.
	Trace []PageState
}

func (r *PageResult) advance(s PageState) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// Orchestrator runs the per-page state machine. It owns no cross-page
// state; each ProcessPage call is independent and page-local.
type Orchestrator struct {
	detector      detect.Detector
	assembler     *layout.Assembler
	wiper         *wipe.Engine
	renderer      *render.Engine
	gov           *governor.Governor
	detectTimeout time.Duration
}

// NewOrchestrator wires the per-page stages together. The governor
// serializes detection and translation backend access across all pages
// and documents sharing it.
func NewOrchestrator(detector detect.Detector, assembler *layout.Assembler, wiper *wipe.Engine, renderer *render.Engine, gov *governor.Governor, detectTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		detector:      detector,
		assembler:     assembler,
		wiper:         wiper,
		renderer:      renderer,
		gov:           gov,
		detectTimeout: detectTimeout,
	}
}

// ProcessPage runs one page through Detected → Assembled → Wiped →
// Rendered → Committed.
//
// A detection failure is recoverable: the page is committed untouched and
// marked Passthrough. A wipe apply failure is fatal for the page; the
// page reverts to its pre-pipeline state and the result is StateFailed.
// The page is never left partially processed.
func (o *Orchestrator) ProcessPage(ctx context.Context, page doc.Page) *PageResult {
	result := &PageResult{Page: page.Number(), State: StatePending}

	boxes, err := o.detect(ctx, page)
	if err != nil {
		// Recoverable: the original page passes through unchanged.
		logger.Warn("detection failed, passing page through",
			logger.Int("page", page.Number()), logger.Err(err))
		result.Passthrough = true
		result.Err = NewPageError(ErrDetection, page.Number(), "layout detection failed", err)
		result.advance(StateCommitted)
		return result
	}
	result.advance(StateDetected)

	spans, err := page.Spans()
	if err != nil {
		return o.fail(result, NewPageError(ErrDocument, page.Number(), "span extraction failed", err))
	}
	lines, err := page.Lines()
	if err != nil {
		return o.fail(result, NewPageError(ErrDocument, page.Number(), "line extraction failed", err))
	}

	blocks := o.assembler.Assemble(boxes, spans, lines, page.Zoom())
	result.advance(StateAssembled)
	result.Blocks = len(blocks)

	var translatable []*layout.Block
	for _, b := range blocks {
		if !b.Kind.Protected() {
			translatable = append(translatable, b)
		}
	}

	if err := o.wiper.Wipe(page, translatable); err != nil {
		// The wipe engine discarded all pending removals; the page is in
		// its pre-pipeline state.
		return o.fail(result, NewPageError(ErrWipe, page.Number(), "redaction apply failed", err))
	}
	result.advance(StateWiped)

	if err := o.renderer.Render(ctx, page, translatable); err != nil {
		return o.fail(result, NewPageError(ErrRender, page.Number(), "text insertion failed", err))
	}
	result.advance(StateRendered)

	result.advance(StateCommitted)
	logger.Info("page processed",
		logger.Int("page", page.Number()),
		logger.Int("blocks", result.Blocks))
	return result
}

func (o *Orchestrator) detect(ctx context.Context, page doc.Page) ([]layout.Box, error) {
	img, err := page.RenderImage()
	if err != nil {
		return nil, err
	}
	var boxes []layout.Box
	err = o.gov.Do(ctx, governor.BackendDetector, o.detectTimeout, func(ctx context.Context) error {
		var derr error
		boxes, derr = o.detector.Detect(ctx, img)
		return derr
	})
	return boxes, err
}

func (o *Orchestrator) fail(result *PageResult, err *PipelineError) *PageResult {
	logger.Error("page failed", err,
		logger.Int("page", result.Page),
		logger.String("lastState", result.State.String()))
	result.Err = err
	result.advance(StateFailed)
	return result
}
