// Package wipe removes the original text of surviving blocks from a
// page's content stream. Removal is tight (the union of the glyph spans a
// block actually covers, not the detector's loose box) and atomic (one
// page-wide apply after every block is resolved).
package wipe

import (
	"errors"
	"fmt"

	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/geom"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
)

// ErrProtectedBlock is returned when a protected block reaches the wipe
// stage. Assembly must filter these out; seeing one here is a bug.
var ErrProtectedBlock = errors.New("wipe: protected block in wipe input")

// ErrApplyFailed wraps an underlying redaction apply failure. The page's
// pending changes were discarded; the page is in its pre-wipe state.
var ErrApplyFailed = errors.New("wipe: redaction apply failed")

// Engine computes and commits per-block text removal.
type Engine struct {
	policy layout.Policy
}

// NewEngine creates a wipe engine with the given policy.
func NewEngine(policy layout.Policy) *Engine {
	return &Engine{policy: policy}
}

// Wipe resolves each block to the exact spans it covers, registers one
// removal rectangle per block, and commits all removals in a single
// page-wide apply that strips text only, leaving vector and raster
// content intact.
//
// Each span is consumed by at most one block, in block order. A block
// matching zero spans is marked Skipped and produces no removal. On apply
// failure all pending removals are discarded and the page reverts; the
// error is fatal for the page, not the document.
func (e *Engine) Wipe(page doc.Page, blocks []*layout.Block) error {
	for _, b := range blocks {
		if b.Kind.Protected() {
			return fmt.Errorf("%w: kind %s", ErrProtectedBlock, b.Kind)
		}
	}

	spans, err := page.Spans()
	if err != nil {
		return fmt.Errorf("wipe: span extraction: %w", err)
	}

	consumed := make([]bool, len(spans))
	removals := 0
	for _, b := range blocks {
		search := b.Rect.Expand(e.policy.WipeMargin)

		var matched []doc.TextSpan
		wipeRect := geom.Rect{}
		first := true
		for i, s := range spans {
			if consumed[i] || !s.Rect.Intersects(search) {
				continue
			}
			consumed[i] = true
			matched = append(matched, s)
			if first {
				wipeRect = s.Rect
				first = false
			} else {
				wipeRect = wipeRect.Union(s.Rect)
			}
		}

		if len(matched) == 0 {
			// Detector false positive; nothing to remove or translate.
			b.Skipped = true
			logger.Debug("block skipped: no spans matched",
				logger.String("kind", b.Kind.String()),
				logger.String("source", string(b.Source)))
			continue
		}

		b.Spans = matched
		b.WipeRect = wipeRect
		page.AddRedaction(wipeRect)
		removals++
	}

	if removals == 0 {
		return nil
	}

	if err := page.ApplyRedactions(true); err != nil {
		page.DiscardRedactions()
		return fmt.Errorf("%w: page %d: %v", ErrApplyFailed, page.Number(), err)
	}

	logger.Debug("wipe applied",
		logger.Int("page", page.Number()),
		logger.Int("removals", removals))
	return nil
}
