// Package layout turns the raw output of the visual layout detector into
// the authoritative set of translatable blocks for a page. The detector is
// untrusted: its boxes are imprecise, overlapping, and sometimes
// misclassified, so assembly performs protection filtering, rescue of
// missed or misflagged content, and two-pass non-maximum suppression.
package layout

import (
	"strings"

	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/geom"
)

// Kind classifies a detected region by content type.
type Kind int

const (
	KindText Kind = iota
	KindTitle
	KindList
	KindTable
	KindFigure
	KindFormula
	KindAbandon
)

var kindNames = map[Kind]string{
	KindText:    "text",
	KindTitle:   "title",
	KindList:    "list",
	KindTable:   "table",
	KindFigure:  "figure",
	KindFormula: "formula",
	KindAbandon: "abandon",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Protected reports whether regions of this kind must never be wiped or
// translated. Protected regions also veto overlapping translatable boxes.
func (k Kind) Protected() bool {
	return k == KindFigure || k == KindTable || k == KindFormula
}

// Translatable reports whether regions of this kind carry text that the
// pipeline translates.
func (k Kind) Translatable() bool {
	return k == KindText || k == KindTitle || k == KindList
}

// Source records how a block entered the pipeline.
type Source string

const (
	SourceDetected       Source = "detected"
	SourceRescuedAbandon Source = "rescued-abandon"
	SourceRescuedOrphan  Source = "rescued-orphan"
)

// Box is one raw detection: kind, bounding box in detector pixel space,
// and model confidence.
type Box struct {
	Kind       Kind
	Rect       geom.Rect // pixel space
	Confidence float64
}

// Block is a surviving translatable (or protected) unit on a page.
// Assembly produces blocks with point-space geometry; the wipe stage fills
// in WipeRect and Spans; the render stage consumes both.
type Block struct {
	Kind       Kind
	Rect       geom.Rect // point space after assembly
	Confidence float64
	Source     Source

	// Filled by the wipe stage.
	WipeRect geom.Rect
	Spans    []doc.TextSpan
	// Skipped marks a block that matched zero spans (detector false
	// positive); skipped blocks are neither wiped nor rendered.
	Skipped bool
}

// OriginalText reconstructs the block's source text from its spans,
// verbatim, inserting a line break when a span starts below the previous
// one.
func (b *Block) OriginalText() string {
	var sb strings.Builder
	for i, s := range b.Spans {
		if i > 0 && s.Rect.Y0 >= b.Spans[i-1].Rect.Y1-1 {
			sb.WriteString("\n")
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Policy holds the tunable thresholds of block assembly and wiping. The
// defaults mirror the values the detection model was calibrated against;
// they are configuration, not invariants.
type Policy struct {
	// ProtectedCoverage drops a translatable box when more than this
	// fraction of its area overlaps a protected region.
	ProtectedCoverage float64 `json:"protected_coverage"`
	// ShellCoverage drops a large box when two or more smaller boxes
	// jointly cover at least this fraction of its area (NMS pass 1).
	ShellCoverage float64 `json:"shell_coverage"`
	// ContainmentRatio drops a box contained at least this fraction
	// within an already-kept box (NMS pass 2).
	ContainmentRatio float64 `json:"containment_ratio"`
	// OrphanOverlap is the maximum best-overlap ratio a native text line
	// may have against existing boxes and still be rescued as an orphan.
	OrphanOverlap float64 `json:"orphan_overlap"`
	// MinRescueChars is the minimum covered text length for an abandon
	// box to be reclassified as text.
	MinRescueChars int `json:"min_rescue_chars"`
	// WipeMargin expands a block's box (points) before span matching, to
	// tolerate boundary-glyph clipping by the detector.
	WipeMargin float64 `json:"wipe_margin"`
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		ProtectedCoverage: 0.50,
		ShellCoverage:     0.60,
		ContainmentRatio:  0.80,
		OrphanOverlap:     0.40,
		MinRescueChars:    10,
		WipeMargin:        3.0,
	}
}
