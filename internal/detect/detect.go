// Package detect wraps the DocLayout-YOLO model behind a small interface.
// The detector is a black box producing typed rectangles with confidence
// scores; everything downstream treats its output as untrusted.
package detect

import (
	"context"
	"image"

	"pdf-layout-translator/internal/layout"
)

// Detector produces raw layout boxes for a rendered page image. Boxes are
// in the pixel space of the input image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]layout.Box, error)
	Close() error
}

// DocLayout-YOLO DocStructBench class indices.
const (
	classTitle = iota
	classPlainText
	classAbandon
	classFigure
	classFigureCaption
	classTable
	classTableCaption
	classTableFootnote
	classIsolateFormula
	classFormulaCaption
)

// classKind maps model classes to block kinds. Captions and footnotes are
// prose and translate like body text.
var classKind = map[int]layout.Kind{
	classTitle:          layout.KindTitle,
	classPlainText:      layout.KindText,
	classAbandon:        layout.KindAbandon,
	classFigure:         layout.KindFigure,
	classFigureCaption:  layout.KindText,
	classTable:          layout.KindTable,
	classTableCaption:   layout.KindText,
	classTableFootnote:  layout.KindText,
	classIsolateFormula: layout.KindFormula,
	classFormulaCaption: layout.KindText,
}
