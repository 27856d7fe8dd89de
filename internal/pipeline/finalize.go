package pipeline

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdf-layout-translator/internal/logger"
)

// ValidateOutput checks the written document: structurally valid PDF and
// the same page count as the input. A page count mismatch means the
// pipeline dropped or duplicated a page, which must surface as a hard
// error rather than a quietly truncated output.
func ValidateOutput(path string, wantPages int) error {
	if err := api.ValidateFile(path, nil); err != nil {
		return NewError(ErrDocument, "output validation failed", err)
	}

	got, err := api.PageCountFile(path)
	if err != nil {
		return NewError(ErrDocument, "output page count failed", err)
	}
	if got != wantPages {
		return NewError(ErrDocument,
			fmt.Sprintf("output has %d pages, input had %d", got, wantPages), nil)
	}

	logger.Debug("output validated",
		logger.String("path", path), logger.Int("pages", got))
	return nil
}
