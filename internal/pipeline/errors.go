package pipeline

import "fmt"

// ErrorCode classifies pipeline failures.
type ErrorCode string

const (
	// ErrDetection: the layout backend was unavailable or timed out.
	// Recoverable per page: the page passes through untranslated.
	ErrDetection ErrorCode = "DETECTION_ERROR"
	// ErrWipe: the redaction apply failed. Fatal for the page; the page
	// reverts to its pre-pipeline state.
	ErrWipe ErrorCode = "WIPE_ERROR"
	// ErrRender: drawing translated text failed.
	ErrRender ErrorCode = "RENDER_ERROR"
	// ErrDocument: the input document is malformed or unreadable.
	// Propagates to the caller.
	ErrDocument ErrorCode = "DOCUMENT_ERROR"
	// ErrInternal: unexpected internal failure.
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// PipelineError is a coded error with an optional cause.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Page    int // -1 when not page-scoped
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Page >= 0 {
		if e.Cause != nil {
			return fmt.Sprintf("[%s] page %d: %s: %v", e.Code, e.Page, e.Message, e.Cause)
		}
		return fmt.Sprintf("[%s] page %d: %s", e.Code, e.Page, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// NewError creates a document-scoped pipeline error.
func NewError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Page: -1, Cause: cause}
}

// NewPageError creates a page-scoped pipeline error.
func NewPageError(code ErrorCode, page int, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Page: page, Cause: cause}
}
