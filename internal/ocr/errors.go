package ocr

import (
	"errors"
	"fmt"
)

// Common OCR engine errors
var (
	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrEngineUnavailable is returned when an OCR engine cannot be reached
	// or is not installed on this machine.
	ErrEngineUnavailable = errors.New("OCR engine unavailable")

	// ErrRecognitionFailed is returned when an engine accepts the image but
	// fails to produce a detection result.
	ErrRecognitionFailed = errors.New("OCR recognition failed")

	// ErrEmptyImage is returned when the provided image data is empty.
	ErrEmptyImage = errors.New("image data is empty")

	// ErrInvalidPDF is returned when the provided data is not a valid PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrDocumentTooLarge is returned when the document exceeds the size limit
	// of the backing service.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrEmptyDocument is returned when the document contains no readable text.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// EngineError wraps errors with additional context about which engine and
// operation failed.
type EngineError struct {
	// Engine is the engine tag (e.g. "tesseract", "paddle", "vision").
	Engine string

	// Op is the operation that failed (e.g. "Recognize", "ExtractText").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s: %s failed: %s: %v", e.Engine, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s: %s failed: %v", e.Engine, e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *EngineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapEngineError wraps an error as an EngineError if it isn't already one.
func WrapEngineError(engine, op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var engErr *EngineError
	if errors.As(err, &engErr) {
		return err // Already wrapped
	}

	return &EngineError{Engine: engine, Op: op, Err: err, Details: details}
}
