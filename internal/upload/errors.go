package upload

import (
	"errors"
	"fmt"

	"inspection-capture/internal/media"
)

// Validation failure reasons, in the order they are checked.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidImage    = errors.New("invalid image file")
	ErrResolutionLow   = errors.New("resolution too low")
)

// ValidationError rejects a file before any processing. Never retried.
type ValidationError struct {
	Name   string
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Name, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// SinkError wraps a rejection from the external upload sink. Retrying is
// the sink's own business.
type SinkError struct {
	Name string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Name, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Kind classifies a pipeline failure.
type Kind string

const (
	KindNone          Kind = "success"
	KindValidation    Kind = "validation"
	KindConversion    Kind = "conversion"
	KindNormalization Kind = "normalization"
	KindSink          Kind = "sink"
	KindInternal      Kind = "internal"
)

// Classify maps err onto its Kind.
func Classify(err error) Kind {
	var (
		verr *ValidationError
		cerr *media.ConversionError
		nerr *media.NormalizationError
		serr *SinkError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &cerr):
		return KindConversion
	case errors.As(err, &nerr):
		return KindNormalization
	case errors.As(err, &serr):
		return KindSink
	default:
		return KindInternal
	}
}

// userMessage renders err as the single line shown to the technician.
func userMessage(name string, err error) string {
	var verr *ValidationError
	switch Classify(err) {
	case KindValidation:
		errors.As(err, &verr)
		return fmt.Sprintf("%s: %v", name, verr.Reason)
	case KindConversion:
		return fmt.Sprintf("%s: could not convert HEIC photo", name)
	case KindNormalization:
		return fmt.Sprintf("%s: could not process photo", name)
	case KindSink:
		return fmt.Sprintf("%s: upload failed", name)
	default:
		return fmt.Sprintf("%s: %v", name, err)
	}
}
