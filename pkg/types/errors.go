// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Error kinds shared by the harvesting stages. Callers test for them with
// errors.Is.
var (
	// ErrNotFound reports a local document path that does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrFetchFailed reports a transport failure or non-success response.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrInvalidDocument reports a document the text extractor could not read.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrNoPDFAvailable reports a feed entry without a PDF link.
	ErrNoPDFAvailable = errors.New("no pdf available")
)

// HarvestError attaches the failing operation and source to one of the
// error kinds above. Both Kind and Err are reachable through errors.Is and
// errors.As.
type HarvestError struct {
	Op     string // e.g. "fetch pdf", "parse entry"
	Source string // path, URL, or entry id
	Kind   error
	Err    error
}

func (e *HarvestError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *HarvestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewHarvestError builds a HarvestError.
func NewHarvestError(op, source string, kind, err error) *HarvestError {
	return &HarvestError{Op: op, Source: source, Kind: kind, Err: err}
}

// ErrorKind returns a short label for the error kind in err, for logs and
// metric labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoPDFAvailable):
		return "no_pdf"
	case errors.Is(err, ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	default:
		return "other"
	}
}
