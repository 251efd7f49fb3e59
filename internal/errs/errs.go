// Package errs defines the error taxonomy shared by the refresh pipeline and
// the HTTP layer.
package errs

import (
	"errors"

	"github.com/rotisserie/eris"
)

// ErrNoData means an upstream call succeeded but returned an empty or
// unusable payload.
var ErrNoData = eris.New("no usable data received from source")

// ErrNotFound means no record matches a lookup.
var ErrNotFound = eris.New("record not found")

// ErrValidation means caller-supplied input is invalid.
var ErrValidation = eris.New("invalid input")

// SourceError means an upstream fetch failed or returned a non-success
// status. It is an expected operational condition (upstream outage) and is
// surfaced distinctly from internal failures.
type SourceError struct {
	Source string // which upstream: "countries" or "rates"
	Status int    // HTTP status, 0 if the request never completed
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return "source " + e.Source + " unavailable: " + e.Err.Error()
	}
	return "source " + e.Source + " unavailable"
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError wraps err as a SourceError for the named upstream.
func NewSourceError(source string, status int, err error) *SourceError {
	return &SourceError{Source: source, Status: status, Err: err}
}

// IsSourceUnavailable reports whether err (or anything in its chain) is a
// SourceError.
func IsSourceUnavailable(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
