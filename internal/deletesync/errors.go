package deletesync

import (
	"errors"
	"fmt"
)

// AbortError stops a run before (or instead of) any deletion. Run converts it
// into a safety-triggered result.
type AbortError struct {
	Reason string
	// Inventory sizes known at the time of the abort
	SeriesCount int
	MovieCount  int
	Err         error
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delete sync aborted: %s: %v", e.Reason, e.Err)
	}
	return "delete sync aborted: " + e.Reason
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Message is the human readable explanation placed in the result
func (e *AbortError) Message() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func abort(reason string, series, movies int, err error) *AbortError {
	return &AbortError{Reason: reason, SeriesCount: series, MovieCount: movies, Err: err}
}

// IsAbort reports whether err carries an *AbortError
func IsAbort(err error) bool {
	var target *AbortError
	return errors.As(err, &target)
}
