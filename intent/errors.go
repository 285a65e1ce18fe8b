package intent

import (
	"errors"
	"fmt"
)

var (
	ErrParseFailure        = errors.New("model output could not be parsed")
	ErrUpstreamTimeout     = errors.New("language model timed out")
	ErrUpstreamUnavailable = errors.New("language model request failed")
)

// ParseFailureError carries the last raw model output for diagnostics.
type ParseFailureError struct {
	Raw      string
	Reason   string
	Attempts int
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("model output could not be parsed after %d attempt(s): %s", e.Attempts, e.Reason)
}

func (e *ParseFailureError) Is(target error) bool { return target == ErrParseFailure }
