package resolve

import "errors"

var (
	// ErrInvalidCandidate indicates an extraction candidate that cannot
	// enter resolution (empty text or unknown type).
	ErrInvalidCandidate = errors.New("invalid resolution candidate")

	// ErrResolutionFailed indicates resolution gave up after retrying a
	// registry write conflict.
	ErrResolutionFailed = errors.New("resolution failed")
)
