package model

import "errors"

var (
	// ErrInvalidInput marks empty, mismatched or out-of-range training data.
	// Nothing is trained when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataUnavailable marks a persisted artifact that is missing or corrupt
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrConvergence is attached to fit results that hit the iteration bound.
	// It is a warning: the parameters are still usable.
	ErrConvergence = errors.New("optimizer did not converge")
)
