package types

import "errors"

// Error kinds surfaced by the session, binner and interpolator. Callers match
// them with errors.Is; the wrapping message carries the detail.
var (
	// ErrInvalidInput covers empty observation sequences, non-positive bin
	// widths and malformed source grids.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch is returned when array ranks or shapes disagree.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrMissingField is returned when a required dataset is absent.
	ErrMissingField = errors.New("missing field")

	// ErrResource is returned when the input file cannot be opened or read.
	ErrResource = errors.New("resource error")
)
