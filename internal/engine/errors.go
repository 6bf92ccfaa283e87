package engine

import "errors"

var (
	// ErrInsufficientHistory is returned when a series has fewer populated
	// periods than Params.MinHistory.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInvalidInput is returned for negative, NaN or infinite volumes,
	// non-chronological records and out-of-range arguments.
	ErrInvalidInput = errors.New("invalid input")
)
