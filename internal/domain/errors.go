package domain

import "errors"

// Sentinel errors shared across packages. Callers test with errors.Is.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDataUnavailable indicates the catalog store could not be read.
	// Partial results are never returned alongside it.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidArgument indicates a caller-supplied threshold, limit or
	// identifier failed validation before any computation started.
	ErrInvalidArgument = errors.New("invalid argument")
)
