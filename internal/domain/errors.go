package domain

import "errors"

// Sentinel errors shared by the domain, the use cases and the adapters.
// Callers wrap them with fmt.Errorf("...: %w") and match with errors.Is.
var (
	// ErrNotFound is returned for an unknown portfolio identifier
	ErrNotFound = errors.New("portfolio not found")

	// ErrUnknownTimestamp is returned when a timestamp has no price sample.
	// For a portfolio clock this means the series is exhausted.
	ErrUnknownTimestamp = errors.New("unknown timestamp")

	// ErrInvalidAmount is returned for a non-numeric or non-finite order size
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrMalformedInput is returned when the price series cannot be loaded
	ErrMalformedInput = errors.New("malformed price series")

	// ErrPersistence is returned when a durable write fails
	ErrPersistence = errors.New("persistence failure")
)
