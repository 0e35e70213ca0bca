package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientVertices is returned when an area is requested for a
	// path with fewer than 3 distinct vertices.
	ErrInsufficientVertices = errors.New("polygon needs at least 3 distinct vertices")

	// ErrRingNotClosed is returned when an operation requires a closed ring
	// but the sketch is still open.
	ErrRingNotClosed = errors.New("polygon is not closed")

	// ErrSessionNotFound is returned for operations on an unknown or expired
	// drawing session.
	ErrSessionNotFound = errors.New("drawing session not found")

	// ErrSubmissionInFlight guards against re-entrant submission of the same
	// session while a previous submit is still running.
	ErrSubmissionInFlight = errors.New("submission already in flight for this session")
)

// ValidationError names the buildable-config field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GeocodeError wraps a reverse-geocoding failure. It is reported but never
// discards an already-computed area result.
type GeocodeError struct {
	Err error
}

func (e *GeocodeError) Error() string {
	return "reverse geocode failed: " + e.Err.Error()
}

func (e *GeocodeError) Unwrap() error { return e.Err }
