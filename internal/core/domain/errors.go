package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrShapeMismatch is matched by every *ShapeError.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptySequence is returned when an operation needs at least one point.
	ErrEmptySequence = errors.New("empty point sequence")

	// ErrInvalidCoordinate is returned for latitudes outside [-90,90] or
	// longitudes outside [-180,180].
	ErrInvalidCoordinate = errors.New("coordinate out of range")

	// ErrInvalidArgument marks any other malformed request value.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ShapeError reports parallel arrays of differing lengths.
type ShapeError struct {
	Field string
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: %s has length %d, want %d", e.Field, e.Got, e.Want)
}

// Is makes errors.Is(err, ErrShapeMismatch) hold for any *ShapeError.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// IsInputError reports whether err stems from malformed caller input rather
// than a failure during computation or I/O.
func IsInputError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrEmptySequence) ||
		errors.Is(err, ErrInvalidCoordinate) ||
		errors.Is(err, ErrInvalidArgument)
}
