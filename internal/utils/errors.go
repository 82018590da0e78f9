package utils

import (
	"fmt"
	"slices"
)

// ArrayError records the engine operation that failed and, when known,
// the coordinates it was working on: a section start or a chunk origin.
type ArrayError struct {
	Op     string
	Coords []int
	Cause  error
}

// Error implements the error interface.
func (e *ArrayError) Error() string {
	if len(e.Coords) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s at %v: %v", e.Op, e.Coords, e.Cause)
}

// Unwrap provides compatibility with errors.Is and errors.As.
func (e *ArrayError) Unwrap() error {
	return e.Cause
}

// WrapError attaches op to cause. It returns nil for a nil cause.
func WrapError(op string, cause error) error {
	return WrapErrorAt(op, nil, cause)
}

// WrapErrorAt attaches op and a copy of coords to cause. It returns nil
// for a nil cause.
func WrapErrorAt(op string, coords []int, cause error) error {
	if cause == nil {
		return nil
	}
	return &ArrayError{Op: op, Coords: slices.Clone(coords), Cause: cause}
}
