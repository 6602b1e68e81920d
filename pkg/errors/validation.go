package errors

import (
	"errors"
	"strings"

	"github.com/matzehuels/flowforge/pkg/flow"
)

// ValidationError aggregates every problem the validation engine found in
// a graph. It is raised at save time only; the in-memory graph is left
// unchanged so the user can fix and retry.
type ValidationError struct {
	Problems []flow.Problem
}

// NewValidationError wraps a non-empty problem list. Returns nil for an
// empty list so callers can write `if err := ...; err != nil`.
func NewValidationError(problems []flow.Problem) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// Error implements the error interface, joining all reasons.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return "graph validation failed: " + strings.Join(msgs, "; ")
}

// Code returns the error code for this error type.
func (e *ValidationError) Code() Code {
	return ErrCodeValidationFailed
}

// AsValidation extracts a *ValidationError from an error chain.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}
