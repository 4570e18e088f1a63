package shared

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveUser indicates the account has been deactivated.
	ErrInactiveUser = errors.New("inactive user")
	// ErrUnauthorized covers every missing, garbled, expired or revoked bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden covers every authorization denial.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a duplicate unique identity.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates a malformed or policy-violating request.
	ErrValidation = errors.New("validation failed")
)

// ValidationError lists the problems found in a request. It matches
// ErrValidation under errors.Is.
type ValidationError struct {
	Problems []string
}

// NewValidationError builds a ValidationError from one or more problems.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Problems, "; ")
}

// Unwrap exposes ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Details returns the individual problems.
func (e *ValidationError) Details() []string {
	return e.Problems
}
