package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("task was modified concurrently")
)

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ForbiddenFieldError is returned when a patch touches a field outside the
// caller's allowlist.
type ForbiddenFieldError struct {
	Field string
}

func (e *ForbiddenFieldError) Error() string {
	return fmt.Sprintf("not allowed to change %s", e.Field)
}

func (e *ForbiddenFieldError) Unwrap() error { return ErrForbidden }
