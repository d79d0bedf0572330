package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"katalog/internal/repositories"
)

var (
	// ErrProductNotFound is returned when the requested product does not exist.
	ErrProductNotFound = repositories.ErrProductNotFound
	// ErrCancelled is returned when the caller abandoned the operation.
	ErrCancelled = errors.New("operation cancelled")
)

// FieldError describes one violated field constraint.
type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ValidationError lists every constraint a request violated.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from field errors.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Description
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// cancelled maps context errors to ErrCancelled and leaves everything else untouched.
func cancelled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}
