package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when a requested document or resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when the vector store or another dependency fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ParseTracingNumber parses a tracing number as given on the command line or in a URL.
// Leading zeros are accepted, so "007" and "7" name the same document.
func ParseTracingNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Field: "tracing_number", Message: fmt.Sprintf("%q is not a number", raw)}
	}
	if err := validateTracingNumber(n); err != nil {
		return 0, err
	}
	return n, nil
}

func validateTracingNumber(n int) error {
	if n <= 0 {
		return &ValidationError{Field: "tracing_number", Message: "must be greater than zero"}
	}
	return nil
}
