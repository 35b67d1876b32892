package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds returned by the service. Callers match them with errors.Is.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not authorized")
	ErrNotFound        = errors.New("item not found")
	ErrValidation      = errors.New("validation failed")
	ErrPersistence     = errors.New("storage failure")
)

// ValidationError lists the offending fields of a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func invalidField(field, message string) *ValidationError {
	return newValidationError(map[string]string{field: message})
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Details(), "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Details returns the field messages ordered by field name.
func (e *ValidationError) Details() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	details := make([]string, len(keys))
	for i, k := range keys {
		details[i] = e.Fields[k]
	}
	return details
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
