package notify

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument classifies every input error. Nothing is dispatched
// when a request fails with it.
var ErrInvalidArgument = errors.New("invalid-argument")

// ValidationError names the offending request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidArgument, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// NewValidationError builds an input error for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
