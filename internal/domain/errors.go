package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrStaleWrite        = errors.New("stale write")
	ErrNotFound          = errors.New("not found")
	ErrIneligible        = errors.New("pharmacy not eligible")
	ErrInvalidTransition = errors.New("invalid approval transition")
	ErrImmutable         = errors.New("pharmacy profile is approved and cannot be modified")
	ErrTimeout           = errors.New("search timed out")

	ErrInvalidOrigin    = fmt.Errorf("%w: origin coordinate must be finite latitude and longitude", ErrValidation)
	ErrEmptyQuery       = fmt.Errorf("%w: search term or at least one filter is required", ErrValidation)
	ErrNegativeQuantity = fmt.Errorf("%w: quantity cannot become negative", ErrValidation)
)

// ValidationError reports a rejected input field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
