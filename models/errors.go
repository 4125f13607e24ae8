package models

import (
	"errors"
	"fmt"
)

var (
	// * Validation errors.
	ErrDateRequired  = errors.New("desired date is required")
	ErrInvalidDate   = errors.New("date is not a valid calendar date")
	ErrInvalidReview = errors.New("review is not valid")

	// * Store errors.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotFound         = errors.New("document not found")
	ErrAlreadyExists    = errors.New("document already exists")
	ErrPartialArchive   = errors.New("archive move failed")

	// * Data quality errors.
	ErrAmbiguousDateShape = errors.New("desired date matches no supported shape")

	// * Programmer errors.
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrUnknownEmailService = errors.New("unknown email service")
)

// ValidationError reports a rejected input field to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) error {
	return ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// StoreUnavailable wraps an infrastructure failure so callers can match ErrStoreUnavailable.
func StoreUnavailable(op, collection string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStoreUnavailable, op, collection, err)
}
