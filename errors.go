package announcer

import (
	"errors"
	"fmt"
)

// Error represents an announcer error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for announcer operations.
const (
	// ErrCodeNotFound indicates the referenced rule or attribute does not exist.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a store operation or transaction failed.
	// Mutations failing with this code left no partial state behind.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeRender indicates a template could not be rendered.
	ErrCodeRender = "RENDER_ERROR"

	// ErrCodeDelivery indicates a distributor failed to hand off a delivery.
	ErrCodeDelivery = "DELIVERY_ERROR"

	// ErrCodeMatch indicates a rule matcher failed while deciding a match.
	ErrCodeMatch = "MATCH_ERROR"
)

// Common errors.
var (
	// ErrNotFound is returned when a rule or attribute id does not exist.
	ErrNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "not found",
	}

	// ErrInvalidConfiguration is returned when a service is misconfigured.
	ErrInvalidConfiguration = &Error{
		Code:    ErrCodeConfiguration,
		Message: "invalid configuration",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsCode reports whether err is, or wraps, an *Error with the given code.
func IsCode(err error, code string) bool {
	var announcerErr *Error
	for err != nil {
		if !errors.As(err, &announcerErr) {
			return false
		}
		if announcerErr.Code == code {
			return true
		}
		err = announcerErr.Err
	}
	return false
}

// IsNotFound checks if an error is ErrNotFound.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}
