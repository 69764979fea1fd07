package errors

import (
	"errors"
	"fmt"
)

var (
	// Lookup errors
	ErrStudentNotFound = errors.New("student not found")
	ErrParentNotFound  = errors.New("parent not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrMessageNotFound = errors.New("message not found")

	// Dues ledger errors
	ErrDuplicatePeriod        = errors.New("a payment already exists for this period")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAlreadySettled         = errors.New("payment already settled")
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Webhook errors
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// Gateway errors
	ErrGatewayTimeout = errors.New("gateway request timeout")
	ErrGatewayFailure = errors.New("gateway request failed")

	// Notification errors
	ErrUnsupportedChannel = errors.New("unsupported notification channel")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
