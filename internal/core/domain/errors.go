package domain

import (
	"errors"
	"fmt"
)

// DomainError is a validation or business error with a stable code.
type DomainError struct {
	Code    string // e.g. "FT-TX-4001"
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a DomainError.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

// IsDomainError reports whether err is a DomainError with code. An empty
// code matches any DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode returns the code of a DomainError, or "".
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Transaction errors (TX)
var (
	ErrInvalidType   = NewDomainError("FT-TX-4000", "invalid transaction type")
	ErrInvalidAmount = NewDomainError("FT-TX-4001", "invalid amount")
	ErrInvalidDate   = NewDomainError("FT-TX-4002", "invalid date")
)

// Input errors (INP)
var (
	ErrMissingField = NewDomainError("FT-INP-4000", "missing required field")
	ErrInvalidEmail = NewDomainError("FT-INP-4001", "invalid email address")
)
