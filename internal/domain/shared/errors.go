package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so callers can test
// errors.Is(err, shared.ErrNotFound) against errors built with a custom message.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeValidationMismatch = "VALIDATION_MISMATCH"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeInvalidState       = "INVALID_STATE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeMalformedMessage   = "MALFORMED_MESSAGE"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
)

// Common domain errors
var (
	ErrNotFound           = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict           = NewDomainError(CodeConflict, "Resource already exists")
	ErrValidationMismatch = NewDomainError(CodeValidationMismatch, "Provided identifiers do not match the stored record")
	ErrPermissionDenied   = NewDomainError(CodePermissionDenied, "Not permitted to perform this action")
	ErrInvalidState       = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidInput       = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrMalformedMessage   = NewDomainError(CodeMalformedMessage, "Message payload is malformed")
)

// CodeOf returns the DomainError code carried by err, or "" when err is not a DomainError.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
