package invoice

import (
	"errors"

	"github.com/invoicing/backend/internal/domain/shared"
)

// Status classifies the outcome of a lifecycle operation
type Status string

const (
	StatusOK                 Status = "ok"
	StatusCreated            Status = "created"
	StatusNotFound           Status = "not_found"
	StatusConflict           Status = "conflict"
	StatusValidationMismatch Status = "validation_mismatch"
	StatusPermissionDenied   Status = "permission_denied"
	StatusInvalidState       Status = "invalid_state"
	StatusInvalidInput       Status = "invalid_input"
	StatusPersistenceFailure Status = "persistence_failure"
)

// Result is the outcome of a single-invoice operation. Failures are values, never panics.
type Result struct {
	Success bool
	Status  Status
	Message string
	Invoice *InvoiceResponse
	// Err is the underlying cause for failed results, for logging only.
	Err error
}

// ListResult is the outcome of a list operation
type ListResult struct {
	Success  bool
	Status   Status
	Message  string
	Invoices []InvoiceResponse
	Err      error
}

func ok(status Status, message string, resp *InvoiceResponse) Result {
	return Result{Success: true, Status: status, Message: message, Invoice: resp}
}

func fail(status Status, message string, err error) Result {
	return Result{Success: false, Status: status, Message: message, Err: err}
}

// statusFromError maps a domain error to its classification. Anything that is not a
// domain error came from the store and is treated as a persistence failure.
func statusFromError(err error) Status {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return StatusPersistenceFailure
	}
	switch de.Code {
	case shared.CodeNotFound:
		return StatusNotFound
	case shared.CodeConflict:
		return StatusConflict
	case shared.CodeValidationMismatch:
		return StatusValidationMismatch
	case shared.CodePermissionDenied:
		return StatusPermissionDenied
	case shared.CodeInvalidState:
		return StatusInvalidState
	case shared.CodeInvalidInput:
		return StatusInvalidInput
	default:
		return StatusPersistenceFailure
	}
}

func failFromError(err error) Result {
	status := statusFromError(err)
	msg := err.Error()
	if status == StatusPersistenceFailure {
		msg = "Invoice storage is unavailable. Please retry later."
	}
	return fail(status, msg, err)
}
