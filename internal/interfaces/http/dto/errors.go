package dto

import (
	"net/http"

	appinvoice "github.com/invoicing/backend/internal/application/invoice"
)

// Error codes. Format: ERR_<DESCRIPTION>
const (
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeBadRequest         = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput       = "ERR_INVALID_INPUT"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeConflict           = "ERR_CONFLICT"
	ErrCodeIdentityMismatch   = "ERR_IDENTITY_MISMATCH"
	ErrCodeInvalidState       = "ERR_INVALID_STATE"
	ErrCodeRequestTooLarge    = "ERR_REQUEST_TOO_LARGE"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

type statusMapping struct {
	httpStatus int
	code       string
}

var resultStatusMapping = map[appinvoice.Status]statusMapping{
	appinvoice.StatusOK:                 {http.StatusOK, ""},
	appinvoice.StatusCreated:            {http.StatusCreated, ""},
	appinvoice.StatusNotFound:           {http.StatusNotFound, ErrCodeNotFound},
	appinvoice.StatusConflict:           {http.StatusConflict, ErrCodeConflict},
	appinvoice.StatusValidationMismatch: {http.StatusBadRequest, ErrCodeIdentityMismatch},
	appinvoice.StatusPermissionDenied:   {http.StatusForbidden, ErrCodeForbidden},
	appinvoice.StatusInvalidState:       {http.StatusUnprocessableEntity, ErrCodeInvalidState},
	appinvoice.StatusInvalidInput:       {http.StatusBadRequest, ErrCodeInvalidInput},
	appinvoice.StatusPersistenceFailure: {http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
}

// HTTPStatusFor maps a lifecycle result status to an HTTP status and error code.
// Unknown statuses are internal errors.
func HTTPStatusFor(status appinvoice.Status) (int, string) {
	if m, ok := resultStatusMapping[status]; ok {
		return m.httpStatus, m.code
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
