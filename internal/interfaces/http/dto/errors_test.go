package dto

import (
	"net/http"
	"testing"

	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFor(t *testing.T) {
	tests := []struct {
		status   appinvoice.Status
		wantHTTP int
		wantCode string
	}{
		{appinvoice.StatusOK, http.StatusOK, ""},
		{appinvoice.StatusCreated, http.StatusCreated, ""},
		{appinvoice.StatusNotFound, http.StatusNotFound, ErrCodeNotFound},
		{appinvoice.StatusConflict, http.StatusConflict, ErrCodeConflict},
		{appinvoice.StatusValidationMismatch, http.StatusBadRequest, ErrCodeIdentityMismatch},
		{appinvoice.StatusPermissionDenied, http.StatusForbidden, ErrCodeForbidden},
		{appinvoice.StatusInvalidState, http.StatusUnprocessableEntity, ErrCodeInvalidState},
		{appinvoice.StatusInvalidInput, http.StatusBadRequest, ErrCodeInvalidInput},
		{appinvoice.StatusPersistenceFailure, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{appinvoice.Status("mystery"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			gotHTTP, gotCode := HTTPStatusFor(tt.status)
			assert.Equal(t, tt.wantHTTP, gotHTTP)
			assert.Equal(t, tt.wantCode, gotCode)
		})
	}
}

func TestNewListResponse(t *testing.T) {
	resp := NewListResponse([]string{"a", "b"}, 2)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Meta.Total)
	assert.Nil(t, resp.Error)
}
