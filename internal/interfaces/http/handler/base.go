// Package handler holds the gin handlers of the invoice API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response carrying the request id
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Result renders a lifecycle result. The HTTP status follows the result status;
// the failure cause stays in the logs.
func (h *BaseHandler) Result(c *gin.Context, res appinvoice.Result) {
	status, code := dto.HTTPStatusFor(res.Status)
	if !res.Success {
		if res.Err != nil {
			_ = c.Error(res.Err)
		}
		h.Error(c, status, code, res.Message)
		return
	}
	var data any
	if res.Invoice != nil {
		data = res.Invoice
	}
	c.JSON(status, dto.NewMessageResponse(res.Message, data))
}

// List renders a list result
func (h *BaseHandler) List(c *gin.Context, res appinvoice.ListResult) {
	if !res.Success {
		status, code := dto.HTTPStatusFor(res.Status)
		if res.Err != nil {
			_ = c.Error(res.Err)
		}
		h.Error(c, status, code, res.Message)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(res.Invoices, len(res.Invoices)))
}
