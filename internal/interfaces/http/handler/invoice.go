package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
)

// InvoiceService is the lifecycle engine as seen by the HTTP layer
type InvoiceService interface {
	Create(ctx context.Context, req appinvoice.CreateInvoiceRequest) appinvoice.Result
	Update(ctx context.Context, id string, req appinvoice.UpdateInvoiceRequest) appinvoice.Result
	SoftDelete(ctx context.Context, id string, req appinvoice.SoftDeleteInvoiceRequest) appinvoice.Result
	HardDelete(ctx context.Context, id string) appinvoice.Result
	MarkPaid(ctx context.Context, id, subjectID string) appinvoice.Result
	MarkPaidAsAdmin(ctx context.Context, id string) appinvoice.Result
	GetByID(ctx context.Context, id string) appinvoice.Result
	GetForSubject(ctx context.Context, id, subjectID string) appinvoice.Result
	ListForSubject(ctx context.Context, subjectID string) appinvoice.ListResult
	ListAll(ctx context.Context) appinvoice.ListResult
}

var _ InvoiceService = (*appinvoice.Service)(nil)

// InvoiceHandler serves the self-service and administrative invoice routes
type InvoiceHandler struct {
	BaseHandler
	svc InvoiceService
}

func NewInvoiceHandler(svc InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// ListMine lists the caller's invoices.
// GET /invoices/me
func (h *InvoiceHandler) ListMine(c *gin.Context) {
	h.List(c, h.svc.ListForSubject(c.Request.Context(), middleware.GetSubject(c)))
}

// GetMine returns one of the caller's invoices.
// GET /invoices/me/:id
func (h *InvoiceHandler) GetMine(c *gin.Context) {
	h.Result(c, h.svc.GetForSubject(c.Request.Context(), c.Param("id"), middleware.GetSubject(c)))
}

// PayMine marks one of the caller's invoices paid.
// POST /invoices/me/:id/pay
func (h *InvoiceHandler) PayMine(c *gin.Context) {
	h.Result(c, h.svc.MarkPaid(c.Request.Context(), c.Param("id"), middleware.GetSubject(c)))
}

// ListAll GET /admin/invoices
func (h *InvoiceHandler) ListAll(c *gin.Context) {
	h.List(c, h.svc.ListAll(c.Request.Context()))
}

// ListForUser GET /admin/users/:userId/invoices
func (h *InvoiceHandler) ListForUser(c *gin.Context) {
	h.List(c, h.svc.ListForSubject(c.Request.Context(), c.Param("userId")))
}

// Get GET /admin/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	h.Result(c, h.svc.GetByID(c.Request.Context(), c.Param("id")))
}

// Create POST /admin/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req appinvoice.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	h.Result(c, h.svc.Create(c.Request.Context(), req))
}

// Update PUT /admin/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	var req appinvoice.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	h.Result(c, h.svc.Update(c.Request.Context(), c.Param("id"), req))
}

// SoftDelete POST /admin/invoices/:id/soft-delete
func (h *InvoiceHandler) SoftDelete(c *gin.Context) {
	var req appinvoice.SoftDeleteInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	h.Result(c, h.svc.SoftDelete(c.Request.Context(), c.Param("id"), req))
}

// HardDelete DELETE /admin/invoices/:id
func (h *InvoiceHandler) HardDelete(c *gin.Context) {
	h.Result(c, h.svc.HardDelete(c.Request.Context(), c.Param("id")))
}

// Pay POST /admin/invoices/:id/pay
func (h *InvoiceHandler) Pay(c *gin.Context) {
	h.Result(c, h.svc.MarkPaidAsAdmin(c.Request.Context(), c.Param("id")))
}
