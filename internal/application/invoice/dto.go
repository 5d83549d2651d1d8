package invoice

import (
	"time"

	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LineItemRequest is one priced category on a create or update request
type LineItemRequest struct {
	Category string          `json:"category" binding:"required"`
	Price    decimal.Decimal `json:"price" binding:"gte=0,lte=100000"`
	Quantity int             `json:"quantity" binding:"required,gte=1,lte=1000"`
}

// BillingFields are the replaceable contact and event fields of an invoice
type BillingFields struct {
	UserName          string `json:"user_name" binding:"required"`
	UserEmail         string `json:"user_email" binding:"required,email"`
	UserAddress       string `json:"user_address"`
	UserPhone         string `json:"user_phone"`
	EventName         string `json:"event_name" binding:"required"`
	EventOwnerName    string `json:"event_owner_name" binding:"required"`
	EventOwnerEmail   string `json:"event_owner_email" binding:"required,email"`
	EventOwnerAddress string `json:"event_owner_address" binding:"required"`
	EventOwnerPhone   string `json:"event_owner_phone" binding:"required"`
	InvoicePaid       bool   `json:"invoice_paid"`
}

// IdentityFields carry the identity triple supplied by the caller
type IdentityFields struct {
	UserID    string `json:"user_id" binding:"required"`
	BookingID string `json:"booking_id" binding:"required"`
	EventID   string `json:"event_id" binding:"required"`
}

// Identity converts the fields to the domain triple
func (f IdentityFields) Identity() invoice.Identity {
	return invoice.Identity{SubjectID: f.UserID, BookingID: f.BookingID, EventID: f.EventID}
}

// RateFields are optional overrides of the default fee and tax rate
type RateFields struct {
	CustomFee     *decimal.Decimal `json:"custom_fee" binding:"omitempty,gte=0"`
	CustomTaxRate *decimal.Decimal `json:"custom_tax_rate" binding:"omitempty,gte=0,lte=1"`
}

// Overrides converts the fields to domain rate overrides
func (f RateFields) Overrides() invoice.RateOverrides {
	var o invoice.RateOverrides
	if f.CustomFee != nil {
		fee := valueobject.NewMoney(*f.CustomFee)
		o.Fee = &fee
	}
	if f.CustomTaxRate != nil {
		rate := *f.CustomTaxRate
		o.TaxRate = &rate
	}
	return o
}

// CreateInvoiceRequest creates an invoice through the administrative path
type CreateInvoiceRequest struct {
	IdentityFields
	BillingFields
	RateFields
	Items []LineItemRequest `json:"items" binding:"required,dive"`
}

// UpdateInvoiceRequest replaces an invoice's billing fields and items
type UpdateInvoiceRequest struct {
	IdentityFields
	BillingFields
	RateFields
	Items            []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	AdjustedBy       string            `json:"adjusted_by" binding:"required,min=5"`
	AdjustmentReason string            `json:"adjustment_reason" binding:"required,min=5"`
}

// SoftDeleteInvoiceRequest hides an invoice from default reads
type SoftDeleteInvoiceRequest struct {
	IdentityFields
	DeletionReason string `json:"deletion_reason" binding:"required"`
	DeletedBy      string `json:"deleted_by" binding:"required"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	Category string            `json:"category"`
	Price    valueobject.Money `json:"price"`
	Quantity int               `json:"quantity"`
	Amount   valueobject.Money `json:"amount"`
}

// InvoiceResponse is a snapshot of an invoice as stored
type InvoiceResponse struct {
	ID                string             `json:"id"`
	BookingID         string             `json:"booking_id"`
	UserID            string             `json:"user_id"`
	EventID           string             `json:"event_id"`
	Status            string             `json:"status"`
	InvoicePaid       bool               `json:"invoice_paid"`
	IssuedAt          time.Time          `json:"issued_at"`
	DueAt             *time.Time         `json:"due_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UserName          string             `json:"user_name"`
	UserEmail         string             `json:"user_email"`
	UserAddress       string             `json:"user_address,omitempty"`
	UserPhone         string             `json:"user_phone,omitempty"`
	EventName         string             `json:"event_name"`
	EventOwnerName    string             `json:"event_owner_name"`
	EventOwnerEmail   string             `json:"event_owner_email"`
	EventOwnerAddress string             `json:"event_owner_address"`
	EventOwnerPhone   string             `json:"event_owner_phone"`
	Items             []LineItemResponse `json:"items"`
	Subtotal          valueobject.Money  `json:"subtotal"`
	Tax               valueobject.Money  `json:"tax"`
	Fee               valueobject.Money  `json:"fee"`
	Total             valueobject.Money  `json:"total"`
	ManuallyAdjusted  bool               `json:"manually_adjusted"`
	AdjustedBy        string             `json:"adjusted_by,omitempty"`
	AdjustedAt        *time.Time         `json:"adjusted_at,omitempty"`
	AdjustmentReason  string             `json:"adjustment_reason,omitempty"`
	IsDeleted         bool               `json:"is_deleted"`
	DeletedBy         string             `json:"deleted_by,omitempty"`
	DeletedAt         *time.Time         `json:"deleted_at,omitempty"`
	DeletionReason    string             `json:"deletion_reason,omitempty"`
}

// ToInvoiceResponse maps the aggregate to its response snapshot with totals at stored precision
func ToInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	totals := inv.Totals.Rounded()
	resp := InvoiceResponse{
		ID:                inv.ID,
		BookingID:         inv.BookingID,
		UserID:            inv.SubjectID,
		EventID:           inv.EventID,
		Status:            inv.Status().String(),
		InvoicePaid:       inv.Paid,
		IssuedAt:          inv.IssuedAt,
		DueAt:             inv.DueAt,
		CreatedAt:         inv.CreatedAt,
		UserName:          inv.Subject.Name,
		UserEmail:         inv.Subject.Email,
		UserAddress:       inv.Subject.Address,
		UserPhone:         inv.Subject.Phone,
		EventName:         inv.EventName,
		EventOwnerName:    inv.Issuer.Name,
		EventOwnerEmail:   inv.Issuer.Email,
		EventOwnerAddress: inv.Issuer.Address,
		EventOwnerPhone:   inv.Issuer.Phone,
		Items:             make([]LineItemResponse, 0, len(inv.Items)),
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Fee:               totals.Fee,
		Total:             totals.Total,
		ManuallyAdjusted:  inv.Adjusted,
		IsDeleted:         inv.Deleted,
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			Category: item.Category,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
			Amount:   item.Amount(),
		})
	}
	if adj := inv.Adjustment; adj != nil {
		at := adj.AdjustedAt
		resp.AdjustedBy = adj.AdjustedBy
		resp.AdjustedAt = &at
		resp.AdjustmentReason = adj.Reason
	}
	if del := inv.Deletion; del != nil {
		at := del.DeletedAt
		resp.DeletedBy = del.DeletedBy
		resp.DeletedAt = &at
		resp.DeletionReason = del.Reason
	}
	return resp
}

func toInvoiceResponses(invoices []*invoice.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, ToInvoiceResponse(inv))
	}
	return out
}

func buildLineItems(items []LineItemRequest) ([]invoice.LineItem, error) {
	out := make([]invoice.LineItem, 0, len(items))
	for _, it := range items {
		item, err := invoice.NewLineItem(it.Category, valueobject.NewMoney(it.Price), it.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (f BillingFields) details(items []invoice.LineItem) invoice.Details {
	return invoice.Details{
		EventName: f.EventName,
		Subject: invoice.Party{
			Name:    f.UserName,
			Email:   f.UserEmail,
			Address: f.UserAddress,
			Phone:   f.UserPhone,
		},
		Issuer: invoice.Party{
			Name:    f.EventOwnerName,
			Email:   f.EventOwnerEmail,
			Address: f.EventOwnerAddress,
			Phone:   f.EventOwnerPhone,
		},
		Paid:  f.InvoicePaid,
		Items: items,
	}
}
