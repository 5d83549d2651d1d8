package invoice

import (
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
)

// AggregateTypeInvoice is the aggregate type carried by invoice events
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated     = "InvoiceCreated"
	EventTypeInvoiceAdjusted    = "InvoiceAdjusted"
	EventTypeInvoiceSoftDeleted = "InvoiceSoftDeleted"
	EventTypeInvoicePaid        = "InvoicePaid"
	EventTypeInvoicePurged      = "InvoicePurged"
)

// InvoiceCreatedEvent is raised when a new invoice is issued
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	BookingID string `json:"booking_id"`
	SubjectID string `json:"subject_id"`
	EventRef  string `json:"event_id"`
	Total     string `json:"total"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.CreatedAt),
		BookingID:       inv.BookingID,
		SubjectID:       inv.SubjectID,
		EventRef:        inv.EventID,
		Total:           inv.Totals.Rounded().Total.String(),
	}
}

// InvoiceAdjustedEvent is raised after an administrative correction
type InvoiceAdjustedEvent struct {
	shared.BaseDomainEvent
	AdjustedBy string `json:"adjusted_by"`
	Reason     string `json:"reason"`
	Total      string `json:"total"`
}

// NewInvoiceAdjustedEvent creates a new InvoiceAdjustedEvent
func NewInvoiceAdjustedEvent(inv *Invoice) *InvoiceAdjustedEvent {
	return &InvoiceAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceAdjusted, AggregateTypeInvoice, inv.ID, inv.Adjustment.AdjustedAt),
		AdjustedBy:      inv.Adjustment.AdjustedBy,
		Reason:          inv.Adjustment.Reason,
		Total:           inv.Totals.Rounded().Total.String(),
	}
}

// InvoiceSoftDeletedEvent is raised when an invoice is hidden from default reads
type InvoiceSoftDeletedEvent struct {
	shared.BaseDomainEvent
	DeletedBy string `json:"deleted_by"`
	Reason    string `json:"reason"`
}

// NewInvoiceSoftDeletedEvent creates a new InvoiceSoftDeletedEvent
func NewInvoiceSoftDeletedEvent(inv *Invoice) *InvoiceSoftDeletedEvent {
	return &InvoiceSoftDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSoftDeleted, AggregateTypeInvoice, inv.ID, inv.Deletion.DeletedAt),
		DeletedBy:       inv.Deletion.DeletedBy,
		Reason:          inv.Deletion.Reason,
	}
}

// InvoicePaidEvent is raised when an invoice is marked paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	SubjectID string `json:"subject_id"`
	ByAdmin   bool   `json:"by_admin"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, byAdmin bool, at time.Time) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID, at),
		SubjectID:       inv.SubjectID,
		ByAdmin:         byAdmin,
	}
}

// InvoicePurgedEvent is raised after an invoice is permanently removed
type InvoicePurgedEvent struct {
	shared.BaseDomainEvent
	BookingID string `json:"booking_id"`
}

// NewInvoicePurgedEvent creates a new InvoicePurgedEvent
func NewInvoicePurgedEvent(inv *Invoice, at time.Time) *InvoicePurgedEvent {
	return &InvoicePurgedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePurged, AggregateTypeInvoice, inv.ID, at),
		BookingID:       inv.BookingID,
	}
}
