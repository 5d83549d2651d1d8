package invoice

import (
	"strings"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
)

// DefaultPaymentTerm is the time between issue and due date
const DefaultPaymentTerm = 30 * 24 * time.Hour

// Party holds billing contact details
type Party struct {
	Name    string
	Email   string
	Address string
	Phone   string
}

// Adjustment records the single most recent administrative correction
type Adjustment struct {
	AdjustedBy string
	AdjustedAt time.Time
	Reason     string
}

// Deletion records who soft-deleted an invoice and why
type Deletion struct {
	DeletedBy string
	DeletedAt time.Time
	Reason    string
}

// Invoice is the aggregate root for a billed booking. It owns its line items.
type Invoice struct {
	shared.BaseAggregateRoot

	ID        string
	BookingID string
	SubjectID string
	EventID   string

	EventName string
	Subject   Party // billed party
	Issuer    Party // event owner

	Paid      bool
	IssuedAt  time.Time
	DueAt     *time.Time
	CreatedAt time.Time

	Items  []LineItem
	Totals Totals

	Adjusted   bool
	Adjustment *Adjustment

	Deleted  bool
	Deletion *Deletion
}

var _ shared.AggregateRoot = (*Invoice)(nil)

// Details are the mutable billing fields shared by creation and adjustment
type Details struct {
	EventName string
	Subject   Party
	Issuer    Party
	Paid      bool
	Items     []LineItem
}

// Term controls issue and due timestamps
type Term struct {
	Now      time.Time
	DueAfter time.Duration
}

func (t Term) due() *time.Time {
	after := t.DueAfter
	if after <= 0 {
		after = DefaultPaymentTerm
	}
	due := t.Now.Add(after)
	return &due
}

// New issues an invoice for the identity triple with totals computed from the items.
func New(id string, identity Identity, details Details, rates Rates, term Term) (*Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invoice ID cannot be empty")
	}
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}

	inv := &Invoice{
		ID:        id,
		BookingID: identity.BookingID,
		SubjectID: identity.SubjectID,
		EventID:   identity.EventID,
		CreatedAt: term.Now,
	}
	inv.apply(details, rates, term)

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

func validateIdentity(identity Identity) error {
	switch {
	case strings.TrimSpace(identity.SubjectID) == "":
		return shared.NewDomainError(shared.CodeInvalidInput, "Subject ID cannot be empty")
	case strings.TrimSpace(identity.BookingID) == "":
		return shared.NewDomainError(shared.CodeInvalidInput, "Booking ID cannot be empty")
	case strings.TrimSpace(identity.EventID) == "":
		return shared.NewDomainError(shared.CodeInvalidInput, "Event ID cannot be empty")
	}
	return nil
}

func (inv *Invoice) apply(details Details, rates Rates, term Term) {
	inv.EventName = details.EventName
	inv.Subject = details.Subject
	inv.Issuer = details.Issuer
	inv.Paid = details.Paid
	inv.Items = append([]LineItem(nil), details.Items...)
	inv.Totals = Calculate(inv.Items, rates)
	inv.IssuedAt = term.Now
	inv.DueAt = term.due()
}

// Identity returns the invoice's identity triple
func (inv *Invoice) Identity() Identity {
	return Identity{SubjectID: inv.SubjectID, BookingID: inv.BookingID, EventID: inv.EventID}
}

// Status derives the lifecycle state
func (inv *Invoice) Status() Status {
	switch {
	case inv.Deleted:
		return StatusDeleted
	case inv.Paid:
		return StatusPaid
	default:
		return StatusUnpaid
	}
}

func (inv *Invoice) fire(t trigger, message string) error {
	if err := newStatusMachine(inv.Status()).Fire(t); err != nil {
		return shared.NewDomainError(shared.CodeInvalidState, message)
	}
	return nil
}

// Adjust replaces every mutable billing field and the full item set, re-issues the
// invoice as of term.Now and records the adjustment. Identity references are untouched.
func (inv *Invoice) Adjust(details Details, rates Rates, term Term, adjustedBy, reason string) error {
	if err := inv.fire(triggerAdjust, "Cannot adjust a deleted invoice"); err != nil {
		return err
	}

	inv.apply(details, rates, term)
	inv.Adjusted = true
	inv.Adjustment = &Adjustment{
		AdjustedBy: adjustedBy,
		AdjustedAt: term.Now,
		Reason:     reason,
	}

	inv.AddDomainEvent(NewInvoiceAdjustedEvent(inv))
	return nil
}

// SoftDelete hides the invoice from default reads. Totals and items are kept.
func (inv *Invoice) SoftDelete(deletedBy, reason string, at time.Time) error {
	if err := inv.fire(triggerSoftDelete, "Invoice is already deleted"); err != nil {
		return err
	}

	inv.Deleted = true
	inv.Deletion = &Deletion{
		DeletedBy: deletedBy,
		DeletedAt: at,
		Reason:    reason,
	}

	inv.AddDomainEvent(NewInvoiceSoftDeletedEvent(inv))
	return nil
}

// MarkPaid sets the paid flag. Paying an already paid invoice is an error, not a no-op.
func (inv *Invoice) MarkPaid(byAdmin bool, at time.Time) error {
	msg := "Invoice is already marked as paid."
	if inv.Deleted {
		msg = "Cannot pay a deleted invoice"
	}
	if err := inv.fire(triggerPay, msg); err != nil {
		return err
	}

	inv.Paid = true
	inv.AddDomainEvent(NewInvoicePaidEvent(inv, byAdmin, at))
	return nil
}
