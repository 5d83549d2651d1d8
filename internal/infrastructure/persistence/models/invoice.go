package models

import (
	"time"

	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
// At most one non-deleted row may reference a booking.
type InvoiceModel struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	BookingID string `gorm:"type:varchar(100);not null;index;uniqueIndex:idx_invoices_active_booking,where:is_deleted = false"`
	SubjectID string `gorm:"type:varchar(100);not null;index"`
	EventID   string `gorm:"type:varchar(100);not null;index"`

	EventName      string `gorm:"type:varchar(200)"`
	SubjectName    string `gorm:"type:varchar(200)"`
	SubjectEmail   string `gorm:"type:varchar(200)"`
	SubjectAddress string `gorm:"type:varchar(500)"`
	SubjectPhone   string `gorm:"type:varchar(50)"`
	IssuerName     string `gorm:"type:varchar(200)"`
	IssuerEmail    string `gorm:"type:varchar(200)"`
	IssuerAddress  string `gorm:"type:varchar(500)"`
	IssuerPhone    string `gorm:"type:varchar(50)"`

	Subtotal decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Tax      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Fee      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	IsPaid    bool       `gorm:"not null;default:false"`
	IssuedAt  time.Time  `gorm:"not null"`
	DueAt     *time.Time `gorm:"index"`
	CreatedAt time.Time  `gorm:"not null;index"`

	IsAdjusted       bool       `gorm:"not null;default:false"`
	AdjustedBy       string     `gorm:"type:varchar(200)"`
	AdjustedAt       *time.Time `gorm:""`
	AdjustmentReason string     `gorm:"type:varchar(500)"`

	IsDeleted      bool       `gorm:"not null;default:false;index"`
	DeletedBy      string     `gorm:"type:varchar(200)"`
	DeletedAt      *time.Time `gorm:""`
	DeletionReason string     `gorm:"type:varchar(500)"`

	Items []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice. Pending domain events are empty.
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:        m.ID,
		BookingID: m.BookingID,
		SubjectID: m.SubjectID,
		EventID:   m.EventID,
		EventName: m.EventName,
		Subject: invoice.Party{
			Name:    m.SubjectName,
			Email:   m.SubjectEmail,
			Address: m.SubjectAddress,
			Phone:   m.SubjectPhone,
		},
		Issuer: invoice.Party{
			Name:    m.IssuerName,
			Email:   m.IssuerEmail,
			Address: m.IssuerAddress,
			Phone:   m.IssuerPhone,
		},
		Paid:      m.IsPaid,
		IssuedAt:  m.IssuedAt,
		DueAt:     m.DueAt,
		CreatedAt: m.CreatedAt,
		Totals: invoice.Totals{
			Subtotal: valueobject.NewMoney(m.Subtotal),
			Tax:      valueobject.NewMoney(m.Tax),
			Fee:      valueobject.NewMoney(m.Fee),
			Total:    valueobject.NewMoney(m.Total),
		},
		Adjusted: m.IsAdjusted,
		Deleted:  m.IsDeleted,
		Items:    make([]invoice.LineItem, len(m.Items)),
	}
	if m.IsAdjusted && m.AdjustedAt != nil {
		inv.Adjustment = &invoice.Adjustment{
			AdjustedBy: m.AdjustedBy,
			AdjustedAt: *m.AdjustedAt,
			Reason:     m.AdjustmentReason,
		}
	}
	if m.IsDeleted && m.DeletedAt != nil {
		inv.Deletion = &invoice.Deletion{
			DeletedBy: m.DeletedBy,
			DeletedAt: *m.DeletedAt,
			Reason:    m.DeletionReason,
		}
	}
	for i, item := range m.Items {
		inv.Items[i] = item.ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
// Totals are stored rounded to two decimals.
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	totals := inv.Totals.Rounded()

	m.ID = inv.ID
	m.BookingID = inv.BookingID
	m.SubjectID = inv.SubjectID
	m.EventID = inv.EventID
	m.EventName = inv.EventName
	m.SubjectName = inv.Subject.Name
	m.SubjectEmail = inv.Subject.Email
	m.SubjectAddress = inv.Subject.Address
	m.SubjectPhone = inv.Subject.Phone
	m.IssuerName = inv.Issuer.Name
	m.IssuerEmail = inv.Issuer.Email
	m.IssuerAddress = inv.Issuer.Address
	m.IssuerPhone = inv.Issuer.Phone
	m.Subtotal = totals.Subtotal.Amount()
	m.Tax = totals.Tax.Amount()
	m.Fee = totals.Fee.Amount()
	m.Total = totals.Total.Amount()
	m.IsPaid = inv.Paid
	m.IssuedAt = inv.IssuedAt
	m.DueAt = inv.DueAt
	m.CreatedAt = inv.CreatedAt

	m.IsAdjusted = inv.Adjusted
	m.AdjustedBy, m.AdjustedAt, m.AdjustmentReason = "", nil, ""
	if inv.Adjustment != nil {
		at := inv.Adjustment.AdjustedAt
		m.AdjustedBy = inv.Adjustment.AdjustedBy
		m.AdjustedAt = &at
		m.AdjustmentReason = inv.Adjustment.Reason
	}

	m.IsDeleted = inv.Deleted
	m.DeletedBy, m.DeletedAt, m.DeletionReason = "", nil, ""
	if inv.Deletion != nil {
		at := inv.Deletion.DeletedAt
		m.DeletedBy = inv.Deletion.DeletedBy
		m.DeletedAt = &at
		m.DeletionReason = inv.Deletion.Reason
	}

	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i] = InvoiceItemModelFromDomain(inv.ID, i, item)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for a line item. Items have no identity
// outside their invoice; Position keeps their order.
type InvoiceItemModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	InvoiceID string          `gorm:"type:varchar(36);not null;index"`
	Position  int             `gorm:"not null"`
	Category  string          `gorm:"type:varchar(200);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity  int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *InvoiceItemModel) ToDomain() invoice.LineItem {
	return invoice.LineItem{
		Category:  m.Category,
		UnitPrice: valueobject.NewMoney(m.UnitPrice),
		Quantity:  m.Quantity,
	}
}

// InvoiceItemModelFromDomain creates a persistence model for the item at position.
func InvoiceItemModelFromDomain(invoiceID string, position int, item invoice.LineItem) InvoiceItemModel {
	return InvoiceItemModel{
		InvoiceID: invoiceID,
		Position:  position,
		Category:  item.Category,
		UnitPrice: item.UnitPrice.Amount(),
		Quantity:  item.Quantity,
	}
}
