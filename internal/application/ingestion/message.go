package ingestion

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TicketLine is one ticket category on a booking
type TicketLine struct {
	TicketCategory string          `json:"ticketCategory" binding:"required"`
	Price          decimal.Decimal `json:"price" binding:"gte=0,lte=100000"`
	Quantity       int             `json:"quantity" binding:"gte=1,lte=1000"`
}

// Message is the booking document published by the booking service.
// Field names match case-insensitively.
type Message struct {
	BookingID         string       `json:"bookingId" binding:"required"`
	UserID            string       `json:"userId" binding:"required"`
	BookingEmail      string       `json:"bookingEmail" binding:"required,email"`
	BookingPhone      string       `json:"bookingPhone"`
	FirstName         string       `json:"firstName"`
	LastName          string       `json:"lastName"`
	BookingAddress    string       `json:"bookingAddress"`
	EventID           string       `json:"eventId" binding:"required"`
	EventName         string       `json:"eventName"`
	EventOwnerName    string       `json:"eventOwnerName"`
	EventOwnerEmail   string       `json:"eventOwnerEmail"`
	EventOwnerAddress string       `json:"eventOwnerAddress"`
	EventOwnerPhone   string       `json:"eventOwnerPhone"`
	InvoicePaid       bool         `json:"invoicePaid"`
	Tickets           []TicketLine `json:"tickets" binding:"required,dive"`
}

// DecodeMessage parses and validates a payload. Every failure wraps shared.ErrMalformedMessage.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedMessage, err)
	}
	if err := appinvoice.ValidateStruct(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedMessage, err)
	}
	return &msg, nil
}

// Identity returns the identity triple carried by the message
func (m *Message) Identity() invoice.Identity {
	return invoice.Identity{SubjectID: m.UserID, BookingID: m.BookingID, EventID: m.EventID}
}

// SubjectName joins first and last name
func (m *Message) SubjectName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Details builds the invoice billing fields and line items
func (m *Message) Details() (invoice.Details, error) {
	items := make([]invoice.LineItem, 0, len(m.Tickets))
	for _, t := range m.Tickets {
		item, err := invoice.NewLineItem(t.TicketCategory, valueobject.NewMoney(t.Price), t.Quantity)
		if err != nil {
			return invoice.Details{}, fmt.Errorf("%w: %v", shared.ErrMalformedMessage, err)
		}
		items = append(items, item)
	}
	return invoice.Details{
		EventName: m.EventName,
		Subject: invoice.Party{
			Name:    m.SubjectName(),
			Email:   m.BookingEmail,
			Address: m.BookingAddress,
			Phone:   m.BookingPhone,
		},
		Issuer: invoice.Party{
			Name:    m.EventOwnerName,
			Email:   m.EventOwnerEmail,
			Address: m.EventOwnerAddress,
			Phone:   m.EventOwnerPhone,
		},
		Paid:  m.InvoicePaid,
		Items: items,
	}, nil
}

// EncodeMessage serializes a message for publishing
func EncodeMessage(m *Message) ([]byte, error) {
	return json.Marshal(m)
}
