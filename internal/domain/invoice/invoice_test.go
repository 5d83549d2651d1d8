package invoice

import (
	"errors"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 8, 12, 0, 0, 0, time.UTC)

func testIdentity() Identity {
	return Identity{SubjectID: "user-1", BookingID: "booking-1", EventID: "event-1"}
}

func testDetails(t *testing.T) Details {
	return Details{
		EventName: "Summer Fest",
		Subject:   Party{Name: "Ada Lovelace", Email: "ada@example.com"},
		Issuer:    Party{Name: "Fest AB", Email: "owner@example.com", Address: "Main St 1", Phone: "555-0100"},
		Items:     []LineItem{mustItem(t, "VIP", "250.00", 2)},
	}
}

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := New("inv-1", testIdentity(), testDetails(t), AdminRates(), Term{Now: testNow})
	require.NoError(t, err)
	return inv
}

func TestNew(t *testing.T) {
	inv := newTestInvoice(t)

	assert.Equal(t, "inv-1", inv.ID)
	assert.Equal(t, testIdentity(), inv.Identity())
	assert.Equal(t, StatusUnpaid, inv.Status())
	assert.Equal(t, testNow, inv.IssuedAt)
	assert.Equal(t, testNow, inv.CreatedAt)
	require.NotNil(t, inv.DueAt)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *inv.DueAt)
	assert.Equal(t, "630.00", inv.Totals.Total.String())
	assert.False(t, inv.Adjusted)
	assert.Nil(t, inv.Adjustment)

	events := inv.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeInvoiceCreated, events[0].EventType())
	assert.Equal(t, "inv-1", events[0].AggregateID())
}

func TestNew_RejectsMissingIdentity(t *testing.T) {
	cases := map[string]Identity{
		"subject": {BookingID: "b", EventID: "e"},
		"booking": {SubjectID: "s", EventID: "e"},
		"event":   {SubjectID: "s", BookingID: "b"},
	}
	for name, identity := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New("inv-1", identity, testDetails(t), AdminRates(), Term{Now: testNow})
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		})
	}
}

func TestInvoice_Adjust(t *testing.T) {
	inv := newTestInvoice(t)
	inv.ClearDomainEvents()
	later := testNow.Add(48 * time.Hour)

	details := testDetails(t)
	details.Items = []LineItem{mustItem(t, "GA", "100", 1)}
	details.Paid = true

	err := inv.Adjust(details, AdminRates(), Term{Now: later}, "admin-42", "price correction")
	require.NoError(t, err)

	assert.True(t, inv.Adjusted)
	require.NotNil(t, inv.Adjustment)
	assert.Equal(t, "admin-42", inv.Adjustment.AdjustedBy)
	assert.Equal(t, later, inv.Adjustment.AdjustedAt)
	assert.Equal(t, later, inv.IssuedAt)
	assert.Equal(t, later.AddDate(0, 0, 30), *inv.DueAt)
	assert.Equal(t, testNow, inv.CreatedAt, "created timestamp is not re-issued")
	assert.Equal(t, testIdentity(), inv.Identity())
	assert.Len(t, inv.Items, 1)
	assert.Equal(t, "130.00", inv.Totals.Total.String())
	assert.True(t, inv.Paid)
	require.Len(t, inv.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeInvoiceAdjusted, inv.GetDomainEvents()[0].EventType())
}

func TestInvoice_MarkPaid(t *testing.T) {
	t.Run("unpaid to paid", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.MarkPaid(false, testNow))
		assert.True(t, inv.Paid)
		assert.Equal(t, StatusPaid, inv.Status())
	})

	t.Run("already paid is invalid state", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.MarkPaid(true, testNow))
		inv.ClearDomainEvents()

		err := inv.MarkPaid(true, testNow)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, "Invoice is already marked as paid.", err.Error())
		assert.Empty(t, inv.GetDomainEvents())
	})

	t.Run("deleted cannot be paid", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.SoftDelete("admin", "duplicate", testNow))

		err := inv.MarkPaid(false, testNow)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.False(t, inv.Paid)
	})
}

func TestInvoice_SoftDelete(t *testing.T) {
	inv := newTestInvoice(t)
	before := inv.Totals

	require.NoError(t, inv.SoftDelete("admin-1", "customer cancelled", testNow))

	assert.True(t, inv.Deleted)
	assert.Equal(t, StatusDeleted, inv.Status())
	require.NotNil(t, inv.Deletion)
	assert.Equal(t, "admin-1", inv.Deletion.DeletedBy)
	assert.Equal(t, "customer cancelled", inv.Deletion.Reason)
	assert.Equal(t, before, inv.Totals)

	err := inv.SoftDelete("admin-1", "again", testNow)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	err = inv.Adjust(testDetails(t), AdminRates(), Term{Now: testNow}, "admin-1", "reason")
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestNewLineItem(t *testing.T) {
	tests := []struct {
		name     string
		category string
		price    string
		qty      int
		wantErr  bool
	}{
		{"valid", "VIP", "250", 2, false},
		{"zero price", "Free", "0", 1, false},
		{"max price", "Gold", "100000", 1000, false},
		{"empty category", "  ", "10", 1, true},
		{"negative price", "VIP", "-1", 1, true},
		{"price too high", "VIP", "100000.01", 1, true},
		{"zero quantity", "VIP", "10", 0, true},
		{"quantity too high", "VIP", "10", 1001, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewLineItem(tt.category, valueobject.MustMoney(tt.price), tt.qty)
			if tt.wantErr {
				assert.True(t, errors.Is(err, shared.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.True(t, item.Amount().Equals(valueobject.MustMoney(tt.price).MultiplyByInt(int64(tt.qty))))
		})
	}
}

func TestVerify(t *testing.T) {
	inv := newTestInvoice(t)

	assert.True(t, Verify(inv, testIdentity()))

	mismatches := []Identity{
		{SubjectID: "user-2", BookingID: "booking-1", EventID: "event-1"},
		{SubjectID: "user-1", BookingID: "booking-2", EventID: "event-1"},
		{SubjectID: "user-1", BookingID: "booking-1", EventID: "event-2"},
		{SubjectID: "USER-1", BookingID: "booking-1", EventID: "event-1"},
		{},
	}
	for _, claimed := range mismatches {
		assert.False(t, Verify(inv, claimed), "%+v", claimed)
	}
	assert.False(t, Verify(nil, testIdentity()))
}
