package invoice

import "context"

// Repository persists invoice aggregates. Every read takes an explicit includeDeleted flag;
// false hides soft-deleted invoices.
type Repository interface {
	// Add inserts the invoice and its items in one unit of work.
	// Returns shared.ErrConflict if an active invoice exists for the same booking.
	Add(ctx context.Context, inv *Invoice) error

	// Get returns shared.ErrNotFound when no visible invoice has the id.
	Get(ctx context.Context, id string, includeDeleted bool) (*Invoice, error)

	// ListBySubject returns the subject's invoices, newest first.
	ListBySubject(ctx context.Context, subjectID string, includeDeleted bool) ([]*Invoice, error)

	// ListAll returns every invoice, newest first.
	ListAll(ctx context.Context, includeDeleted bool) ([]*Invoice, error)

	// ExistsActiveForBooking reports whether a non-deleted invoice references the booking.
	ExistsActiveForBooking(ctx context.Context, bookingID string) (bool, error)

	// Update persists the full aggregate state, replacing the item set.
	Update(ctx context.Context, inv *Invoice) error

	// HardDelete removes the invoice and its items, including soft-deleted ones.
	// Deleting an unknown id is a no-op.
	HardDelete(ctx context.Context, id string) error
}
