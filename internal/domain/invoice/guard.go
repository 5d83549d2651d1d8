package invoice

// Identity is the (subject, booking, event) triple a caller must present before mutating an invoice.
type Identity struct {
	SubjectID string
	BookingID string
	EventID   string
}

// Verify reports whether every claimed reference exactly equals the stored invoice's reference.
func Verify(stored *Invoice, claimed Identity) bool {
	if stored == nil {
		return false
	}
	return stored.SubjectID == claimed.SubjectID &&
		stored.BookingID == claimed.BookingID &&
		stored.EventID == claimed.EventID
}
