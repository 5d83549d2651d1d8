package invoice

import (
	"strings"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
)

// Bounds applied to a single line item
const (
	MaxUnitPrice = 100000
	MinQuantity  = 1
	MaxQuantity  = 1000
)

// LineItem is a priced ticket category on an invoice. It has no identity of its own
// and is only ever replaced together with the rest of the invoice's items.
type LineItem struct {
	Category  string
	UnitPrice valueobject.Money
	Quantity  int
}

// NewLineItem creates a validated line item
func NewLineItem(category string, unitPrice valueobject.Money, quantity int) (LineItem, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return LineItem{}, shared.NewDomainError(shared.CodeInvalidInput, "Line item category cannot be empty")
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError(shared.CodeInvalidInput, "Line item price cannot be negative")
	}
	if unitPrice.GreaterThan(valueobject.NewMoneyFromInt(MaxUnitPrice)) {
		return LineItem{}, shared.NewDomainError(shared.CodeInvalidInput, "Line item price cannot exceed 100000")
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return LineItem{}, shared.NewDomainError(shared.CodeInvalidInput, "Line item quantity must be between 1 and 1000")
	}
	return LineItem{
		Category:  category,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	}, nil
}

// Amount is unit price times quantity
func (i LineItem) Amount() valueobject.Money {
	return i.UnitPrice.MultiplyByInt(int64(i.Quantity))
}
