package invoice

import (
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Default rates. The administrative and ingestion paths use different default fees.
var (
	DefaultAdminFee     = valueobject.NewMoneyFromInt(5)
	DefaultIngestionFee = valueobject.NewMoneyFromInt(10)
	DefaultTaxRate      = decimal.RequireFromString("0.25")
)

// Rates are the fee and tax rate applied on top of an invoice subtotal
type Rates struct {
	Fee     valueobject.Money
	TaxRate decimal.Decimal
}

// AdminRates returns the defaults for administrative create and update
func AdminRates() Rates {
	return Rates{Fee: DefaultAdminFee, TaxRate: DefaultTaxRate}
}

// IngestionRates returns the defaults for queue-driven creation
func IngestionRates() Rates {
	return Rates{Fee: DefaultIngestionFee, TaxRate: DefaultTaxRate}
}

// RateOverrides carries optional caller-supplied rates. Nil fields keep the default.
type RateOverrides struct {
	Fee     *valueobject.Money
	TaxRate *decimal.Decimal
}

// Apply returns r with any non-nil override substituted
func (r Rates) Apply(o RateOverrides) Rates {
	if o.Fee != nil {
		r.Fee = *o.Fee
	}
	if o.TaxRate != nil {
		r.TaxRate = *o.TaxRate
	}
	return r
}

// Totals are the computed monetary fields of an invoice
type Totals struct {
	Subtotal valueobject.Money
	Tax      valueobject.Money
	Fee      valueobject.Money
	Total    valueobject.Money
}

// Calculate computes totals for items at full precision. It has no side effects.
func Calculate(items []LineItem, rates Rates) Totals {
	subtotal := valueobject.Zero()
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
	}
	tax := subtotal.Multiply(rates.TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Fee:      rates.Fee,
		Total:    subtotal.Add(tax).Add(rates.Fee),
	}
}

// Rounded rounds each component to two digits and re-derives Total from the rounded
// components, so total = subtotal + tax + fee still holds on the stored values.
func (t Totals) Rounded() Totals {
	subtotal := t.Subtotal.Rounded()
	tax := t.Tax.Rounded()
	fee := t.Fee.Rounded()
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Fee:      fee,
		Total:    subtotal.Add(tax).Add(fee),
	}
}

// Consistent reports whether total = subtotal + tax + fee
func (t Totals) Consistent() bool {
	return t.Total.Equals(t.Subtotal.Add(t.Tax).Add(t.Fee))
}
