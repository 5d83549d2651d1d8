package invoice

import (
	"testing"

	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustItem(t *testing.T, category, price string, qty int) LineItem {
	t.Helper()
	item, err := NewLineItem(category, valueobject.MustMoney(price), qty)
	require.NoError(t, err)
	return item
}

func TestCalculate(t *testing.T) {
	t.Run("admin defaults", func(t *testing.T) {
		totals := Calculate([]LineItem{mustItem(t, "VIP", "250.00", 2)}, AdminRates())

		assert.Equal(t, "500.00", totals.Subtotal.String())
		assert.Equal(t, "125.00", totals.Tax.String())
		assert.Equal(t, "5.00", totals.Fee.String())
		assert.Equal(t, "630.00", totals.Total.String())
		assert.True(t, totals.Consistent())
	})

	t.Run("ingestion defaults", func(t *testing.T) {
		totals := Calculate([]LineItem{mustItem(t, "VIP", "250.00", 2)}, IngestionRates())

		assert.Equal(t, "500.00", totals.Subtotal.String())
		assert.Equal(t, "125.00", totals.Tax.String())
		assert.Equal(t, "10.00", totals.Fee.String())
		assert.Equal(t, "635.00", totals.Total.String())
	})

	t.Run("empty items", func(t *testing.T) {
		totals := Calculate(nil, AdminRates())

		assert.True(t, totals.Subtotal.IsZero())
		assert.True(t, totals.Tax.IsZero())
		assert.True(t, totals.Total.Equals(totals.Fee))
	})

	t.Run("subtotal is the exact sum of price times quantity", func(t *testing.T) {
		items := []LineItem{
			mustItem(t, "A", "0.10", 3),
			mustItem(t, "B", "0.20", 7),
			mustItem(t, "C", "19.99", 1000),
		}
		totals := Calculate(items, AdminRates())

		assert.True(t, totals.Subtotal.Equals(valueobject.MustMoney("19991.70")))
		assert.True(t, totals.Consistent())
	})

	t.Run("overrides", func(t *testing.T) {
		fee := valueobject.MustMoney("0")
		rate := decimal.RequireFromString("0.1")
		rates := AdminRates().Apply(RateOverrides{Fee: &fee, TaxRate: &rate})

		totals := Calculate([]LineItem{mustItem(t, "GA", "100", 1)}, rates)

		assert.Equal(t, "10.00", totals.Tax.String())
		assert.Equal(t, "110.00", totals.Total.String())
	})

	t.Run("partial override keeps the other default", func(t *testing.T) {
		rate := decimal.RequireFromString("0")
		rates := IngestionRates().Apply(RateOverrides{TaxRate: &rate})

		assert.True(t, rates.Fee.Equals(DefaultIngestionFee))
		assert.True(t, rates.TaxRate.IsZero())
	})
}

func TestTotals_Rounded(t *testing.T) {
	rate := decimal.RequireFromString("0.0825")
	rates := AdminRates().Apply(RateOverrides{TaxRate: &rate})
	totals := Calculate([]LineItem{mustItem(t, "GA", "33.333", 3)}, rates)

	rounded := totals.Rounded()

	assert.Equal(t, "100.00", rounded.Subtotal.String())
	assert.Equal(t, "8.25", rounded.Tax.String())
	assert.True(t, rounded.Consistent())
	assert.Equal(t, "113.25", rounded.Total.String())
}
