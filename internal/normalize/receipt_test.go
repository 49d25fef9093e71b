package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNormalizeReceiptStripeSession(t *testing.T) {
	raw := []byte(`{
		"id": "cs_test_123",
		"created": 1700000000,
		"currency": "usd",
		"amount_subtotal": 2000,
		"amount_total": 2599,
		"customer_details": {"name": "Ada", "email": "ada@example.com"},
		"shipping_details": {
			"name": "Ada L",
			"address": {"line1": "1 Main St", "city": "Austin", "state": "TX", "postal_code": "78701", "country": "US"}
		},
		"line_items": {"data": [
			{"description": "Mug", "quantity": 2, "amount": 1000},
			{"qty": 1}
		]},
		"mode": "payment"
	}`)

	r := NormalizeReceipt(raw)

	assert.Equal(t, "cs_test_123", r.OrderID)
	assert.Equal(t, int64(1700000000), r.Created.Unix())
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, int64(2000), r.Subtotal)
	assert.Equal(t, int64(2599), r.Total)
	assert.Equal(t, "Ada", r.CustomerName)
	assert.Equal(t, "ada@example.com", r.CustomerEmail)
	require.NotNil(t, r.Shipping)
	assert.Equal(t, []string{"Ada L", "1 Main St", "Austin, TX, 78701", "US"}, r.Shipping.Lines())
	assert.Equal(t, []LineItem{
		{Title: "Mug", Quantity: 2, UnitAmount: 1000},
		{Title: "Item", Quantity: 1, UnitAmount: 0},
	}, r.Items)
	assert.Contains(t, r.Extra, "mode")
	assert.NotContains(t, r.Extra, "line_items")
}

func TestNormalizeReceiptScenario(t *testing.T) {
	r := NormalizeReceipt([]byte(`{"amount_total": 2599, "currency": "usd", "customer_email": "a@b.com"}`))

	assert.Equal(t, "$25.99", FormatMoney(r.Total, r.Currency, language.AmericanEnglish))
	assert.Equal(t, "a@b.com", r.CustomerEmail)
}

func TestNormalizeReceiptDefaults(t *testing.T) {
	for _, raw := range []string{`{}`, `not json`, `[1,2]`, `null`, ``} {
		r := NormalizeReceipt([]byte(raw))

		assert.Equal(t, "", r.OrderID, raw)
		assert.True(t, r.Created.IsZero(), raw)
		assert.Equal(t, DefaultCurrency, r.Currency, raw)
		assert.Zero(t, r.Total, raw)
		assert.Zero(t, r.Subtotal, raw)
		assert.Nil(t, r.Shipping, raw)
		assert.NotNil(t, r.Items, raw)
		assert.Empty(t, r.Items, raw)
	}
}

func TestNormalizeReceiptNestedLinkResponse(t *testing.T) {
	r := NormalizeReceipt([]byte(`{"link":{"response":{"currency":"eur","shipping_details":{"name":"Bo"}}}}`))

	assert.Equal(t, "EUR", r.Currency)
	require.NotNil(t, r.Shipping)
	assert.Equal(t, []string{"Bo"}, r.Shipping.Lines())
}

func TestShippingWithoutNameOrAddressIsDropped(t *testing.T) {
	r := NormalizeReceipt([]byte(`{"shipping":{"carrier":"ups"}}`))
	assert.Nil(t, r.Shipping)

	r = NormalizeReceipt([]byte(`{"shipping":{"address":{"line1":"x"}}}`))
	require.NotNil(t, r.Shipping)
	assert.Equal(t, []string{"x"}, r.Shipping.Lines())
}

func TestItemsPreferTopLevelArray(t *testing.T) {
	r := NormalizeReceipt([]byte(`{"items":[{"name":"A","unit_price":"150"}],"line_items":[{"name":"B"}]}`))

	require.Len(t, r.Items, 1)
	assert.Equal(t, "A", r.Items[0].Title)
	assert.Equal(t, int64(150), r.Items[0].UnitAmount)
}
