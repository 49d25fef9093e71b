package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
)

func TestFirstSkipsNullAndMissing(t *testing.T) {
	doc := gjson.Parse(`{"a":null,"b":0,"c":"x"}`)

	assert.Equal(t, int64(0), First(doc, "missing", "a", "b").Int())
	assert.Equal(t, gjson.Number, First(doc, "a", "b").Type)
	assert.False(t, First(doc, "missing", "a").Exists())
}

func TestStringSkipsBlankAndObjects(t *testing.T) {
	doc := gjson.Parse(`{"customer":{"id":"cus_1"},"customer_email":"  ","email":"a@b.com"}`)

	assert.Equal(t, "a@b.com", String(doc, "customer", "customer_email", "email"))
	assert.Equal(t, "", String(doc, "nope"))
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int64
	}{
		{"integer", `{"amount_total":2599}`, 2599},
		{"numeric string", `{"amount_total":"2599"}`, 2599},
		{"fraction rounds", `{"amount_total":10.6}`, 11},
		{"garbage", `{"amount_total":"abc"}`, 0},
		{"null falls through", `{"amount_total":null,"total":500}`, 500},
		{"missing", `{}`, 0},
		{"object", `{"amount_total":{"v":1}}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Amount(gjson.Parse(tt.json), "amount_total", "amountTotal", "total")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrencyDefaultsAndUppercases(t *testing.T) {
	assert.Equal(t, "EUR", Currency(gjson.Parse(`{"currency":"eur"}`), "currency"))
	assert.Equal(t, "USD", Currency(gjson.Parse(`{}`), "currency"))
}

func TestFormatMoney(t *testing.T) {
	en := language.AmericanEnglish

	assert.Equal(t, "$25.99", FormatMoney(2599, "usd", en))
	assert.Equal(t, "$0.00", FormatMoney(0, "USD", en))
	assert.Equal(t, "$1,234.50", FormatMoney(123450, "USD", en))
	assert.Equal(t, "-$5.05", FormatMoney(-505, "USD", en))
}

func TestFormatMoneyInvalidCurrencyFallsBack(t *testing.T) {
	assert.Equal(t, "25.99", FormatMoney(2599, "not-a-code", language.AmericanEnglish))
	assert.Equal(t, "25.99", FormatMoney(2599, "", language.AmericanEnglish))
}

func TestPlainAmount(t *testing.T) {
	assert.Equal(t, "0.05", PlainAmount(5))
	assert.Equal(t, "-1.00", PlainAmount(-100))
	assert.Equal(t, "-92233720368547758.08", PlainAmount(-9223372036854775808))
}

func TestParseDate(t *testing.T) {
	secs, ok := ParseDate(gjson.Parse(`1700000000`))
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), secs.Unix())

	millis, ok := ParseDate(gjson.Parse(`1700000000123`))
	require.True(t, ok)
	assert.Equal(t, int64(1700000000123), millis.UnixMilli())

	iso, ok := ParseDate(gjson.Parse(`"2024-03-05T10:00:00Z"`))
	require.True(t, ok)
	assert.Equal(t, 2024, iso.Year())

	for _, raw := range []string{`"not a date"`, `""`, `0`, `null`, `{}`} {
		_, ok := ParseDate(gjson.Parse(raw))
		assert.False(t, ok, raw)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, Placeholder, FormatDate(time.Time{}, time.UTC))
	assert.Equal(t, "Nov 14, 2023, 10:13:20 PM", FormatDate(time.Unix(1700000000, 0), time.UTC))
}
