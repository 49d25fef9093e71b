package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
)

const productJSON = `{
	"id": 42,
	"SKU": "MUG-1",
	"slug": "mug",
	"Name": "Coffee Mug",
	"PRICES": [
		{"STRIPE_ID": "price_basic", "Name": "basic_mug", "Price": 2500, "Currency": "usd", "Description": "One mug"},
		{"STRIPE_ID": "price_gift", "Name": "gift", "price": "4000", "currency": "eur"},
		{"Name": "orphan", "Price": 100}
	]
}`

const storeJSON = `{"data": {"documentId": "store-doc"}, "slug": "shop"}`

type fakeLinker struct {
	calls atomic.Int64
	req   Request
	err   error
	wait  chan struct{}
}

func (f *fakeLinker) CreatePaymentLink(_ context.Context, req Request) (string, error) {
	f.calls.Add(1)
	f.req = req
	if f.wait != nil {
		<-f.wait
	}
	if f.err != nil {
		return "", f.err
	}
	return "https://pay.example/l/1", nil
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(gjson.Parse(productJSON), gjson.Parse(storeJSON)).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPrices(t *testing.T) {
	prices := Prices(gjson.Parse(productJSON))
	require.Len(t, prices, 2)
	assert.Equal(t, Price{ID: "price_basic", Name: "basic_mug", Description: "One mug", Amount: 2500, Currency: "USD"}, prices[0])
	assert.Equal(t, int64(4000), prices[1].Amount)
	assert.Equal(t, "EUR", prices[1].Currency)
	assert.Equal(t, "basic mug - $25.00", prices[0].Label(language.AmericanEnglish))

	assert.Empty(t, Prices(gjson.Parse(`{}`)))
}

func TestNewBuilderDerivesContext(t *testing.T) {
	b := newBuilder(t)
	assert.Equal(t, "42", b.ProductRef)
	assert.Equal(t, "store-doc", b.StoreRef)
	assert.False(t, b.TestMode)
	assert.True(t, b.RequiresShipping)

	digital := NewBuilder(gjson.Parse(`{"slug":"ebook","Title":"TEST Digital Download"}`), gjson.Parse(`{"slug":"shop"}`))
	assert.Equal(t, "ebook", digital.ProductRef)
	assert.Equal(t, "shop", digital.StoreRef)
	assert.True(t, digital.TestMode)
	assert.False(t, digital.RequiresShipping)
}

func TestQuoteRecomputes(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Select("price_basic"))
	b.SetQuantity(2)

	q := b.Quote()
	assert.Equal(t, int64(5000), q.Subtotal)
	assert.Equal(t, int64(5000), q.Total)
	require.Len(t, q.LineItems, 1)
	assert.Equal(t, LineItem{Price: "price_basic", Quantity: 2, Currency: "usd"}, q.LineItems[0])

	b.SetTip(300)
	q = b.Quote()
	assert.Equal(t, int64(5300), q.Total)
	require.Len(t, q.LineItems, 2)
	assert.Equal(t, LineItem{UnitAmount: "300", Product: "MUG-1", Currency: "usd"}, q.LineItems[1])

	require.NoError(t, b.Select("price_gift"))
	q = b.Quote()
	assert.Equal(t, int64(8300), q.Total)
	assert.Equal(t, "eur", q.LineItems[1].Currency)
}

func TestSelectUnknown(t *testing.T) {
	b := newBuilder(t)
	err := b.Select("price_missing")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "price", fe.Field)

	require.NoError(t, b.Select(""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		price string
		qty   int64
		tip   int64
		field string
	}{
		{"nothing selected", "", 1, 0, "price"},
		{"zero quantity", "price_basic", 0, 0, "quantity"},
		{"negative tip", "price_basic", 1, -1, "tip"},
		{"no description", "price_gift", 1, 0, "price"},
		{"quantity overflows subtotal", "price_basic", 1<<62 + 1, 0, "quantity"},
		{"largest safe quantity", "price_basic", math.MaxInt64 / 2500, 0, ""},
		{"tip overflows total", "price_basic", 2, math.MaxInt64 - 4999, "tip"},
		{"largest safe tip", "price_basic", 2, math.MaxInt64 - 5000, ""},
		{"valid", "price_basic", 1, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t)
			require.NoError(t, b.Select(tt.price))
			b.SetQuantity(tt.qty)
			b.SetTip(tt.tip)

			err := b.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				assert.True(t, b.CanSubmit())
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.False(t, b.CanSubmit())
		})
	}
}

func TestOverflowingQuantityNeverReachesRequest(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Select("price_basic"))
	b.SetQuantity(1<<62 + 1)

	_, err := b.Request()
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "quantity", fe.Field)
	assert.False(t, b.CanSubmit())
}

func TestZeroPriceNeedsTip(t *testing.T) {
	b := NewBuilder(gjson.Parse(`{"Name":"Pay what you want","PRICES":[{"STRIPE_ID":"p0","Price":0,"Description":"Free"}]}`), gjson.Parse(`{}`))
	require.NoError(t, b.Select("p0"))

	var fe *FieldError
	require.ErrorAs(t, b.Validate(), &fe)
	assert.Equal(t, "total", fe.Field)
	assert.Equal(t, MsgInvalidTotal, b.Hint())

	b.SetTip(500)
	assert.NoError(t, b.Validate())
	assert.Equal(t, "Free", b.Hint())
}

func TestSubmitSendsRequest(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Select("price_basic"))
	b.SetTip(100)
	l := &fakeLinker{}

	link, err := b.Submit(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/l/1", link)
	assert.False(t, b.Submitting())

	raw, err := json.Marshal(l.req)
	require.NoError(t, err)
	doc := gjson.ParseBytes(raw)
	assert.Equal(t, int64(2600), doc.Get("totalPrice").Int())
	assert.Equal(t, "42", doc.Get("product").String())
	assert.Equal(t, "store-doc", doc.Get("store_id").String())
	assert.False(t, doc.Get("stripe_test").Bool())
	assert.True(t, doc.Get("includes_shipping").Bool())
	assert.Equal(t, "price_basic", doc.Get("prices.0.price").String())
	assert.Equal(t, "100", doc.Get("prices.1.unit_amount").String())
	assert.False(t, doc.Get("prices.1.price").Exists())
	assert.Len(t, doc.Get("client_reference_id").String(), 36)
}

func TestSubmitValidationBlocksNetwork(t *testing.T) {
	b := newBuilder(t)
	l := &fakeLinker{}

	_, err := b.Submit(context.Background(), l)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, l.calls.Load())
}

func TestSubmitErrorIsVerbatimAndReenables(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Select("price_basic"))
	want := errors.New("card declined by provider")
	l := &fakeLinker{err: want}

	_, err := b.Submit(context.Background(), l)
	assert.Equal(t, want, err)
	assert.True(t, b.CanSubmit())
}

func TestSubmitWhileInFlight(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Select("price_basic"))
	l := &fakeLinker{wait: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), l)
		done <- err
	}()
	require.Eventually(t, b.Submitting, time.Second, time.Millisecond)
	assert.False(t, b.CanSubmit())

	_, err := b.Submit(context.Background(), l)
	assert.ErrorIs(t, err, ErrInFlight)

	close(l.wait)
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), l.calls.Load())
}

func TestQuoteProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("total is base*quantity+tip and tip adds one line item", prop.ForAll(
		func(base int64, qty int64, tip int64) bool {
			product := gjson.Parse(`{"Name":"X","PRICES":[{"STRIPE_ID":"p","Price":` +
				strconv.FormatInt(base, 10) + `,"Description":"d"}]}`)
			b := NewBuilder(product, gjson.Parse(`{}`))
			if b.Select("p") != nil {
				return false
			}
			b.SetQuantity(qty)
			b.SetTip(tip)

			q := b.Quote()
			if q.Total != base*qty+tip {
				return false
			}
			wantItems := 1
			if tip > 0 {
				wantItems = 2
			}
			return len(q.LineItems) == wantItems && q.LineItems[0].Quantity == qty
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(1, 1000),
		gen.Int64Range(0, 100_000),
	))

	properties.TestingRun(t)
}
