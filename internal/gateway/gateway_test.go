package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"markket/internal/checkout"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder serves a fixed reply and keeps the last request body.
type recorder struct {
	status int
	reply  string
	path   string
	body   gjson.Result
}

func (r *recorder) server(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		r.path = req.URL.Path
		r.body = gjson.ParseBytes(raw)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		w.WriteHeader(r.status)
		w.Write([]byte(r.reply))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/").WithLogger(quiet)
}

func TestLookupReceipt(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"nested response", `{"data":{"link":{"response":{"id":"cs_1","amount_total":100}}}}`, `{"id":"cs_1","amount_total":100}`},
		{"plain data", `{"data":{"id":"cs_2"}}`, `{"id":"cs_2"}`},
		{"empty", `{"data":null}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: http.StatusOK, reply: tt.reply}
			got, err := rec.server(t).LookupReceipt(context.Background(), "cs_test")
			require.NoError(t, err)
			assert.Equal(t, "/api/markket", rec.path)
			assert.Equal(t, "stripe.receipt", rec.body.Get("action").String())
			assert.Equal(t, "cs_test", rec.body.Get("session_id").String())
			if tt.want == "" {
				assert.Nil(t, got)
			} else {
				assert.JSONEq(t, tt.want, string(got))
			}
		})
	}
}

func TestLookupReceiptFailures(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError, reply: `oops`}
	_, err := rec.server(t).LookupReceipt(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrBadResponse)
	assert.Equal(t, GenericMessage, UserMessage(err))

	rec = &recorder{status: http.StatusOK, reply: `not json`}
	_, err = rec.server(t).LookupReceipt(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrBadResponse)

	_, err = New("http://127.0.0.1:1").WithLogger(quiet).LookupReceipt(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, GenericMessage, UserMessage(err))
}

func TestCreatePaymentLink(t *testing.T) {
	req := checkout.Request{
		TotalPrice: 2600,
		Product:    "42",
		StoreID:    "store-doc",
		Prices:     []checkout.LineItem{{Price: "price_basic", Quantity: 1, Currency: "usd"}},
	}

	for _, reply := range []string{
		`{"data":{"link":{"url":"https://pay/1"}}}`,
		`{"data":{"url":"https://pay/1"}}`,
		`{"url":"https://pay/1"}`,
	} {
		rec := &recorder{status: http.StatusOK, reply: reply}
		link, err := rec.server(t).CreatePaymentLink(context.Background(), req)
		require.NoError(t, err, reply)
		assert.Equal(t, "https://pay/1", link)
		assert.Equal(t, "stripe.link", rec.body.Get("action").String())
		assert.Equal(t, int64(2600), rec.body.Get("totalPrice").Int())
		assert.Equal(t, "price_basic", rec.body.Get("prices.0.price").String())
	}
}

func TestCreatePaymentLinkFailures(t *testing.T) {
	rec := &recorder{status: http.StatusBadRequest, reply: `{"error":{"message":"Price is archived"}}`}
	_, err := rec.server(t).CreatePaymentLink(context.Background(), checkout.Request{})
	require.Error(t, err)
	assert.Equal(t, "Price is archived", err.Error())
	assert.Equal(t, "Price is archived", UserMessage(err))

	rec = &recorder{status: http.StatusOK, reply: `{"data":{}}`}
	_, err = rec.server(t).CreatePaymentLink(context.Background(), checkout.Request{})
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestSubscribe(t *testing.T) {
	rec := &recorder{status: http.StatusOK, reply: `{"data":{"id":1}}`}
	c := rec.server(t)

	require.NoError(t, c.Subscribe(context.Background(), " a@b.com ", "store-doc"))
	assert.Equal(t, "/api/subscribers", rec.path)
	assert.Equal(t, "a@b.com", rec.body.Get("data.Email").String())
	assert.Equal(t, `["store-doc"]`, rec.body.Get("data.stores").Raw)

	require.NoError(t, c.Subscribe(context.Background(), "a@b.com", ""))
	assert.Equal(t, `[]`, rec.body.Get("data.stores").Raw)
}

func TestSubscribeValidationSkipsNetwork(t *testing.T) {
	rec := &recorder{status: http.StatusOK, reply: `{}`}
	c := rec.server(t)

	for _, email := range []string{"", "nobody", "a@b", "a b@c.d"} {
		err := c.Subscribe(context.Background(), email, "s")
		var fe *checkout.FieldError
		require.ErrorAs(t, err, &fe, email)
		assert.Equal(t, "email", fe.Field)
		assert.Equal(t, "Please enter a valid email address", UserMessage(err))
	}
	assert.Empty(t, rec.path)
}

func TestSubscribeServerMessage(t *testing.T) {
	rec := &recorder{status: http.StatusConflict, reply: `{"message":"Already subscribed"}`}
	err := rec.server(t).Subscribe(context.Background(), "a@b.com", "s")
	assert.Equal(t, "Already subscribed", UserMessage(err))

	rec = &recorder{status: http.StatusBadGateway, reply: `<html>`}
	err = rec.server(t).Subscribe(context.Background(), "a@b.com", "s")
	assert.Equal(t, "Subscription failed", err.Error())
	assert.True(t, errors.Is(err, ErrBadResponse))
}

func TestUserMessageInFlight(t *testing.T) {
	assert.Equal(t, "Processing...", UserMessage(checkout.ErrInFlight))
	assert.Equal(t, GenericMessage, UserMessage(errors.New("boom")))
}
