package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Fallback chains for session/order payloads, in probe order.
var (
	currencyPaths = []string{"currency", "currency_code", "link.response.currency"}
	totalPaths    = []string{"amount_total", "amountTotal", "total", "amount", "payment_intent_amount"}
	subtotalPaths = []string{"amount_subtotal", "amountSubtotal", "subtotal"}
	emailPaths    = []string{"customer_details.email", "customer_email", "email", "receipt_email"}
	namePaths     = []string{"customer_details.name", "customer"}
	orderIDPaths  = []string{"id", "session_id", "transaction", "payment_intent"}
	createdPaths  = []string{"created", "created_at"}
	shippingPaths = []string{"shipping_details", "shipping", "collected_information.shipping_details", "link.response.shipping_details"}
	itemsPaths    = []string{"items", "line_items", "line_items.data"}
)

// Address is a normalized shipping destination.
type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Lines renders the address as display lines: name, street lines,
// "city, state, postal code" and country, skipping blanks.
func (a Address) Lines() []string {
	var lines []string
	for _, s := range []string{a.Name, a.Line1, a.Line2} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	var city []string
	for _, s := range []string{a.City, a.State, a.PostalCode} {
		if s != "" {
			city = append(city, s)
		}
	}
	if len(city) > 0 {
		lines = append(lines, strings.Join(city, ", "))
	}
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	return lines
}

// LineItem is one purchased unit row of a receipt.
type LineItem struct {
	Title      string
	Quantity   int64
	UnitAmount int64 // minor units
}

// Receipt is the normalized view of an arbitrary session or order payload.
type Receipt struct {
	OrderID       string
	Created       time.Time // zero when absent or invalid
	Currency      string
	Subtotal      int64 // minor units
	Total         int64 // minor units
	CustomerName  string
	CustomerEmail string
	Shipping      *Address
	Items         []LineItem

	// Extra holds top-level fields no fallback chain consumed.
	Extra map[string]json.RawMessage
}

// NormalizeReceipt maps raw JSON into a Receipt. Invalid or non-object input
// yields a Receipt holding only defaults.
func NormalizeReceipt(raw []byte) Receipt {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Receipt{Currency: DefaultCurrency, Items: []LineItem{}}
	}

	r := Receipt{
		OrderID:       String(doc, orderIDPaths...),
		Currency:      Currency(doc, currencyPaths...),
		Subtotal:      Amount(doc, subtotalPaths...),
		Total:         Amount(doc, totalPaths...),
		CustomerName:  String(doc, namePaths...),
		CustomerEmail: String(doc, emailPaths...),
		Shipping:      shippingAddress(doc),
		Items:         lineItems(doc),
		Extra:         extraFields(doc),
	}
	if t, ok := ParseDate(First(doc, createdPaths...)); ok {
		r.Created = t
	}
	return r
}

func shippingAddress(doc gjson.Result) *Address {
	ship := First(doc, shippingPaths...)
	if !ship.IsObject() {
		return nil
	}
	addr := ship.Get("address")
	if !addr.IsObject() {
		addr = ship
	}
	a := Address{
		Name:       String(ship, "name"),
		Line1:      String(addr, "line1"),
		Line2:      String(addr, "line2"),
		City:       String(addr, "city"),
		State:      String(addr, "state"),
		PostalCode: String(addr, "postal_code"),
		Country:    String(addr, "country"),
	}
	if a.Name == "" && !ship.Get("address").IsObject() {
		return nil
	}
	return &a
}

func lineItems(doc gjson.Result) []LineItem {
	items := []LineItem{}
	for _, p := range itemsPaths {
		arr := doc.Get(p)
		if !arr.IsArray() {
			continue
		}
		for _, it := range arr.Array() {
			qty, ok := Int(First(it, "qty", "quantity"))
			if !ok {
				qty = 1
			}
			title := String(it, "name", "description")
			if title == "" {
				title = "Item"
			}
			items = append(items, LineItem{
				Title:      title,
				Quantity:   qty,
				UnitAmount: Amount(it, "unit_price", "price", "amount"),
			})
		}
		break
	}
	return items
}

var consumed = func() map[string]bool {
	m := make(map[string]bool)
	chains := [][]string{currencyPaths, totalPaths, subtotalPaths, emailPaths, namePaths,
		orderIDPaths, createdPaths, shippingPaths, itemsPaths}
	for _, chain := range chains {
		for _, p := range chain {
			m[strings.SplitN(p, ".", 2)[0]] = true
		}
	}
	return m
}()

func extraFields(doc gjson.Result) map[string]json.RawMessage {
	extra := make(map[string]json.RawMessage)
	doc.ForEach(func(key, value gjson.Result) bool {
		if !consumed[key.Str] {
			extra[key.Str] = json.RawMessage(value.Raw)
		}
		return true
	})
	return extra
}
