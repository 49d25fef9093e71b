package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"markket/internal/normalize"
)

// ErrInFlight is returned by Submit while an earlier submission is pending.
var ErrInFlight = errors.New("checkout already in progress")

// Messages shown under the total.
const (
	MsgInvalidTotal = "Please select an option and enter a valid total."
	MsgCustomPrice  = "Continue using custom price"
)

var (
	testPattern    = regexp.MustCompile(`(?i)test`)
	digitalPattern = regexp.MustCompile(`(?i)digital`)
)

// FieldError is a local validation failure tied to one form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// LineItem is one entry of the request's prices list. The selected option
// references the provider price; a tip carries a custom unit amount.
type LineItem struct {
	Price      string `json:"price,omitempty"`
	Quantity   int64  `json:"quantity,omitempty"`
	UnitAmount string `json:"unit_amount,omitempty"`
	Product    string `json:"product,omitempty"`
	Currency   string `json:"currency"`
}

// Request is the body handed to the payment-link collaborator.
type Request struct {
	TotalPrice        int64      `json:"totalPrice"`
	Product           string     `json:"product"`
	StoreID           string     `json:"store_id"`
	Prices            []LineItem `json:"prices"`
	StripeTest        bool       `json:"stripe_test"`
	IncludesShipping  bool       `json:"includes_shipping"`
	ClientReferenceID string     `json:"client_reference_id"`
}

// Quote is the recomputed state of the form.
type Quote struct {
	Selected  *Price
	Quantity  int64
	Tip       int64
	Subtotal  int64
	Total     int64
	Currency  string
	LineItems []LineItem
}

// PaymentLinker creates a hosted payment link for a request.
type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, req Request) (string, error)
}

// Builder holds the checkout form state for one product. It is safe for
// concurrent use so a pending submission can run beside UI reads.
type Builder struct {
	Title            string
	ProductRef       string
	StoreRef         string
	TestMode         bool
	RequiresShipping bool

	tipProduct string
	prices     []Price
	logger     *slog.Logger

	mu       sync.Mutex
	selected string
	quantity int64
	tip      int64
	inFlight bool
}

// NewBuilder derives the checkout context from product and store records.
func NewBuilder(product, store gjson.Result) *Builder {
	title := normalize.String(product, "Name", "Title")
	return &Builder{
		Title:            title,
		ProductRef:       normalize.String(product, "id", "SKU", "slug", "Name"),
		StoreRef:         normalize.String(store, "data.documentId", "documentId", "id", "slug"),
		TestMode:         testPattern.MatchString(title),
		RequiresShipping: !digitalPattern.MatchString(title),
		tipProduct:       normalize.String(product, "SKU", "slug", "Name"),
		prices:           Prices(product),
		logger:           slog.Default(),
		quantity:         1,
	}
}

// WithLogger replaces the builder's logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Prices returns the selectable options.
func (b *Builder) Prices() []Price {
	return append([]Price(nil), b.prices...)
}

// Select chooses an option by id. An empty id clears the selection.
func (b *Builder) Select(id string) error {
	if id != "" && b.find(id) == nil {
		return &FieldError{Field: "price", Message: fmt.Sprintf("unknown option %q", id)}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = id
	return nil
}

// SetQuantity updates the quantity.
func (b *Builder) SetQuantity(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quantity = n
}

// SetTip updates the tip in minor units.
func (b *Builder) SetTip(minor int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tip = minor
}

// Quote recomputes subtotal, total and line items from the current state.
func (b *Builder) Quote() Quote {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quote()
}

func (b *Builder) quote() Quote {
	q := Quote{Quantity: b.quantity, Tip: b.tip, Currency: normalize.DefaultCurrency}
	if p := b.find(b.selected); p != nil {
		q.Selected = p
		q.Currency = p.Currency
		q.Subtotal = p.Amount * b.quantity
	}
	q.Total = q.Subtotal + b.tip

	currency := strings.ToLower(q.Currency)
	q.LineItems = []LineItem{{Price: b.selected, Quantity: b.quantity, Currency: currency}}
	if b.tip > 0 {
		q.LineItems = append(q.LineItems, LineItem{
			UnitAmount: strconv.FormatInt(b.tip, 10),
			Product:    b.tipProduct,
			Currency:   currency,
		})
	}
	return q
}

// Validate reports the first field that blocks submission.
func (b *Builder) Validate() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.validate(b.quote())
}

func (b *Builder) validate(q Quote) error {
	switch {
	case q.Selected == nil:
		return &FieldError{Field: "price", Message: "Select an option"}
	case q.Quantity < 1:
		return &FieldError{Field: "quantity", Message: "Quantity must be at least 1"}
	case q.Tip < 0:
		return &FieldError{Field: "tip", Message: "Tip cannot be negative"}
	case q.Selected.Amount > 0 && q.Quantity > math.MaxInt64/q.Selected.Amount:
		return &FieldError{Field: "quantity", Message: "Quantity is too large"}
	case q.Subtotal > math.MaxInt64-q.Tip:
		return &FieldError{Field: "tip", Message: "Tip is too large"}
	case q.Selected.Description == "":
		return &FieldError{Field: "price", Message: "This option is not available for checkout"}
	case q.Total <= 0:
		return &FieldError{Field: "total", Message: MsgInvalidTotal}
	}
	return nil
}

// CanSubmit reports whether the form is valid and idle.
func (b *Builder) CanSubmit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.inFlight && b.validate(b.quote()) == nil
}

// Submitting reports whether a submission is pending.
func (b *Builder) Submitting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// Hint is the helper text shown under the total.
func (b *Builder) Hint() string {
	q := b.Quote()
	if q.Total <= 0 {
		return MsgInvalidTotal
	}
	if q.Selected != nil && q.Selected.Description != "" {
		return q.Selected.Description
	}
	return MsgCustomPrice
}

// Request validates the form and builds a fresh request.
func (b *Builder) Request() (Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.request()
}

func (b *Builder) request() (Request, error) {
	q := b.quote()
	if err := b.validate(q); err != nil {
		return Request{}, err
	}
	return Request{
		TotalPrice:        q.Total,
		Product:           b.ProductRef,
		StoreID:           b.StoreRef,
		Prices:            q.LineItems,
		StripeTest:        b.TestMode,
		IncludesShipping:  b.RequiresShipping,
		ClientReferenceID: uuid.NewString(),
	}, nil
}

// Submit validates, then hands the request to the linker. Validation
// failures return before any network call. Collaborator errors are
// returned unchanged and the form becomes submittable again.
func (b *Builder) Submit(ctx context.Context, linker PaymentLinker) (string, error) {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return "", ErrInFlight
	}
	req, err := b.request()
	if err != nil {
		b.mu.Unlock()
		return "", err
	}
	b.inFlight = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight = false
		b.mu.Unlock()
	}()

	link, err := linker.CreatePaymentLink(ctx, req)
	if err != nil {
		b.logger.Warn("payment link failed", "product", b.ProductRef, "err", err)
		return "", err
	}
	b.logger.Info("payment link created", "product", b.ProductRef, "link", link, "reference", req.ClientReferenceID)
	return link, nil
}

func (b *Builder) find(id string) *Price {
	if id == "" {
		return nil
	}
	for i := range b.prices {
		if b.prices[i].ID == id {
			p := b.prices[i]
			return &p
		}
	}
	return nil
}
