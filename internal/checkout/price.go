// Package checkout turns a product selection into a payment-link request.
package checkout

import (
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/language"

	"markket/internal/normalize"
)

// Price is one purchasable option of a product. Amount is in minor units.
type Price struct {
	ID          string
	Name        string
	Description string
	Amount      int64
	Currency    string
}

// Prices reads the product's price options. Entries without a payment
// provider id cannot be selected and are skipped.
func Prices(product gjson.Result) []Price {
	var out []Price
	normalize.First(product, "PRICES", "prices").ForEach(func(_, p gjson.Result) bool {
		id := normalize.String(p, "STRIPE_ID", "stripe_id")
		if id == "" {
			return true
		}
		out = append(out, Price{
			ID:          id,
			Name:        normalize.String(p, "Name", "name"),
			Description: normalize.String(p, "Description", "description"),
			Amount:      normalize.Amount(p, "Price", "price"),
			Currency:    normalize.Currency(p, "Currency", "currency"),
		})
		return true
	})
	return out
}

// Label is the option's display text.
func (p Price) Label(lang language.Tag) string {
	name := strings.ReplaceAll(p.Name, "_", " ")
	if name == "" {
		name = p.ID
	}
	return name + " - " + normalize.FormatMoney(p.Amount, p.Currency, lang)
}
