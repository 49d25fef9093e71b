package normalize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/text/language"
)

func TestMoneyFormattingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("format is idempotent", prop.ForAll(
		func(a int64) bool {
			return FormatMoney(a, "USD", language.AmericanEnglish) == FormatMoney(a, "USD", language.AmericanEnglish)
		},
		gen.Int64Range(0, 1_000_000_000_00),
	))

	properties.Property("decimal rendering equals a/100 to two places", prop.ForAll(
		func(a int64) bool {
			want := fmt.Sprintf("%d.%02d", a/100, a%100)
			if PlainAmount(a) != want {
				return false
			}
			formatted := FormatMoney(a, "USD", language.AmericanEnglish)
			digits := strings.NewReplacer("$", "", ",", "").Replace(formatted)
			return digits == want
		},
		gen.Int64Range(0, 1_000_000_000_00),
	))

	properties.TestingRun(t)
}

func TestMissingFieldsNeverPanic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary input normalizes to a receipt with defaults", prop.ForAll(
		func(s string) bool {
			r := NormalizeReceipt([]byte(s))
			return r.Currency != "" && r.Items != nil
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
