package normalize

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultCurrency is assumed when a payload carries no currency code.
const DefaultCurrency = "USD"

// FormatMoney renders an amount held in minor units (cents) for the given
// locale. The division by 100 happens here and nowhere else. An unknown or
// malformed currency code falls back to PlainAmount.
func FormatMoney(minor int64, code string, tag language.Tag) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return PlainAmount(minor)
	}

	p := message.NewPrinter(tag)
	sym := p.Sprint(currency.NarrowSymbol(unit))

	sign := ""
	abs := absMinor(minor)
	if minor < 0 {
		sign = "-"
	}
	major := float64(abs/100) + float64(abs%100)/100
	return sign + sym + p.Sprint(number.Decimal(major, number.Scale(2)))
}

// PlainAmount renders minor units as a bare decimal with two places.
func PlainAmount(minor int64) string {
	abs := absMinor(minor)
	sign := ""
	if minor < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

func absMinor(v int64) uint64 {
	if v >= 0 {
		return uint64(v)
	}
	return uint64(-(v + 1)) + 1
}
