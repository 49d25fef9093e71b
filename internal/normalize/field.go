// Package normalize extracts canonical values from loosely shaped JSON
// payloads (CMS records, payment sessions) using ordered fallback chains.
// Every accessor is total: missing, null or mistyped values degrade to the
// documented default instead of failing.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Placeholder is rendered in place of a missing display value.
const Placeholder = "—"

// First returns the first candidate path that exists and is not JSON null.
// The zero Result is returned when no candidate matches.
func First(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		r := doc.Get(p)
		if r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// String returns the first candidate holding a non-blank scalar, or "".
// Objects and arrays are skipped so an expanded reference (for example a
// customer object where an id string was expected) does not leak through.
func String(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		r := doc.Get(p)
		if r.Type != gjson.String && r.Type != gjson.Number {
			continue
		}
		if s := strings.TrimSpace(r.String()); s != "" {
			return s
		}
	}
	return ""
}

// Amount returns the first defined candidate as integer minor units, or 0.
func Amount(doc gjson.Result, paths ...string) int64 {
	v, _ := Int(First(doc, paths...))
	return v
}

// Int coerces a number or numeric string to an int64, rounding fractions.
// ok is false when r holds nothing numeric.
func Int(r gjson.Result) (v int64, ok bool) {
	switch r.Type {
	case gjson.Number:
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return i, true
		}
		return roundFloat(r.Float())
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return roundFloat(f)
	}
	return 0, false
}

func roundFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(math.Round(f)), true
}

// Currency returns the first non-blank currency code, uppercased, or
// DefaultCurrency.
func Currency(doc gjson.Result, paths ...string) string {
	if c := String(doc, paths...); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}
