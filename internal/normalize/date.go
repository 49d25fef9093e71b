package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

// DateLayout is the display layout for receipt timestamps.
const DateLayout = "Jan 2, 2006, 3:04:05 PM"

// ParseDate interprets a timestamp field. Numbers with exactly ten digits are
// Unix seconds, any other number is Unix milliseconds, and strings go through
// the usual date layouts. Zero, blank and unparseable values report false.
func ParseDate(r gjson.Result) (time.Time, bool) {
	switch r.Type {
	case gjson.Number:
		if len(r.Raw) == 10 && isDigits(r.Raw) {
			return time.Unix(r.Int(), 0), true
		}
		f := r.Float()
		if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)), true
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return time.Time{}, false
		}
		t, err := cast.ToTimeE(s)
		if err != nil || t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders t in loc, or Placeholder for the zero time.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
