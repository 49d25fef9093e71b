package cms

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Flatten removes Strapi v4 envelopes: {id, attributes:{...}} becomes one
// object and relation wrappers {data: ...} collapse to their content.
// Strapi v5 records pass through unchanged.
func Flatten(r gjson.Result) []byte {
	switch {
	case r.IsArray():
		out := []byte("[]")
		r.ForEach(func(_, v gjson.Result) bool {
			out, _ = sjson.SetRawBytes(out, "-1", Flatten(v))
			return true
		})
		return out
	case r.IsObject():
		if attrs := r.Get("attributes"); attrs.IsObject() {
			out := flattenObject(attrs)
			for _, key := range []string{"id", "documentId"} {
				if v := r.Get(key); v.Exists() {
					out, _ = sjson.SetRawBytes(out, key, []byte(v.Raw))
				}
			}
			return out
		}
		if isRelationEnvelope(r) {
			return Flatten(r.Get("data"))
		}
		return flattenObject(r)
	case !r.Exists():
		return []byte("null")
	default:
		return []byte(r.Raw)
	}
}

func flattenObject(r gjson.Result) []byte {
	out := []byte("{}")
	r.ForEach(func(k, v gjson.Result) bool {
		out, _ = sjson.SetRawBytes(out, escapeKey(k.String()), Flatten(v))
		return true
	})
	return out
}

// isRelationEnvelope matches {data: ...} optionally accompanied by meta.
func isRelationEnvelope(r gjson.Result) bool {
	keys := 0
	hasData := false
	r.ForEach(func(k, _ gjson.Result) bool {
		keys++
		switch k.String() {
		case "data":
			hasData = true
		case "meta":
		default:
			keys += 10
		}
		return keys < 10
	})
	return hasData && keys <= 2
}

var keyEscaper = strings.NewReplacer(
	`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, ":", `\:`,
)

func escapeKey(k string) string {
	return keyEscaper.Replace(k)
}
