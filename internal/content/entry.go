// Package content reads the common fields of CMS entries.
package content

import (
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"markket/internal/normalize"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Title returns the entry title, falling back to Name and slug.
func Title(doc gjson.Result) string {
	return normalize.String(doc, "Title", "title", "Name", "name", "slug")
}

// Tags returns lowercased tag names. Tags may be plain strings or objects
// with a name.
func Tags(doc gjson.Result) []string {
	var tags []string
	normalize.First(doc, "Tags", "tags").ForEach(func(_, t gjson.Result) bool {
		var name string
		if t.Type == gjson.String {
			name = t.String()
		} else {
			name = t.Get("name").String()
		}
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			tags = append(tags, name)
		}
		return true
	})
	return tags
}

// TitleWords splits the lowercased title on non-alphanumerics, keeping the
// first occurrence of each word.
func TitleWords(doc gjson.Result) []string {
	title := strings.ToLower(normalize.String(doc, "Title", "title"))
	seen := make(map[string]bool)
	var words []string
	for _, w := range nonAlnum.Split(title, -1) {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// Date returns the entry's publication date.
func Date(doc gjson.Result) (time.Time, bool) {
	return normalize.ParseDate(normalize.First(doc, "Date", "date", "publishedAt"))
}

// Excerpt returns the text of the first non-empty paragraph of Content,
// else the SEO meta description.
func Excerpt(doc gjson.Result) string {
	var excerpt string
	doc.Get("Content").ForEach(func(_, b gjson.Result) bool {
		if b.Get("type").String() != "paragraph" || !b.Get("children").IsArray() {
			return true
		}
		var parts []string
		b.Get("children").ForEach(func(_, c gjson.Result) bool {
			parts = append(parts, plainText(c))
			return true
		})
		excerpt = strings.TrimSpace(strings.Join(parts, " "))
		return excerpt == ""
	})
	if excerpt != "" {
		return excerpt
	}
	return normalize.String(doc, "SEO.metaDescription")
}

// Image returns the best social image URL for the entry, or "".
func Image(doc gjson.Result) string {
	return normalize.String(doc,
		"SEO.socialImage.formats.large.url",
		"SEO.socialImage.formats.small.url",
		"SEO.socialImage.url",
		"cover.url",
	)
}
