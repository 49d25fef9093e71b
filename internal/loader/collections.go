package loader

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"markket/internal/cms"
)

// SlugPlaceholder is replaced with the store slug inside filters.
const SlugPlaceholder = "{slug}"

// Definition names a collection and the query that fills it.
type Definition struct {
	Name      string `yaml:"name"`
	cms.Query `yaml:",inline"`
}

// DefaultDefinitions returns the storefront collections.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: "pages", Query: cms.Query{
			ContentType: "page",
			Filter:      "filters[store][slug][$eq]=" + SlugPlaceholder,
			Populate:    []string{"SEO.socialImage", "albums", "albums.tracks", "albums.cover"},
			Sort:        "slug:DESC",
		}},
		{Name: "store", Query: cms.Query{
			ContentType: "store",
			Filter:      "filters[slug][$eq]=" + SlugPlaceholder,
			Populate:    []string{"SEO.socialImage", "Logo", "URLS", "Favicon", "Cover"},
		}},
		{Name: "stores", Query: cms.Query{
			ContentType: "store",
			Filter:      "filters[active]=true",
			Populate:    []string{"SEO.socialImage", "Logo", "URLS", "Favicon"},
		}},
		{Name: "products", Query: cms.Query{
			ContentType: "product",
			Filter:      "filters[stores][slug][$eq]=" + SlugPlaceholder,
			Populate:    []string{"SEO", "SEO.socialImage", "Thumbnail", "Slides", "PRICES"},
			Sort:        "slug:DESC",
		}},
		{Name: "posts", Query: cms.Query{
			ContentType: "article",
			Filter:      "filters[store][slug][$eq]=" + SlugPlaceholder,
			Populate:    []string{"SEO.socialImage", "Tags", "store", "cover"},
			Sort:        "createdAt:DESC",
			Limit:       100,
		}},
		{Name: "events", Query: cms.Query{
			ContentType: "event",
			Filter:      "filters[stores][slug][$eq]=" + SlugPlaceholder,
			Populate:    []string{"SEO", "SEO.socialImage", "Tag", "Thumbnail", "Slides", "stores"},
		}},
	}
}

type definitionsFile struct {
	Collections []Definition `yaml:"collections"`
}

// ReadDefinitions merges a YAML collections file over the defaults.
// Entries with a known name replace the default, others are appended.
func ReadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collections file: %w", err)
	}
	var f definitionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse collections file: %w", err)
	}

	defs := DefaultDefinitions()
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.Name] = i
	}
	for _, d := range f.Collections {
		if d.Name == "" || d.ContentType == "" {
			return nil, fmt.Errorf("collection entry needs name and content_type")
		}
		if i, ok := index[d.Name]; ok {
			defs[i] = d
			continue
		}
		index[d.Name] = len(defs)
		defs = append(defs, d)
	}
	return defs, nil
}

// ForStore substitutes the store slug into every filter.
func ForStore(defs []Definition, slug string) []Definition {
	out := make([]Definition, len(defs))
	for i, d := range defs {
		d.Filter = strings.ReplaceAll(d.Filter, SlugPlaceholder, url.QueryEscape(slug))
		out[i] = d
	}
	return out
}
