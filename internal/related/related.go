// Package related ranks sibling entries by shared tags, shared title words
// and recency.
package related

import (
	"sort"
	"time"

	"github.com/tidwall/gjson"

	"markket/internal/content"
	"markket/internal/store"
)

// DefaultLimit is used when Rank is called with a non-positive limit.
const DefaultLimit = 3

const (
	tagWeight   = 10
	titleWeight = 2
)

// Scored is a candidate with its relatedness score.
type Scored struct {
	Item         store.Item
	Score        float64
	TagOverlap   int
	TitleOverlap int
	Recency      float64
}

// Rank scores every candidate except the target and returns the best
// limit of them, highest first. Equal scores keep pool order.
func Rank(target store.Item, pool []store.Item, limit int, now time.Time) []Scored {
	if limit <= 0 {
		limit = DefaultLimit
	}
	doc := target.Doc()
	tags := set(content.Tags(doc))
	words := set(content.TitleWords(doc))

	scored := make([]Scored, 0, len(pool))
	for _, c := range pool {
		if c.ID == target.ID {
			continue
		}
		cdoc := c.Doc()
		s := Scored{
			Item:         c,
			TagOverlap:   overlap(tags, content.Tags(cdoc)),
			TitleOverlap: overlap(words, content.TitleWords(cdoc)),
			Recency:      Recency(cdoc, now),
		}
		s.Score = float64(s.TagOverlap*tagWeight+s.TitleOverlap*titleWeight) + s.Recency
		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Recency is 1 for an entry dated now, falling linearly to 0 after a year.
// Missing dates score 0. Future dates are clamped to 1 rather than scoring
// above it, so a scheduled post cannot outrank a shared tag.
func Recency(doc gjson.Result, now time.Time) float64 {
	t, ok := content.Date(doc)
	if !ok {
		return 0
	}
	days := now.Sub(t).Hours() / 24
	return max(0, min(1, 1-days/365))
}

func set(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// overlap counts distinct values of other that are in base.
func overlap(base map[string]bool, other []string) int {
	seen := make(map[string]bool, len(other))
	n := 0
	for _, v := range other {
		if base[v] && !seen[v] {
			seen[v] = true
			n++
		}
	}
	return n
}
