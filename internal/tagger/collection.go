package tagger

import (
	"math"
	"sort"
	"strings"

	"github.com/rcliao/memory-garden/internal/model"
)

// NormalizeTerm lowercases a term and collapses its whitespace.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// Collection registers tags keyed by normalized term.
// Insertion order is kept for stable output.
type Collection struct {
	index map[string]int
	tags  []model.Tag
}

// NewCollection returns a collection seeded with tags.
func NewCollection(tags ...model.Tag) *Collection {
	c := &Collection{index: make(map[string]int, len(tags))}
	for _, t := range tags {
		c.Add(t.Term, t.Weight, t.Kind)
	}
	return c
}

// Add registers a tag. Repeated terms sum their weights; a synonym kind
// is replaced by the first non-synonym registration. Empty terms are
// ignored.
func (c *Collection) Add(term string, weight float64, kind model.TagKind) bool {
	term = NormalizeTerm(term)
	if term == "" {
		return false
	}
	if i, ok := c.index[term]; ok {
		c.tags[i].Weight += weight
		if c.tags[i].Kind == model.KindSynonym && kind != model.KindSynonym {
			c.tags[i].Kind = kind
		}
		return true
	}
	c.index[term] = len(c.tags)
	c.tags = append(c.tags, model.Tag{Term: term, Weight: weight, Kind: kind})
	return true
}

// Lookup returns the tag registered for term.
func (c *Collection) Lookup(term string) (model.Tag, bool) {
	i, ok := c.index[NormalizeTerm(term)]
	if !ok {
		return model.Tag{}, false
	}
	return c.tags[i], true
}

// Bump adds delta to an existing tag's weight without touching its kind.
func (c *Collection) Bump(term string, delta float64) bool {
	i, ok := c.index[NormalizeTerm(term)]
	if !ok {
		return false
	}
	c.tags[i].Weight += delta
	return true
}

// Len returns the number of distinct terms.
func (c *Collection) Len() int { return len(c.tags) }

// Tags returns the tags in insertion order with weights rounded.
func (c *Collection) Tags() []model.Tag {
	out := make([]model.Tag, len(c.tags))
	for i, t := range c.tags {
		t.Weight = Round3(t.Weight)
		out[i] = t
	}
	return out
}

// Top returns the n heaviest tags, ties broken by term, weights rounded.
func (c *Collection) Top(n int) []model.Tag {
	sorted := make([]model.Tag, len(c.tags))
	copy(sorted, c.tags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Term < sorted[j].Term
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	for i := range sorted {
		sorted[i].Weight = Round3(sorted[i].Weight)
	}
	return sorted
}

// Round3 rounds to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Terms returns the set of terms in tags.
func Terms(tags []model.Tag) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t.Term] = true
	}
	return set
}
