// Package tagger derives weighted topical tags from free text.
package tagger

import (
	"strings"

	"github.com/rcliao/memory-garden/internal/lexicon"
	"github.com/rcliao/memory-garden/internal/model"
)

// Keywords returns the lemmas of text that survive stopword and length
// filtering, in order.
func Keywords(text string) []string {
	var out []string
	for _, tok := range lexicon.Tokenize(text) {
		lemma := lexicon.Stem(tok)
		if len(lemma) <= 2 || lexicon.IsStopword(tok) || lexicon.IsStopword(lemma) {
			continue
		}
		out = append(out, lemma)
	}
	return out
}

// Derive builds the ranked tag set for text: unigrams, n-gram phrases and
// synonyms, merged by term and cut to cfg.MaxTags.
func Derive(text string, cfg Config) []model.Tag {
	cfg = cfg.WithDefaults()
	terms := Keywords(text)
	if len(terms) == 0 {
		return []model.Tag{}
	}

	c := NewCollection()
	for p, term := range terms {
		c.Add(term, cfg.weightAt(term, float64(p)), model.KindKeyword)
	}

	minN := cfg.NGramRange[0]
	if minN < 2 {
		minN = 2
	}
	for n := minN; n <= cfg.NGramRange[1]; n++ {
		for start := 0; start+n <= len(terms); start++ {
			phrase := strings.Join(terms[start:start+n], " ")
			avg := float64(start) + float64(n-1)/2
			c.Add(phrase, cfg.weightAt(phrase, avg)*cfg.Weighting.ngramMultiplier(), model.KindPhrase)
		}
	}

	if cfg.EnableSynonyms && len(cfg.Synonyms) > 0 {
		for p, term := range terms {
			for _, syn := range cfg.Synonyms[term] {
				c.Add(syn, cfg.weightAt(term, float64(p))*cfg.Weighting.synonymMultiplier(), model.KindSynonym)
			}
		}
	}

	return c.Top(cfg.MaxTags)
}

// FromStrings turns caretaker-entered terms into tags of the given kind
// with unit weight.
func FromStrings(terms []string, kind model.TagKind) []model.Tag {
	inputs := make([]Input, 0, len(terms))
	for _, t := range terms {
		inputs = append(inputs, Term(t))
	}
	return Normalize(inputs, kind)
}
