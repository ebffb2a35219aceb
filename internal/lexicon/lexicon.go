// Package lexicon tokenizes and lemmatizes free text.
package lexicon

import (
	"strings"
	"unicode"
)

// irregular maps forms the suffix rules would mangle to their lemma.
var irregular = map[string]string{
	"children": "child",
	"people":   "person",
	"men":      "man",
	"women":    "woman",
	"mice":     "mouse",
	"geese":    "goose",
	"feet":     "foot",
	"teeth":    "tooth",
	"went":     "go",
	"gone":     "go",
	"ran":      "run",
	"did":      "do",
	"done":     "do",
	"saw":      "see",
	"seen":     "see",
	"was":      "be",
	"were":     "be",
	"been":     "be",
	"is":       "be",
	"are":      "be",
	"has":      "have",
	"had":      "have",
	"better":   "good",
	"best":     "good",
	"wrote":    "write",
	"written":  "write",
	"felt":     "feel",
	"thought":  "think",
	"planning": "plan",
	"planned":  "plan",
	"news":     "news",
	"always":   "always",
	"this":     "this",
	"series":   "series",

	// -es plurals of words ending in e.
	"themes":     "theme",
	"phases":     "phase",
	"milestones": "milestone",
	"notes":      "note",
	"updates":    "update",
	"releases":   "release",
	"changes":    "change",
	"routines":   "routine",
	"schedules":  "schedule",
	"issues":     "issue",
	"values":     "value",
	"places":     "place",
	"pages":      "page",
	"states":     "state",
}

// suffixRule strips a suffix from tokens longer than minLen.
type suffixRule struct {
	suffix  string
	replace string
	minLen  int
	// skip prevents the rule from firing when the token has this ending.
	skip string
}

// rules are tried in order; the first one that matches wins.
var rules = []suffixRule{
	{suffix: "ies", replace: "y", minLen: 4},
	{suffix: "ing", minLen: 5},
	{suffix: "ed", minLen: 4},
	{suffix: "es", minLen: 4},
	{suffix: "ly", minLen: 4},
	{suffix: "s", minLen: 3, skip: "ss"},
}

// Tokenize lowercases text, strips everything outside [a-z0-9] and
// whitespace, and splits on whitespace. Any Unicode space separates tokens.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Stem reduces a lowercase token to its lemma.
func Stem(token string) string {
	if lemma, ok := irregular[token]; ok {
		return lemma
	}
	for _, r := range rules {
		if len(token) <= r.minLen || !strings.HasSuffix(token, r.suffix) {
			continue
		}
		if r.skip != "" && strings.HasSuffix(token, r.skip) {
			continue
		}
		return token[:len(token)-len(r.suffix)] + r.replace
	}
	return token
}

// Normalize tokenizes text and stems every token.
func Normalize(text string) []string {
	tokens := Tokenize(text)
	for i, t := range tokens {
		tokens[i] = Stem(t)
	}
	return tokens
}
