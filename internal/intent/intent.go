// Package intent classifies text into inquiry, planning, reflection or
// signal using additive lexical cues.
package intent

import (
	"math"
	"strings"

	"github.com/rcliao/memory-garden/internal/lexicon"
	"github.com/rcliao/memory-garden/internal/model"
)

// Classes returns the intent classes in a stable order.
func Classes() []model.Intent {
	out := make([]model.Intent, len(model.IntentClasses))
	copy(out, model.IntentClasses)
	return out
}

// Classify scores text and its derived tags against every class and
// returns the normalized distribution. The same input always yields the
// same profile.
func Classify(text string, tags []model.Tag) model.IntentProfile {
	tokens := lexicon.Tokenize(text)
	raw := map[model.Intent]float64{}
	for _, c := range model.IntentClasses {
		raw[c] = floorScore
	}
	features := map[string]float64{
		"tokens": float64(len(tokens)),
	}

	if strings.Contains(text, "?") {
		raw[model.IntentInquiry] += questionMarkBoost
		features["question_mark"] = 1
	}

	var interrogative bool
	for _, tok := range tokens {
		if interrogatives[tok] {
			interrogative = true
			break
		}
	}
	if interrogative {
		raw[model.IntentInquiry] += interrogativeBoost
		features["interrogative"] = 1
	}
	if len(tokens) > 0 && (interrogatives[tokens[0]] || auxiliaries[tokens[0]]) {
		raw[model.IntentInquiry] += leadingQuestion
		features["leading_question"] = 1
	}

	for _, c := range model.IntentClasses {
		hits := keywordHits(tokens, keywords[c])
		if hits == 0 {
			continue
		}
		raw[c] += math.Min(keywordCap, float64(hits)*keywordHit)
		features["keywords_"+string(c)] = float64(hits)
	}

	if len(tokens) > 0 {
		var fp int
		for _, tok := range tokens {
			if firstPerson[tok] {
				fp++
			}
		}
		density := float64(fp) / float64(len(tokens))
		if density > 0 {
			raw[model.IntentReflection] += density * firstPersonScale
			features["first_person_density"] = round3(density)
		}
	}

	trimmed := strings.TrimSpace(text)
	if len(tokens) > 0 && (len(tokens) <= briefTokens || len(trimmed) <= briefChars) {
		raw[model.IntentSignal] += briefBoost
		features["brief"] = 1
	}
	if len(tokens) >= longTokens {
		raw[model.IntentReflection] += longBoost
		features["long"] = 1
	}

	for c, boost := range tagBoosts(tags) {
		raw[c] += boost
		features["tags_"+string(c)] = round3(boost)
	}

	return normalize(raw, features)
}

func keywordHits(tokens []string, words []string) int {
	var hits int
	for _, kw := range words {
		for _, tok := range tokens {
			if matchKeyword(tok, kw) {
				hits++
				break
			}
		}
	}
	return hits
}

// matchKeyword matches short keywords exactly and longer ones by prefix.
func matchKeyword(token, kw string) bool {
	if len(kw) < 4 {
		return token == kw
	}
	return strings.HasPrefix(token, kw)
}

func tagBoosts(tags []model.Tag) map[model.Intent]float64 {
	boosts := map[model.Intent]float64{}
	for _, tag := range tags {
		for _, c := range model.IntentClasses {
			for _, cue := range tagCues[c] {
				if strings.Contains(tag.Term, cue) {
					boosts[c] += tag.Weight * tagScale
					break
				}
			}
		}
	}
	for c, b := range boosts {
		if b > tagCap {
			boosts[c] = tagCap
		}
	}

	for _, tag := range tags {
		if tag.Kind != model.KindPhrase {
			continue
		}
		if strings.Contains(tag.Term, "plan") {
			boosts[model.IntentPlanning] += phrasePlanBonus
		}
		if strings.Contains(tag.Term, "remember") {
			boosts[model.IntentReflection] += phraseRememberBonus
		}
	}
	return boosts
}

func normalize(raw map[model.Intent]float64, features map[string]float64) model.IntentProfile {
	var total float64
	for _, c := range model.IntentClasses {
		total += raw[c]
	}

	p := model.IntentProfile{
		Probabilities: make(map[model.Intent]float64, len(model.IntentClasses)),
		Features:      features,
	}
	for _, c := range model.IntentClasses {
		prob := round3(raw[c] / total)
		p.Probabilities[c] = prob
		if p.Intent == "" || prob > p.Confidence {
			p.Intent = c
			p.Confidence = prob
		}
	}
	return p
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
