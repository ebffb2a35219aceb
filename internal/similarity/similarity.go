// Package similarity scores how closely a query resembles a seed.
package similarity

import (
	"math"

	"github.com/rcliao/memory-garden/internal/lexicon"
	"github.com/rcliao/memory-garden/internal/model"
)

// Composite weights.
const (
	JaccardWeight = 0.5
	TagWeight     = 0.3
	IntentWeight  = 0.2

	confidenceFloor = 0.7
	confidenceScale = 0.3
)

// Query is the scorer's view of the caller's text.
type Query struct {
	Tokens []string
	Tags   []model.Tag
	Intent model.IntentProfile
}

// Jaccard returns |A∩B| / |A∪B| over the token sets, or 0 when both are
// empty.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}

	var inter int
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// TagAlignment is a weighted Dice coefficient: twice the shared weight
// over the combined weight of both tag sets.
func TagAlignment(user, seed []model.Tag) float64 {
	userWeights := make(map[string]float64, len(user))
	var userTotal float64
	for _, t := range user {
		userWeights[t.Term] += t.Weight
		userTotal += t.Weight
	}
	var seedTotal, shared float64
	for _, t := range seed {
		seedTotal += t.Weight
		if uw, ok := userWeights[t.Term]; ok {
			shared += math.Min(t.Weight, uw)
		}
	}
	if userTotal <= 0 || seedTotal <= 0 {
		return 0
	}
	return 2 * shared / (userTotal + seedTotal)
}

// IntentAlignment is the dot product of two intent distributions.
func IntentAlignment(user, seed model.IntentProfile) float64 {
	var dot float64
	for _, c := range model.IntentClasses {
		dot += user.Probabilities[c] * seed.Probabilities[c]
	}
	return dot
}

// Composite blends the three similarities and scales the result by the
// query's intent confidence, capped at 1.
func Composite(jaccard, tagAlignment, intentAlignment, confidence float64) float64 {
	blend := JaccardWeight*jaccard + TagWeight*tagAlignment + IntentWeight*intentAlignment
	return math.Min(1, blend*(confidenceFloor+confidenceScale*confidence))
}

// SeedTokens returns the normalized tokens of a seed's prompt and response.
func SeedTokens(seed *model.Seed) []string {
	return lexicon.Normalize(seed.Prompt + " " + seed.Response)
}

// Score computes the full breakdown for a query against a seed whose
// intent profile has already been resolved.
func Score(q Query, seed *model.Seed, seedIntent model.IntentProfile) model.ScoreBreakdown {
	b := model.ScoreBreakdown{
		Jaccard:         Jaccard(q.Tokens, SeedTokens(seed)),
		TagAlignment:    TagAlignment(q.Tags, seed.Tags),
		IntentAlignment: IntentAlignment(q.Intent, seedIntent),
	}
	b.Composite = Composite(b.Jaccard, b.TagAlignment, b.IntentAlignment, q.Intent.Confidence)
	return b
}
