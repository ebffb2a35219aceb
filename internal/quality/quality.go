// Package quality computes the synthetic Q-score attached to garden
// replies. The score has no ground truth; it grows slowly with the amount
// of local history and is meant for display only.
package quality

import (
	"math"
	"strconv"

	"github.com/rcliao/memory-garden/internal/model"
)

// Protocol identifies the scoring scheme in emitted scores.
const Protocol = "local-heuristic-v1"

const (
	// LocalDataFactor scales the log of the local history size.
	LocalDataFactor = 0.0001
	pairBonus       = 0.001
	tagBonus        = 0.001
)

// Base is the floor every component starts from.
var Base = 0.0001 * math.E

// Input is what the estimator needs to know about a reply.
type Input struct {
	Strategy     model.Strategy
	SeedCount    int
	MessageCount int
	ReplyTags    []model.Tag
	// MatchedSeed is nil unless the reply was built from a seed.
	MatchedSeed *model.Seed
	// Seeds is consulted for tag overlap when there is no matched seed.
	Seeds []*model.Seed
}

// Estimate returns the Q-score for a reply.
//
//   - semantic = base + local + pair bonus
//   - logical  = base + local
//   - ethics   = base + local + tag bonus
//   - total    = base + local + pair bonus + tag bonus
func Estimate(in Input) model.QScore {
	local := math.Log(1+float64(in.SeedCount+in.MessageCount)) * LocalDataFactor

	var pair float64
	if in.Strategy == model.StrategySeedMatch {
		pair = pairBonus
	}

	var tags float64
	if tagsOverlap(in) {
		tags = tagBonus
	}

	return model.QScore{
		Total: format(Base + local + pair + tags),
		Components: model.QComponents{
			Semantic: format(Base + local + pair),
			Logical:  format(Base + local),
			Ethics:   format(Base + local + tags),
		},
		Protocol: Protocol,
		Strategy: in.Strategy,
	}
}

func tagsOverlap(in Input) bool {
	if len(in.ReplyTags) == 0 {
		return false
	}
	reply := make(map[string]bool, len(in.ReplyTags))
	for _, t := range in.ReplyTags {
		reply[t.Term] = true
	}

	candidates := in.Seeds
	if in.MatchedSeed != nil {
		candidates = []*model.Seed{in.MatchedSeed}
	}
	for _, s := range candidates {
		if s == nil {
			continue
		}
		for _, t := range s.Tags {
			if reply[t.Term] {
				return true
			}
		}
	}
	return false
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
