// Package matcher picks the seed that best answers a query.
package matcher

import (
	"github.com/rcliao/memory-garden/internal/intent"
	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/similarity"
)

// Options tunes seed selection.
type Options struct {
	// MinScore is the lowest composite score a winner may have. Zero
	// accepts any seed, including one that scores 0.
	MinScore float64
}

// Result is the outcome of a match.
type Result struct {
	Seed      *model.Seed
	Score     float64
	Breakdown model.ScoreBreakdown
	// Rejected is set when the best seed fell below MinScore; Seed still
	// names it but its Uses were not incremented.
	Rejected bool
}

// SeedIntent returns the seed's intent profile, computing and memoizing
// it on first use.
func SeedIntent(seed *model.Seed) model.IntentProfile {
	if seed.IntentProfile == nil {
		p := intent.Classify(seed.Prompt, seed.Tags)
		seed.IntentProfile = &p
	}
	return *seed.IntentProfile
}

// Best scores every seed and returns the strictly highest one; the first
// seed wins ties. It does not mutate use counters.
func Best(seeds []*model.Seed, q similarity.Query) (Result, bool) {
	var best Result
	found := false
	for _, seed := range seeds {
		if seed == nil {
			continue
		}
		b := similarity.Score(q, seed, SeedIntent(seed))
		if !found || b.Composite > best.Score {
			best = Result{Seed: seed, Score: b.Composite, Breakdown: b}
			found = true
		}
	}
	return best, found
}

// Match selects the best seed and increments its Uses. It reports false
// when there are no seeds or the winner scored below opts.MinScore.
func Match(seeds []*model.Seed, q similarity.Query, opts Options) (Result, bool) {
	best, ok := Best(seeds, q)
	if !ok {
		return Result{}, false
	}
	if best.Score < opts.MinScore {
		best.Rejected = true
		return best, false
	}
	best.Seed.Uses++
	return best, true
}
