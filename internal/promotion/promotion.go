// Package promotion folds tags from approved garden replies back into
// the seeds they came from.
package promotion

import (
	"time"

	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/tagger"
)

// BoostFraction is the share of an incoming tag's weight added to a seed
// tag with the same term.
const BoostFraction = 0.1

// Report summarises one promotion pass.
type Report struct {
	Promoted     int      `json:"promoted"`
	SeedsUpdated int      `json:"seedsUpdated"`
	TagsAdded    int      `json:"tagsAdded"`
	TagsBoosted  int      `json:"tagsBoosted"`
	Orphaned     int      `json:"orphaned"`
	SeedIDs      []string `json:"seedIds,omitempty"`
}

// Pending reports whether m is a satisfied garden reply that has not been
// promoted yet.
func Pending(m *model.Message) bool {
	if m == nil || m.Role != model.RoleGarden || m.Meta.Feedback == nil {
		return false
	}
	fb := m.Meta.Feedback
	return fb.Status == model.FeedbackSatisfied && !fb.Promoted
}

// Promote runs one pass over the message log. Each pending reply has its
// tags merged into the seed it used, if that seed still exists, and is
// then marked promoted either way. A second pass over an unchanged log
// changes nothing.
func Promote(state *model.State, now time.Time) Report {
	var r Report
	touched := map[string]bool{}

	for _, m := range state.Messages {
		if !Pending(m) {
			continue
		}
		if seed := state.FindSeed(m.Meta.UsedSeedID); seed != nil {
			added, boosted := mergeInto(seed, m.Meta.Tags)
			r.TagsAdded += added
			r.TagsBoosted += boosted
			if !touched[seed.ID] {
				touched[seed.ID] = true
				r.SeedIDs = append(r.SeedIDs, seed.ID)
			}
		} else {
			r.Orphaned++
		}

		at := now
		m.Meta.Feedback.Promoted = true
		m.Meta.Feedback.PromotedAt = &at
		r.Promoted++
	}

	r.SeedsUpdated = len(r.SeedIDs)
	return r
}

func mergeInto(seed *model.Seed, incoming []model.Tag) (added, boosted int) {
	if len(incoming) == 0 {
		return 0, 0
	}
	c := tagger.NewCollection(seed.Tags...)
	for _, t := range incoming {
		if t.Weight <= 0 {
			continue
		}
		if c.Bump(t.Term, BoostFraction*t.Weight) {
			boosted++
			continue
		}
		if c.Add(t.Term, t.Weight, model.KindPromoted) {
			added++
		}
	}
	seed.Tags = c.Tags()
	return added, boosted
}
