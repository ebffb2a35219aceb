// Package metrics rebuilds the derived aggregates of a garden snapshot.
// Nothing here is authoritative; every value is recomputed from the log.
package metrics

import (
	"math"
	"time"

	"github.com/rcliao/memory-garden/internal/model"
)

// Derive computes metrics and streak from the message and seed log.
func Derive(state *model.State) (model.Metrics, model.Streak) {
	var m model.Metrics
	if state == nil {
		return m, model.Streak{}
	}

	m.TotalMessages = len(state.Messages)
	for _, msg := range state.Messages {
		switch msg.Role {
		case model.RoleUser:
			m.UserMessages++
		case model.RoleGarden:
			m.GardenMessages++
			countReply(&m, msg)
		}
	}
	if n := len(state.Messages); n > 0 {
		last := state.Messages[n-1].CreatedAt
		m.LastInteraction = &last
	}

	for _, s := range state.Seeds {
		m.SeedUses += s.Uses
	}
	if n := len(state.Seeds); n > 0 {
		m.AvgSeedUsage = round3(float64(m.SeedUses) / float64(n))
	}
	// Share of garden replies answered from a seed.
	if m.GardenMessages > 0 {
		m.SeedReuseRate = round3(float64(m.SeedMatchReplies+m.EchoReplies) / float64(m.GardenMessages))
	}

	return m, Streak(state.Messages)
}

// Refresh recomputes state.Metrics and state.Streak in place.
func Refresh(state *model.State) {
	if state == nil {
		return
	}
	state.Metrics, state.Streak = Derive(state)
}

func countReply(m *model.Metrics, msg *model.Message) {
	switch msg.Meta.Strategy {
	case model.StrategySeedMatch:
		m.SeedMatchReplies++
	case model.StrategyWordEcho:
		m.EchoReplies++
	case model.StrategyLearned:
		m.LearnedReplies++
	case model.StrategyFallback:
		m.FallbackReplies++
	}
	if fb := msg.Meta.Feedback; fb != nil {
		if fb.Status == model.FeedbackSatisfied {
			m.SatisfiedReplies++
		}
		if fb.Promoted {
			m.PromotedReplies++
		}
	}
}

// Streak counts the consecutive UTC days with caretaker messages, ending
// on the day of the latest one.
func Streak(messages []*model.Message) model.Streak {
	days := map[string]bool{}
	var last *time.Time
	for _, msg := range messages {
		if msg.Role != model.RoleUser {
			continue
		}
		at := msg.CreatedAt
		days[dayKey(at)] = true
		if last == nil || at.After(*last) {
			last = &at
		}
	}
	if last == nil {
		return model.Streak{}
	}

	n := 0
	for day := last.UTC(); days[dayKey(day)]; day = day.AddDate(0, 0, -1) {
		n++
	}
	return model.Streak{Days: n, LastTended: last}
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
