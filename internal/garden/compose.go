package garden

import (
	"fmt"
	"strings"

	"github.com/rcliao/memory-garden/internal/lexicon"
	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/tagger"
)

// SystemIntro opens an empty garden.
const SystemIntro = "Welcome caretaker. Plant knowledge seeds and the garden will weave replies from what you teach."

var fallbacks = []string{
	"I am still sprouting context. Plant a seed in the ledger so I may answer with more depth next time.",
	"The garden is listening. Offer a prompt-response seed to teach me how to reply with your tone.",
	"No matching stories yet. Add a knowledge seed and I'll weave it into future replies.",
}

var reflections = []string{
	"I'm weaving your latest prompt into the memory lattice.",
	"The ledger glows with this addition and the context deepens.",
	"Your care nourishes the dataset; my replies grow steadier.",
}

const (
	// elaborationThreshold is the dial factor from which seed replies
	// carry a reflection line.
	elaborationThreshold = 0.25
	maxThemes            = 3
	themeWindow          = 3
	minThemeMessages     = 2
)

// ToneFor buckets a dial factor in [0,1].
func ToneFor(factor float64) model.Tone {
	switch {
	case factor > 0.6:
		return model.ToneImaginative
	case factor > 0.3:
		return model.ToneReflective
	default:
		return model.ToneGrounded
	}
}

// Fallback picks the canned reply for a dial factor.
func Fallback(factor float64) string {
	i := int(factor * float64(len(fallbacks)))
	return fallbacks[clampIndex(i, len(fallbacks))]
}

// Blend returns the seed response, with a reflection line appended once
// the dial reaches the elaboration threshold.
func Blend(response string, factor float64) string {
	if factor < elaborationThreshold {
		return response
	}
	i := int(factor*float64(len(reflections))) % len(reflections)
	return response + "\n\n" + reflections[i]
}

// WordEcho reports whether a single-word seed should be echoed back for
// query. The seed's prompt and response must be the same word, the query
// must be that word, and the lexical overlap must be exact.
func WordEcho(seed *model.Seed, query string, b model.ScoreBreakdown) bool {
	if seed == nil || b.Jaccard != 1 {
		return false
	}
	prompt := lexicon.Tokenize(seed.Prompt)
	response := lexicon.Tokenize(seed.Response)
	words := lexicon.Tokenize(query)
	if len(prompt) != 1 || len(response) != 1 || len(words) != 1 {
		return false
	}
	return prompt[0] == response[0] && words[0] == prompt[0]
}

// LearnedReply phrases a reply around recurring themes.
func LearnedReply(themes []string) string {
	return fmt.Sprintf("You keep returning to %s. I'm weaving them together so the garden can answer in your voice.", joinThemes(themes))
}

// Themes aggregates the tags of the current message and the preceding
// user messages. It returns nil unless enough earlier messages carry tags.
func Themes(history []*model.Message, current []model.Tag) []string {
	c := tagger.NewCollection(current...)
	seen := 0
	for i := len(history) - 1; i >= 0 && seen < themeWindow; i-- {
		m := history[i]
		if m.Role != model.RoleUser || len(m.Meta.Tags) == 0 {
			continue
		}
		for _, t := range m.Meta.Tags {
			c.Add(t.Term, t.Weight, t.Kind)
		}
		seen++
	}
	if seen < minThemeMessages {
		return nil
	}

	top := c.Top(maxThemes)
	out := make([]string, 0, len(top))
	for _, t := range top {
		out = append(out, t.Term)
	}
	return out
}

func joinThemes(themes []string) string {
	switch len(themes) {
	case 0:
		return "these ideas"
	case 1:
		return themes[0]
	default:
		return strings.Join(themes[:len(themes)-1], ", ") + " and " + themes[len(themes)-1]
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
