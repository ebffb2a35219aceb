package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/tagger"
)

func sum(p model.IntentProfile) float64 {
	var total float64
	for _, v := range p.Probabilities {
		total += v
	}
	return total
}

func TestClassify_Inquiry(t *testing.T) {
	text := "How do we welcome new caretakers?"
	profile := Classify(text, tagger.Derive(text, tagger.DefaultConfig()))
	assert.Equal(t, model.IntentInquiry, profile.Intent)
	assert.Greater(t, profile.Probabilities[model.IntentInquiry], 0.4)
	assert.InDelta(t, 1.0, sum(profile), 0.01)
}

func TestClassify_PlanningBoostedByTags(t *testing.T) {
	tags := tagger.Normalize([]tagger.Input{
		tagger.Weighted("roadmap", 2, ""),
		tagger.Weighted("plan", 1.5, ""),
	}, model.KindKeyword)

	profile := Classify("Draft the milestones for our release phases.", tags)
	assert.Equal(t, model.IntentPlanning, profile.Intent)
	assert.Greater(t, profile.Probabilities[model.IntentPlanning], profile.Probabilities[model.IntentSignal])
}

func TestClassify_Reflection(t *testing.T) {
	profile := Classify("I remember how my grandmother felt about the garden, I still feel it today", nil)
	assert.Equal(t, model.IntentReflection, profile.Intent)
	assert.Greater(t, profile.Features["first_person_density"], 0.0)
}

func TestClassify_Signal(t *testing.T) {
	profile := Classify("ping: status update", nil)
	assert.Equal(t, model.IntentSignal, profile.Intent)
	assert.Equal(t, 1.0, profile.Features["brief"])
}

func TestClassify_EmptyInputUsesFloor(t *testing.T) {
	profile := Classify("", nil)
	require.Len(t, profile.Probabilities, 4)
	for _, c := range model.IntentClasses {
		assert.Equal(t, 0.25, profile.Probabilities[c])
	}
	assert.Equal(t, model.IntentInquiry, profile.Intent)
	assert.Equal(t, 0.25, profile.Confidence)
}

func TestClassify_PhraseTagBonus(t *testing.T) {
	tags := []model.Tag{{Term: "plan ahead", Weight: 1, Kind: model.KindPhrase}}
	profile := Classify("", tags)
	assert.Equal(t, model.IntentPlanning, profile.Intent)

	// The same term as a keyword tag gets the substring boost only.
	keyword := Classify("", []model.Tag{{Term: "plan ahead", Weight: 1, Kind: model.KindKeyword}})
	assert.Less(t, keyword.Probabilities[model.IntentPlanning], profile.Probabilities[model.IntentPlanning])
}

func TestClassify_TagBoostCapped(t *testing.T) {
	light := Classify("", []model.Tag{{Term: "roadmap", Weight: 3, Kind: model.KindKeyword}})
	heavy := Classify("", []model.Tag{{Term: "roadmap", Weight: 300, Kind: model.KindKeyword}})
	assert.Equal(t, light.Probabilities, heavy.Probabilities)
}

func TestClassify_DistributionProperties(t *testing.T) {
	inputs := []string{
		"",
		"?",
		"hello",
		"Can you stay with these themes?",
		"We should outline the roadmap, schedule the milestones and prepare the next release phase.",
		"Yesterday I walked through the garden and I noticed how much the sprouts had grown since I last wrote in my journal about them and the calm they bring me.",
	}
	for _, text := range inputs {
		p := Classify(text, tagger.Derive(text, tagger.DefaultConfig()))
		assert.Len(t, p.Probabilities, 4, text)
		for _, c := range Classes() {
			_, ok := p.Probabilities[c]
			assert.True(t, ok, "missing class %s for %q", c, text)
		}
		assert.InDelta(t, 1.0, sum(p), 0.01, text)
		assert.Equal(t, p.Probabilities[p.Intent], p.Confidence, text)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "What rituals keep the garden calm?"
	tags := tagger.Derive(text, tagger.DefaultConfig())
	assert.Equal(t, Classify(text, tags), Classify(text, tags))
}

func TestClasses(t *testing.T) {
	assert.ElementsMatch(t,
		[]model.Intent{model.IntentInquiry, model.IntentPlanning, model.IntentReflection, model.IntentSignal},
		Classes())
}
