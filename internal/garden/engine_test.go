package garden

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/promotion"
	"github.com/rcliao/memory-garden/internal/tagger"
	"github.com/rcliao/memory-garden/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	if opts.Clock == nil {
		opts.Clock = clock.Now
	}
	return New(nil, opts)
}

func score(v float64) *float64 { return &v }

func TestNew_AddsSystemIntro(t *testing.T) {
	e := newEngine(t, Options{})
	state, err := e.Snapshot()
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, model.RoleSystem, state.Messages[0].Role)
	assert.Equal(t, SystemIntro, state.Messages[0].Content)

	existing := &model.State{Messages: []*model.Message{{ID: "x", Role: model.RoleUser, Content: "hi"}}}
	New(existing, Options{})
	assert.Len(t, existing.Messages, 1)
}

func TestSynthesize_EmptyText(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.Synthesize("   ", 50)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSynthesize_FallbackByDial(t *testing.T) {
	tests := []struct {
		creativity int
		want       string
		tone       model.Tone
	}{
		{0, fallbacks[0], model.ToneGrounded},
		{30, fallbacks[0], model.ToneGrounded},
		{50, fallbacks[1], model.ToneReflective},
		{90, fallbacks[2], model.ToneImaginative},
		{100, fallbacks[2], model.ToneImaginative},
		{250, fallbacks[2], model.ToneImaginative},
	}
	for _, tt := range tests {
		e := newEngine(t, Options{})
		r, err := e.Synthesize("Tell me something", tt.creativity)
		require.NoError(t, err)
		assert.Equal(t, model.StrategyFallback, r.Meta.Strategy, tt.creativity)
		assert.Equal(t, tt.want, r.Text, tt.creativity)
		assert.Equal(t, tt.tone, r.Meta.Tone, tt.creativity)
		assert.Empty(t, r.Meta.UsedSeedID)
		assert.Nil(t, r.Meta.Breakdown)
	}
}

func TestSynthesize_SeedMatch(t *testing.T) {
	collector := telemetry.NewCollector("")
	e := newEngine(t, Options{Metrics: collector})
	seed, err := e.PlantSeed("How do we welcome new caretakers?", "Greet them with a seed ritual.", nil)
	require.NoError(t, err)

	r, err := e.Synthesize("How should we welcome new caretakers?", 10)
	require.NoError(t, err)
	assert.Equal(t, model.StrategySeedMatch, r.Meta.Strategy)
	assert.Equal(t, "Greet them with a seed ritual.", r.Text)
	assert.Equal(t, seed.ID, r.Meta.UsedSeedID)
	require.NotNil(t, r.Meta.Breakdown)
	assert.GreaterOrEqual(t, r.Meta.Breakdown.Composite, DefaultMinScore)
	assert.NotEmpty(t, r.Meta.Similarity)
	require.NotNil(t, r.Meta.QScore)
	assert.Equal(t, model.StrategySeedMatch, r.Meta.QScore.Strategy)
	require.NotNil(t, r.Meta.Feedback)
	assert.Equal(t, model.FeedbackPending, r.Meta.Feedback.Status)
	require.NotNil(t, r.Meta.Intent)
	assert.Equal(t, model.IntentInquiry, r.Meta.Intent.Intent)

	state, err := e.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, state.Seeds[0].Uses)
	assert.Equal(t, 1, state.Metrics.SeedMatchReplies)
	assert.Equal(t, 1, state.Metrics.SeedUses)
	assert.NotNil(t, state.Seeds[0].IntentProfile)

	sum, err := collector.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1.0, sum["memory_garden_replies_total{strategy=seed-match}"])

	r, err = e.Synthesize("How should we welcome new caretakers?", 60)
	require.NoError(t, err)
	assert.Equal(t, "Greet them with a seed ritual.\n\n"+reflections[1], r.Text)
}

func TestSynthesize_ThresholdZeroAlwaysMatches(t *testing.T) {
	e := newEngine(t, Options{MinScore: score(0)})
	_, err := e.PlantSeed("unrelated topic", "unrelated answer", nil)
	require.NoError(t, err)

	r, err := e.Synthesize("How do I nurture the sprouts?", 0)
	require.NoError(t, err)
	assert.Equal(t, model.StrategySeedMatch, r.Meta.Strategy)
	assert.Equal(t, "unrelated answer", r.Text)
}

func TestSynthesize_WordEcho(t *testing.T) {
	e := newEngine(t, Options{})
	seed, err := e.PlantSeed("Hello", "hello", nil)
	require.NoError(t, err)

	r, err := e.Synthesize("hello", 80)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyWordEcho, r.Meta.Strategy)
	assert.Equal(t, "hello", r.Text)
	assert.Equal(t, seed.ID, r.Meta.UsedSeedID)

	m, _ := e.Metrics()
	assert.Equal(t, 1, m.EchoReplies)
	assert.Equal(t, 1, m.SeedUses)
}

func TestSynthesize_LearnedWithoutStrongSeed(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.PlantSeed("unrelated topic", "unrelated answer", nil)
	require.NoError(t, err)

	first, err := e.Synthesize("How do I nurture the sprouts?", 60)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyFallback, first.Meta.Strategy)

	second, err := e.Synthesize("What rituals keep the garden calm?", 60)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyFallback, second.Meta.Strategy)

	r, err := e.Synthesize("Can you stay with these themes?", 60)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyLearned, r.Meta.Strategy)
	assert.Contains(t, r.Text, "I'm weaving them together")
	assert.NotEmpty(t, r.Meta.Themes)
	assert.LessOrEqual(t, len(r.Meta.Themes), 3)
	assert.Empty(t, r.Meta.UsedSeedID)

	state, err := e.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0, state.Seeds[0].Uses)
	assert.Equal(t, 1, state.Metrics.LearnedReplies)
}

func TestFeedbackAndPromotion(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.PlantSeed("How do we welcome new caretakers?", "Greet them with a seed ritual.", []tagger.Input{tagger.Term("ritual")})
	require.NoError(t, err)

	r, err := e.Synthesize("How should we welcome new caretakers?", 10)
	require.NoError(t, err)

	_, err = e.Feedback("missing", true)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	_, err = e.Feedback(r.UserMessageID, true)
	assert.ErrorIs(t, err, ErrNotGardenMessage)

	fb, err := e.Feedback(r.MessageID, true)
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackSatisfied, fb.Status)
	assert.False(t, fb.Promoted)

	report := e.PromoteOnce()
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, 1, report.SeedsUpdated)

	state, err := e.Snapshot()
	require.NoError(t, err)
	terms := tagger.Terms(state.Seeds[0].Tags)
	for _, tag := range r.Meta.Tags {
		assert.True(t, terms[tag.Term], tag.Term)
	}
	assert.Equal(t, 1, state.Metrics.PromotedReplies)

	again := e.PromoteOnce()
	assert.Equal(t, promotion.Report{}, again)

	// Changing the verdict later does not undo promotion.
	fb, err = e.Feedback(r.MessageID, false)
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackUnsatisfied, fb.Status)
	assert.True(t, fb.Promoted)
}

func TestPlantSeed(t *testing.T) {
	e := newEngine(t, Options{})

	_, err := e.PlantSeed("  ", "answer", nil)
	assert.ErrorIs(t, err, ErrEmptySeed)
	_, err = e.PlantSeed("prompt", "", nil)
	assert.ErrorIs(t, err, ErrEmptySeed)

	seed, err := e.PlantSeed("Plan radiant welcome rituals", "Light the lanterns.", []tagger.Input{
		tagger.Term("Lanterns"),
		tagger.Weighted("ritual", 2, model.KindSeed),
		{},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, seed.ID)
	assert.Equal(t, "Plan radiant welcome rituals", seed.Prompt)

	lantern, ok := tagger.NewCollection(seed.Tags...).Lookup("lanterns")
	require.True(t, ok)
	assert.Equal(t, model.KindSeed, lantern.Kind)
	ritual, ok := tagger.NewCollection(seed.Tags...).Lookup("ritual")
	require.True(t, ok)
	assert.GreaterOrEqual(t, ritual.Weight, 2.0)
}

func TestRemoveSeed(t *testing.T) {
	e := newEngine(t, Options{})
	a, err := e.PlantSeed("water the roses", "every morning", nil)
	require.NoError(t, err)
	b, err := e.PlantSeed("prune the hedges", "every spring", nil)
	require.NoError(t, err)

	require.NoError(t, e.RemoveSeed(a.ID))
	err = e.RemoveSeed(a.ID)
	assert.True(t, errors.Is(err, ErrSeedNotFound))

	state, err := e.Snapshot()
	require.NoError(t, err)
	require.Len(t, state.Seeds, 1)
	assert.Equal(t, b.ID, state.Seeds[0].ID)
}

func TestClearConversation(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.Synthesize("hello there garden", 20)
	require.NoError(t, err)
	_, err = e.PlantSeed("water the roses", "every morning", nil)
	require.NoError(t, err)

	e.ClearConversation()

	state, err := e.Snapshot()
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, model.RoleSystem, state.Messages[0].Role)
	assert.Len(t, state.Seeds, 1)
	assert.Equal(t, 0, state.Metrics.UserMessages)
}

func TestSnapshot_IsCopy(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.PlantSeed("water the roses", "every morning", nil)
	require.NoError(t, err)

	state, err := e.Snapshot()
	require.NoError(t, err)
	state.Seeds[0].Response = "changed"
	state.Messages = nil

	again, err := e.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "every morning", again.Seeds[0].Response)
	assert.Len(t, again.Messages, 1)
}

func TestSetTagging(t *testing.T) {
	e := newEngine(t, Options{})

	bad := tagger.DefaultConfig()
	bad.NGramRange = [2]int{3, 1}
	assert.Error(t, e.SetTagging(bad))

	cfg := tagger.DefaultConfig()
	cfg.MaxTags = 1
	require.NoError(t, e.SetTagging(cfg))
	assert.Len(t, e.Analyze("Plan radiant welcome rituals for new caretakers").Tags, 1)
}

func TestAnalyze(t *testing.T) {
	e := newEngine(t, Options{})
	a := e.Analyze("How do we welcome new caretakers?")
	assert.Equal(t, model.IntentInquiry, a.Intent.Intent)
	assert.NotEmpty(t, a.Tags)
	assert.Contains(t, a.Tokens, "caretaker")
}

func TestPromotionJob_WithScheduler(t *testing.T) {
	e := newEngine(t, Options{})
	_, err := e.PlantSeed("How do we welcome new caretakers?", "Greet them with a seed ritual.", nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var promoted int
	job := e.PromotionJob(func(r promotion.Report) {
		mu.Lock()
		promoted += r.Promoted
		mu.Unlock()
	})
	s := promotion.NewScheduler(2*time.Millisecond, job, nil)
	s.Start(context.Background())
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := e.Synthesize("How should we welcome new caretakers?", 10)
			if assert.NoError(t, err) {
				_, err = e.Feedback(r.MessageID, true)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return promoted == 4
	}, time.Second, time.Millisecond)

	m, _ := e.Metrics()
	assert.Equal(t, 4, m.PromotedReplies)
}
