package snapshot

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memory-garden/internal/metrics"
	"github.com/rcliao/memory-garden/internal/model"
)

func sampleState() *model.State {
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	promotedAt := at.Add(time.Hour)
	creativity := 40

	state := &model.State{
		Seeds: []*model.Seed{{
			ID:        "01HZX0SEED",
			Prompt:    "How do we welcome new caretakers?",
			Response:  "Greet them with a seed ritual.",
			CreatedAt: at,
			Uses:      2,
			Tags: []model.Tag{
				{Term: "welcome", Weight: 1.35, Kind: model.KindKeyword},
				{Term: "ritual", Weight: 1, Kind: model.KindSeed},
				{Term: "greeting", Weight: 1.215, Kind: model.KindSynonym},
			},
			IntentProfile: &model.IntentProfile{
				Intent:     model.IntentInquiry,
				Confidence: 0.7,
				Probabilities: map[model.Intent]float64{
					model.IntentInquiry: 0.7, model.IntentPlanning: 0.1,
					model.IntentReflection: 0.1, model.IntentSignal: 0.1,
				},
			},
		}},
		Messages: []*model.Message{
			{ID: "m0", Role: model.RoleSystem, Content: "Welcome caretaker.", CreatedAt: at},
			{ID: "m1", Role: model.RoleUser, Content: "welcome?", CreatedAt: at.Add(time.Minute),
				Meta: model.MessageMeta{Creativity: &creativity}},
			{ID: "m2", Role: model.RoleGarden, Content: "Greet them.", CreatedAt: at.Add(2 * time.Minute),
				Meta: model.MessageMeta{
					Strategy:   model.StrategySeedMatch,
					Tone:       model.ToneReflective,
					UsedSeedID: "01HZX0SEED",
					Similarity: "0.412",
					Breakdown:  &model.ScoreBreakdown{Jaccard: 0.2, TagAlignment: 0.5, IntentAlignment: 0.6, Composite: 0.412},
					Tags:       []model.Tag{{Term: "welcome", Weight: 1.35, Kind: model.KindKeyword}},
					QScore: &model.QScore{
						Total:      "0.002451",
						Components: model.QComponents{Semantic: "0.001451", Logical: "0.000451", Ethics: "0.001451"},
						Protocol:   "local-heuristic-v1",
						Strategy:   model.StrategySeedMatch,
					},
					Feedback: &model.Feedback{Status: model.FeedbackSatisfied, Promoted: true, PromotedAt: &promotedAt},
				}},
		},
	}
	metrics.Refresh(state)
	return state
}

func TestRoundTrip(t *testing.T) {
	want := sampleState()

	data, err := Encode(want)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExportRoundTrip(t *testing.T) {
	want := sampleState()
	generated := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	data, err := EncodeExport(want, generated)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"generatedAt": "2024-06-02T00:00:00Z"`)

	got, err := DecodeExport(data)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("export round trip mismatch (-want +got):\n%s", diff)
	}

	bare, err := Encode(want)
	require.NoError(t, err)
	got, err = DecodeExport(bare)
	require.NoError(t, err)
	assert.Len(t, got.Seeds, 1)
}

func TestDecode_Repairs(t *testing.T) {
	raw := `{
		"seeds": [
			null, 42, "junk",
			{"prompt": "hi", "response": "there", "uses": -3,
			 "tags": ["Welcome  Ritual", {"term": "ritual", "weight": "heavy", "kind": "odd"}, null, 7, {"weight": 2}]},
			{"id": "empty"}
		],
		"messages": [
			{"role": "alien", "content": "x"},
			"junk",
			{"role": "garden", "content": "reply", "meta": {"tags": ["bloom"], "feedback": {"status": "maybe"}}},
			{"role": "garden", "content": "bare"},
			{"role": "user", "content": "hello", "meta": "nope"}
		],
		"metrics": {"totalMessages": 999},
		"extra": true
	}`

	state, err := Decode([]byte(raw))
	require.NoError(t, err)

	require.Len(t, state.Seeds, 1)
	s := state.Seeds[0]
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 0, s.Uses)
	assert.Nil(t, s.IntentProfile)
	assert.Equal(t, []model.Tag{
		{Term: "welcome ritual", Weight: 1, Kind: model.KindSeed},
		{Term: "ritual", Weight: 1, Kind: model.KindSeed},
	}, s.Tags)

	require.Len(t, state.Messages, 3)
	assert.Equal(t, []model.Tag{{Term: "bloom", Weight: 1, Kind: model.KindKeyword}}, state.Messages[0].Meta.Tags)
	assert.Equal(t, model.FeedbackPending, state.Messages[0].Meta.Feedback.Status)
	require.NotNil(t, state.Messages[1].Meta.Feedback)
	assert.Equal(t, model.FeedbackPending, state.Messages[1].Meta.Feedback.Status)
	assert.Nil(t, state.Messages[2].Meta.Feedback)

	assert.Equal(t, 3, state.Metrics.TotalMessages)
}

func TestDecode_Errors(t *testing.T) {
	for _, in := range []string{"", "null", "[]", `"state"`, `{"seeds": `} {
		_, err := Decode([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestDecode_EmptyObject(t *testing.T) {
	state, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, state.Seeds)
	assert.Empty(t, state.Messages)
	assert.NotNil(t, state.Seeds)
}
