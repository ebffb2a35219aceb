package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memory-garden/internal/model"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector("")

	c.ObserveReply(model.StrategySeedMatch, 0.42, true)
	c.ObserveReply(model.StrategySeedMatch, 0.61, true)
	c.ObserveReply(model.StrategyFallback, 0, false)
	c.ObserveFeedback(model.FeedbackSatisfied)
	c.ObserveSeed(true)
	c.ObserveSeed(true)
	c.ObserveSeed(false)
	c.ObservePromotions(3)
	c.ObservePromotions(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Replies.WithLabelValues("seed-match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Replies.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Feedback.WithLabelValues("satisfied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SeedsPlanted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SeedsRemoved))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Promotions))

	n, err := testutil.GatherAndCount(c.Registry())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestCollector_Summary(t *testing.T) {
	c := NewCollector("garden")
	c.ObserveReply(model.StrategyWordEcho, 1, true)
	c.ObserveReply(model.StrategyLearned, 0.05, true)

	sum, err := c.Summary()
	require.NoError(t, err)

	assert.Equal(t, 1.0, sum["garden_replies_total{strategy=word-echo}"])
	assert.Equal(t, 1.0, sum["garden_replies_total{strategy=learned}"])
	assert.Equal(t, 2.0, sum["garden_match_score_count"])
	assert.InDelta(t, 1.05, sum["garden_match_score_sum"], 1e-9)
	assert.Equal(t, 0.0, sum["garden_promotions_total"])
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveReply(model.StrategyFallback, 0, false)
	c.ObserveFeedback(model.FeedbackPending)
	c.ObserveSeed(true)
	c.ObservePromotions(1)
	assert.Nil(t, c.Registry())

	sum, err := c.Summary()
	require.NoError(t, err)
	assert.Empty(t, sum)
}
