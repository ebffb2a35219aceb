// Package telemetry keeps per-session counters for the garden engine.
package telemetry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rcliao/memory-garden/internal/model"
)

// Namespace prefixes every metric name.
const Namespace = "memory_garden"

// Collector holds the session metrics on a private registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	Replies      *prometheus.CounterVec
	Feedback     *prometheus.CounterVec
	SeedsPlanted prometheus.Counter
	SeedsRemoved prometheus.Counter
	Promotions   prometheus.Counter
	MatchScore   prometheus.Histogram
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = Namespace
	}
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replies_total",
				Help:      "Garden replies by strategy",
			},
			[]string{"strategy"},
		),
		Feedback: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feedback_total",
				Help:      "Caretaker feedback by status",
			},
			[]string{"status"},
		),
		SeedsPlanted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeds_planted_total",
			Help:      "Seeds planted this session",
		}),
		SeedsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeds_removed_total",
			Help:      "Seeds removed this session",
		}),
		Promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_total",
			Help:      "Replies whose tags were promoted",
		}),
		MatchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_score",
			Help:      "Composite score of the best seed per reply",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}

	registry.MustRegister(
		c.Replies,
		c.Feedback,
		c.SeedsPlanted,
		c.SeedsRemoved,
		c.Promotions,
		c.MatchScore,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveReply counts a reply. score is recorded only when a seed was
// scored.
func (c *Collector) ObserveReply(strategy model.Strategy, score float64, scored bool) {
	if c == nil {
		return
	}
	c.Replies.WithLabelValues(string(strategy)).Inc()
	if scored {
		c.MatchScore.Observe(score)
	}
}

// ObserveFeedback counts a feedback call.
func (c *Collector) ObserveFeedback(status model.FeedbackStatus) {
	if c == nil {
		return
	}
	c.Feedback.WithLabelValues(string(status)).Inc()
}

// ObserveSeed counts a planted (or removed) seed.
func (c *Collector) ObserveSeed(planted bool) {
	if c == nil {
		return
	}
	if planted {
		c.SeedsPlanted.Inc()
		return
	}
	c.SeedsRemoved.Inc()
}

// ObservePromotions adds n promoted replies.
func (c *Collector) ObservePromotions(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Promotions.Add(float64(n))
}

// Summary flattens the registry into name{labels} -> value. Histograms
// contribute _count and _sum entries.
func (c *Collector) Summary() (map[string]float64, error) {
	out := map[string]float64{}
	if c == nil {
		return out, nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + labelSuffix(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[key] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[key] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				out[mf.GetName()+"_count"+labelSuffix(m.GetLabel())] = float64(h.GetSampleCount())
				out[mf.GetName()+"_sum"+labelSuffix(m.GetLabel())] = h.GetSampleSum()
			}
		}
	}
	return out, nil
}

func labelSuffix(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
