// Package garden orchestrates reply synthesis over a garden snapshot.
package garden

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/memory-garden/internal/intent"
	"github.com/rcliao/memory-garden/internal/lexicon"
	"github.com/rcliao/memory-garden/internal/matcher"
	"github.com/rcliao/memory-garden/internal/metrics"
	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/promotion"
	"github.com/rcliao/memory-garden/internal/quality"
	"github.com/rcliao/memory-garden/internal/similarity"
	"github.com/rcliao/memory-garden/internal/tagger"
	"github.com/rcliao/memory-garden/internal/telemetry"
)

// DefaultMinScore is the composite score a seed needs to answer directly.
const DefaultMinScore = 0.12

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Tagging  *tagger.Config
	MinScore *float64
	Logger   *zap.Logger
	Metrics  *telemetry.Collector
	Clock    func() time.Time
}

// Engine owns one garden snapshot. Every method takes the engine lock and
// runs to completion, so scheduler ticks never interleave with calls.
type Engine struct {
	mu       sync.Mutex
	state    *model.State
	tagging  tagger.Config
	minScore float64
	logger   *zap.Logger
	metrics  *telemetry.Collector
	now      func() time.Time
	entropy  *rand.Rand
}

// Reply is the result of a synthesis call.
type Reply struct {
	UserMessageID string            `json:"userMessageId"`
	MessageID     string            `json:"messageId"`
	Text          string            `json:"text"`
	Meta          model.MessageMeta `json:"meta"`
}

// Analysis is the tagging and intent read of a piece of text.
type Analysis struct {
	Tokens []string            `json:"tokens"`
	Tags   []model.Tag         `json:"tags"`
	Intent model.IntentProfile `json:"intent"`
}

// New wraps state in an engine. A nil state starts an empty garden.
func New(state *model.State, opts Options) *Engine {
	if state == nil {
		state = model.NewState()
	}
	minScore := DefaultMinScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	tagging := tagger.DefaultConfig()
	if opts.Tagging != nil {
		tagging = opts.Tagging.WithDefaults()
	}

	e := &Engine{
		state:    state,
		tagging:  tagging,
		minScore: minScore,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Clock,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	e.mu.Lock()
	e.ensureIntro()
	metrics.Refresh(e.state)
	e.mu.Unlock()
	return e
}

func (e *Engine) newID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), e.entropy).String()
}

func (e *Engine) ensureIntro() {
	if len(e.state.Messages) > 0 {
		return
	}
	e.appendMessage(model.RoleSystem, SystemIntro, model.MessageMeta{})
}

func (e *Engine) appendMessage(role model.Role, content string, meta model.MessageMeta) *model.Message {
	at := e.now().UTC()
	m := &model.Message{
		ID:        e.newID(at),
		Role:      role,
		Content:   content,
		CreatedAt: at,
		Meta:      meta,
	}
	e.state.Messages = append(e.state.Messages, m)
	return m
}

func (e *Engine) analyze(text string) Analysis {
	tags := tagger.Derive(text, e.tagging)
	return Analysis{
		Tokens: lexicon.Normalize(text),
		Tags:   tags,
		Intent: intent.Classify(text, tags),
	}
}

// Analyze tags and classifies text with the engine's tagging config.
func (e *Engine) Analyze(text string) Analysis {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyze(text)
}

// Synthesize records a caretaker message and the garden's reply to it.
// creativity is clamped to 0..100.
func (e *Engine) Synthesize(text string, creativity int) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}
	creativity = min(max(creativity, 0), 100)
	factor := float64(creativity) / 100

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureIntro()
	a := e.analyze(text)
	history := e.state.Messages

	profile := a.Intent
	dial := creativity
	user := e.appendMessage(model.RoleUser, text, model.MessageMeta{
		Creativity: &dial,
		Tags:       a.Tags,
		Intent:     &profile,
	})

	meta := model.MessageMeta{
		Tone:     ToneFor(factor),
		Tags:     a.Tags,
		Intent:   &profile,
		Feedback: &model.Feedback{Status: model.FeedbackPending},
	}

	q := similarity.Query{Tokens: a.Tokens, Tags: a.Tags, Intent: a.Intent}
	res, matched := matcher.Match(e.state.Seeds, q, matcher.Options{MinScore: e.minScore})
	scored := res.Seed != nil

	var content string
	var matchedSeed *model.Seed
	switch {
	case matched && WordEcho(res.Seed, text, res.Breakdown):
		meta.Strategy = model.StrategyWordEcho
		content = res.Seed.Response
		matchedSeed = res.Seed
	case matched:
		meta.Strategy = model.StrategySeedMatch
		content = Blend(res.Seed.Response, factor)
		matchedSeed = res.Seed
	default:
		if themes := Themes(history, a.Tags); len(themes) > 0 {
			meta.Strategy = model.StrategyLearned
			meta.Themes = themes
			content = LearnedReply(themes)
		} else {
			meta.Strategy = model.StrategyFallback
			content = Fallback(factor)
		}
	}

	if scored {
		b := res.Breakdown
		meta.Breakdown = &b
		meta.Similarity = strconv.FormatFloat(res.Score, 'f', 2, 64)
	}
	if matchedSeed != nil {
		meta.UsedSeedID = matchedSeed.ID
	}

	q2 := quality.Estimate(quality.Input{
		Strategy:     meta.Strategy,
		SeedCount:    len(e.state.Seeds),
		MessageCount: len(e.state.Messages),
		ReplyTags:    a.Tags,
		MatchedSeed:  matchedSeed,
		Seeds:        e.state.Seeds,
	})
	meta.QScore = &q2

	reply := e.appendMessage(model.RoleGarden, content, meta)
	metrics.Refresh(e.state)
	e.metrics.ObserveReply(meta.Strategy, res.Score, scored)

	e.logger.Debug("garden reply",
		zap.String("strategy", string(meta.Strategy)),
		zap.String("intent", string(profile.Intent)),
		zap.Float64("score", res.Score),
		zap.Bool("rejected", res.Rejected),
		zap.String("seed", meta.UsedSeedID),
	)

	out := reply.Meta
	fb := *out.Feedback
	out.Feedback = &fb
	return Reply{
		UserMessageID: user.ID,
		MessageID:     reply.ID,
		Text:          content,
		Meta:          out,
	}, nil
}

// Feedback records the caretaker's verdict on a garden reply. Promotion
// happens later, in the promotion pass.
func (e *Engine) Feedback(messageID string, satisfied bool) (model.Feedback, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.state.FindMessage(messageID)
	if m == nil {
		return model.Feedback{}, fmt.Errorf("feedback %s: %w", messageID, ErrMessageNotFound)
	}
	if m.Role != model.RoleGarden {
		return model.Feedback{}, fmt.Errorf("feedback %s: %w", messageID, ErrNotGardenMessage)
	}
	if m.Meta.Feedback == nil {
		m.Meta.Feedback = &model.Feedback{}
	}
	status := model.FeedbackUnsatisfied
	if satisfied {
		status = model.FeedbackSatisfied
	}
	m.Meta.Feedback.Status = status

	metrics.Refresh(e.state)
	e.metrics.ObserveFeedback(status)
	return *m.Meta.Feedback, nil
}

// PlantSeed stores a new prompt/response pair. Caretaker tags are kept as
// seed tags and merged with tags derived from the prompt.
func (e *Engine) PlantSeed(prompt, response string, tags []tagger.Input) (model.Seed, error) {
	prompt = strings.TrimSpace(prompt)
	response = strings.TrimSpace(response)
	if prompt == "" || response == "" {
		return model.Seed{}, ErrEmptySeed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c := tagger.NewCollection(tagger.Normalize(tags, model.KindSeed)...)
	for _, t := range tagger.Derive(prompt, e.tagging) {
		c.Add(t.Term, t.Weight, t.Kind)
	}

	at := e.now().UTC()
	seed := &model.Seed{
		ID:        e.newID(at),
		Prompt:    prompt,
		Response:  response,
		Tags:      c.Tags(),
		CreatedAt: at,
	}
	e.state.Seeds = append(e.state.Seeds, seed)
	metrics.Refresh(e.state)
	e.metrics.ObserveSeed(true)

	e.logger.Info("seed planted", zap.String("id", seed.ID), zap.Int("tags", len(seed.Tags)))
	return *seed, nil
}

// RemoveSeed deletes a seed. Replies that used it keep their seed id;
// promotion treats them as orphans.
func (e *Engine) RemoveSeed(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.state.Seeds {
		if s.ID == id {
			e.state.Seeds = append(e.state.Seeds[:i], e.state.Seeds[i+1:]...)
			metrics.Refresh(e.state)
			e.metrics.ObserveSeed(false)
			return nil
		}
	}
	return fmt.Errorf("remove seed %s: %w", id, ErrSeedNotFound)
}

// ClearConversation drops caretaker and garden messages. System messages
// and seeds stay.
func (e *Engine) ClearConversation() {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.state.Messages[:0]
	for _, m := range e.state.Messages {
		if m.Role == model.RoleSystem {
			kept = append(kept, m)
		}
	}
	clear(e.state.Messages[len(kept):])
	e.state.Messages = kept
	e.ensureIntro()
	metrics.Refresh(e.state)
}

// PromoteOnce runs one promotion pass.
func (e *Engine) PromoteOnce() promotion.Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := promotion.Promote(e.state, e.now().UTC())
	if r.Promoted > 0 {
		metrics.Refresh(e.state)
		e.metrics.ObservePromotions(r.Promoted)
		e.logger.Info("promoted replies",
			zap.Int("promoted", r.Promoted),
			zap.Int("seeds", r.SeedsUpdated),
			zap.Int("orphaned", r.Orphaned),
		)
	}
	return r
}

// PromotionJob adapts PromoteOnce to the scheduler. onPass, if set, sees
// every report.
func (e *Engine) PromotionJob(onPass func(promotion.Report)) promotion.Job {
	return func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		r := e.PromoteOnce()
		if onPass != nil {
			onPass(r)
		}
	}
}

// Snapshot returns a deep copy of the state.
func (e *Engine) Snapshot() (*model.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(e.state)
	if err != nil {
		return nil, fmt.Errorf("copy state: %w", err)
	}
	out := model.NewState()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("copy state: %w", err)
	}
	return out, nil
}

// Metrics returns the derived aggregates.
func (e *Engine) Metrics() (model.Metrics, model.Streak) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Metrics, e.state.Streak
}

// SetTagging swaps the tagging config. Existing tags are not recomputed.
func (e *Engine) SetTagging(cfg tagger.Config) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("tagging config: %w", err)
	}
	e.mu.Lock()
	e.tagging = cfg
	e.mu.Unlock()
	return nil
}

// SetMinScore changes the match threshold.
func (e *Engine) SetMinScore(v float64) {
	e.mu.Lock()
	e.minScore = v
	e.mu.Unlock()
}
