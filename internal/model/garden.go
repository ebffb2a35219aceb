// Package model defines the core garden data types.
package model

import "time"

// TagKind records where a tag came from.
type TagKind string

const (
	KindKeyword  TagKind = "keyword"
	KindPhrase   TagKind = "phrase"
	KindSynonym  TagKind = "synonym"
	KindSeed     TagKind = "seed"
	KindSystem   TagKind = "system"
	KindPromoted TagKind = "promoted"
)

// ValidTagKinds are the allowed tag kinds.
var ValidTagKinds = map[TagKind]bool{
	KindKeyword:  true,
	KindPhrase:   true,
	KindSynonym:  true,
	KindSeed:     true,
	KindSystem:   true,
	KindPromoted: true,
}

// Tag is a normalized term with a weight and a provenance kind.
type Tag struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
	Kind   TagKind `json:"kind"`
}

// Intent is one of the four intent classes.
type Intent string

const (
	IntentInquiry    Intent = "inquiry"
	IntentPlanning   Intent = "planning"
	IntentReflection Intent = "reflection"
	IntentSignal     Intent = "signal"
)

// IntentClasses lists every intent class in a stable order.
var IntentClasses = []Intent{IntentInquiry, IntentPlanning, IntentReflection, IntentSignal}

// IntentProfile is a probability distribution over the intent classes.
type IntentProfile struct {
	Intent        Intent             `json:"intent"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[Intent]float64 `json:"probabilities"`
	Features      map[string]float64 `json:"features,omitempty"`
}

// Seed is a caretaker-authored prompt/response pair.
type Seed struct {
	ID            string         `json:"id"`
	Prompt        string         `json:"prompt"`
	Response      string         `json:"response"`
	Tags          []Tag          `json:"tags"`
	CreatedAt     time.Time      `json:"createdAt"`
	Uses          int            `json:"uses"`
	IntentProfile *IntentProfile `json:"intentProfile,omitempty"`
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleGarden Role = "garden"
	RoleSystem Role = "system"
)

// ValidRoles are the allowed message roles.
var ValidRoles = map[Role]bool{
	RoleUser:   true,
	RoleGarden: true,
	RoleSystem: true,
}

// Strategy names how a garden reply was produced.
type Strategy string

const (
	StrategySeedMatch Strategy = "seed-match"
	StrategyWordEcho  Strategy = "word-echo"
	StrategyLearned   Strategy = "learned"
	StrategyFallback  Strategy = "fallback"
)

// Tone is the bucket derived from the creativity dial.
type Tone string

const (
	ToneGrounded    Tone = "grounded"
	ToneReflective  Tone = "reflective"
	ToneImaginative Tone = "imaginative"
)

// FeedbackStatus is the caretaker's verdict on a garden reply.
type FeedbackStatus string

const (
	FeedbackPending     FeedbackStatus = "pending"
	FeedbackSatisfied   FeedbackStatus = "satisfied"
	FeedbackUnsatisfied FeedbackStatus = "unsatisfied"
)

// ValidFeedback are the allowed feedback statuses.
var ValidFeedback = map[FeedbackStatus]bool{
	FeedbackPending:     true,
	FeedbackSatisfied:   true,
	FeedbackUnsatisfied: true,
}

// Feedback is attached to garden messages.
type Feedback struct {
	Status     FeedbackStatus `json:"status"`
	Promoted   bool           `json:"promoted"`
	PromotedAt *time.Time     `json:"promotedAt,omitempty"`
}

// ScoreBreakdown holds the components of a seed's composite score.
type ScoreBreakdown struct {
	Jaccard         float64 `json:"jaccard"`
	TagAlignment    float64 `json:"tagAlignment"`
	IntentAlignment float64 `json:"intentAlignment"`
	Composite       float64 `json:"composite"`
}

// QComponents are the per-axis parts of a QScore.
type QComponents struct {
	Semantic string `json:"semantic"`
	Logical  string `json:"logical"`
	Ethics   string `json:"ethics"`
}

// QScore is the synthetic confidence attached to a reply. Values are
// fixed 6-decimal strings.
type QScore struct {
	Total      string      `json:"total"`
	Components QComponents `json:"components"`
	Protocol   string      `json:"protocol"`
	Strategy   Strategy    `json:"strategy"`
}

// MessageMeta varies by role. User messages carry the creativity dial,
// garden messages carry the reply metadata and feedback.
type MessageMeta struct {
	Creativity *int            `json:"creativity,omitempty"`
	Strategy   Strategy        `json:"strategy,omitempty"`
	Tone       Tone            `json:"tone,omitempty"`
	UsedSeedID string          `json:"usedSeedId,omitempty"`
	Similarity string          `json:"similarity,omitempty"`
	Breakdown  *ScoreBreakdown `json:"breakdown,omitempty"`
	Tags       []Tag           `json:"tags,omitempty"`
	Intent     *IntentProfile  `json:"intent,omitempty"`
	QScore     *QScore         `json:"qscore,omitempty"`
	Themes     []string        `json:"themes,omitempty"`
	Feedback   *Feedback       `json:"feedback,omitempty"`
}

// Message is one entry of the append-only conversation log.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	Meta      MessageMeta `json:"meta"`
}

// Metrics are aggregates derived from the message and seed log.
type Metrics struct {
	TotalMessages    int        `json:"totalMessages"`
	UserMessages     int        `json:"userMessages"`
	GardenMessages   int        `json:"gardenMessages"`
	SeedUses         int        `json:"seedUses"`
	LastInteraction  *time.Time `json:"lastInteraction"`
	SeedMatchReplies int        `json:"seedMatchReplies"`
	EchoReplies      int        `json:"echoReplies"`
	LearnedReplies   int        `json:"learnedReplies"`
	FallbackReplies  int        `json:"fallbackReplies"`
	SatisfiedReplies int        `json:"satisfiedReplies"`
	PromotedReplies  int        `json:"promotedReplies"`
	AvgSeedUsage     float64    `json:"avgSeedUsage"`
	SeedReuseRate    float64    `json:"seedReuseRate"`
}

// Streak counts consecutive days the garden was tended.
type Streak struct {
	Days       int        `json:"days"`
	LastTended *time.Time `json:"lastTended"`
}

// State is the snapshot handed between the core and its caller.
type State struct {
	Messages []*Message `json:"messages"`
	Seeds    []*Seed    `json:"seeds"`
	Metrics  Metrics    `json:"metrics"`
	Streak   Streak     `json:"streak"`
}

// NewState returns an empty snapshot.
func NewState() *State {
	return &State{Messages: []*Message{}, Seeds: []*Seed{}}
}

// FindSeed returns the seed with the given id, or nil.
func (s *State) FindSeed(id string) *Seed {
	if id == "" {
		return nil
	}
	for _, seed := range s.Seeds {
		if seed.ID == id {
			return seed
		}
	}
	return nil
}

// FindMessage returns the message with the given id, or nil.
func (s *State) FindMessage(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}
