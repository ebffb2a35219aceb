package intent

import "github.com/rcliao/memory-garden/internal/model"

const (
	floorScore = 0.001

	questionMarkBoost  = 1.2
	interrogativeBoost = 0.8
	leadingQuestion    = 0.4

	keywordHit = 0.6
	keywordCap = 2.4

	firstPersonScale = 1.5

	briefTokens = 6
	briefChars  = 40
	briefBoost  = 0.5

	longTokens = 25
	longBoost  = 0.6

	tagScale = 0.25
	tagCap   = 0.75

	phrasePlanBonus     = 0.3
	phraseRememberBonus = 0.3
)

var interrogatives = map[string]bool{
	"how": true, "what": true, "why": true, "when": true, "where": true,
	"who": true, "whom": true, "whose": true, "which": true,
}

// auxiliaries open a yes/no question when they lead the sentence.
var auxiliaries = map[string]bool{
	"can": true, "could": true, "should": true, "would": true, "will": true,
	"do": true, "does": true, "did": true, "is": true, "are": true,
	"am": true, "was": true, "were": true, "may": true, "might": true,
	"shall": true, "have": true, "has": true,
}

// keywords are prefix-matched against raw tokens, so "plan" also
// covers "planning" and "planned".
var keywords = map[model.Intent][]string{
	model.IntentInquiry: {
		"ask", "curious", "wonder", "explain", "question", "clarify", "help",
	},
	model.IntentPlanning: {
		"plan", "outline", "roadmap", "milestone", "schedule", "draft",
		"phase", "release", "goal", "timeline", "prepare", "organize",
		"next", "tomorrow", "deadline", "priorit", "agenda", "todo",
	},
	model.IntentReflection: {
		"remember", "reflect", "share", "felt", "feel", "grateful",
		"thankful", "memory", "memories", "journal", "yesterday", "learned",
		"realize", "noticed", "today",
	},
	model.IntentSignal: {
		"ping", "update", "note", "status", "fyi", "done", "ack", "ok",
		"okay", "thanks", "check", "test", "hello", "hi",
	},
}

// tagCues are substrings of tag terms that hint at a class.
var tagCues = map[model.Intent][]string{
	model.IntentInquiry:    {"question", "curio", "wonder"},
	model.IntentPlanning:   {"plan", "roadmap", "milestone", "schedul", "goal", "phase", "timeline", "release"},
	model.IntentReflection: {"remember", "reflect", "memor", "feel", "journal", "grat"},
	model.IntentSignal:     {"ping", "status", "update", "note", "check"},
}

var firstPerson = map[string]bool{
	"i": true, "im": true, "ive": true, "id": true, "ill": true,
	"me": true, "my": true, "mine": true, "myself": true,
}
