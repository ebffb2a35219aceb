package tagger

import "fmt"

const (
	DefaultMaxTags           = 5
	DefaultBase              = 1.0
	DefaultLengthBonus       = 0.05
	DefaultPositionDecay     = 0.05
	DefaultNGramMultiplier   = 1.2
	DefaultSynonymMultiplier = 0.9
)

// Weighting controls how raw tag weights are computed. A nil field takes
// its default, so callers may set any subset; an explicit zero is kept.
type Weighting struct {
	Base              *float64 `yaml:"base,omitempty" json:"base,omitempty" validate:"omitempty,gte=0"`
	LengthBonus       *float64 `yaml:"length_bonus,omitempty" json:"lengthBonus,omitempty" validate:"omitempty,gte=0"`
	PositionDecay     *float64 `yaml:"position_decay,omitempty" json:"positionDecay,omitempty" validate:"omitempty,gte=0,lte=1"`
	NGramMultiplier   *float64 `yaml:"ngram_multiplier,omitempty" json:"ngramMultiplier,omitempty" validate:"omitempty,gte=0"`
	SynonymMultiplier *float64 `yaml:"synonym_multiplier,omitempty" json:"synonymMultiplier,omitempty" validate:"omitempty,gte=0"`
}

// Float returns a pointer to v, for setting Weighting fields.
func Float(v float64) *float64 {
	return &v
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// WithDefaults fills nil fields with the built-in weights.
func (w Weighting) WithDefaults() Weighting {
	return Weighting{
		Base:              Float(valueOr(w.Base, DefaultBase)),
		LengthBonus:       Float(valueOr(w.LengthBonus, DefaultLengthBonus)),
		PositionDecay:     Float(valueOr(w.PositionDecay, DefaultPositionDecay)),
		NGramMultiplier:   Float(valueOr(w.NGramMultiplier, DefaultNGramMultiplier)),
		SynonymMultiplier: Float(valueOr(w.SynonymMultiplier, DefaultSynonymMultiplier)),
	}
}

func (w Weighting) ngramMultiplier() float64 {
	return valueOr(w.NGramMultiplier, DefaultNGramMultiplier)
}

func (w Weighting) synonymMultiplier() float64 {
	return valueOr(w.SynonymMultiplier, DefaultSynonymMultiplier)
}

// Config configures tag extraction.
type Config struct {
	MaxTags        int                 `yaml:"max_tags" json:"maxTags" validate:"gte=1,lte=50"`
	NGramRange     [2]int              `yaml:"ngram_range" json:"ngramRange" validate:"dive,gte=1,lte=5"`
	EnableSynonyms bool                `yaml:"enable_synonyms" json:"enableSynonyms"`
	Weighting      Weighting           `yaml:"weighting" json:"weighting"`
	Synonyms       map[string][]string `yaml:"synonyms" json:"synonyms"`
}

// DefaultConfig returns the built-in tagging defaults.
func DefaultConfig() Config {
	return Config{
		MaxTags:        DefaultMaxTags,
		NGramRange:     [2]int{1, 2},
		EnableSynonyms: true,
		Weighting:      Weighting{}.WithDefaults(),
		Synonyms: map[string][]string{
			"welcome":   {"greeting", "introduction"},
			"caretaker": {"gardener", "steward"},
			"seed":      {"sprout", "teaching"},
		},
	}
}

// WithDefaults fills a non-positive MaxTags, a zero NGramRange and nil
// Weighting fields from DefaultConfig. Synonyms and EnableSynonyms are
// taken as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MaxTags <= 0 {
		c.MaxTags = d.MaxTags
	}
	if c.NGramRange == [2]int{} {
		c.NGramRange = d.NGramRange
	}
	c.Weighting = c.Weighting.WithDefaults()
	return c
}

// Validate checks invariants struct tags cannot express.
func (c Config) Validate() error {
	if c.NGramRange[0] > c.NGramRange[1] {
		return fmt.Errorf("ngram range [%d,%d] is inverted", c.NGramRange[0], c.NGramRange[1])
	}
	return nil
}

func (c Config) weightAt(term string, position float64) float64 {
	w := c.Weighting
	decay := 1 - valueOr(w.PositionDecay, DefaultPositionDecay)*position
	if decay < 0.1 {
		decay = 0.1
	}
	base := valueOr(w.Base, DefaultBase)
	return (base + float64(len(term))*valueOr(w.LengthBonus, DefaultLengthBonus)) * decay
}
