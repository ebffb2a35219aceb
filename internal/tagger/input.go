package tagger

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/rcliao/memory-garden/internal/model"
)

// Input is a loosely shaped tag: either a bare term or a
// {term, weight, kind} record. Anything else decodes to an empty Input,
// which Normalize drops.
type Input struct {
	Term   string
	Weight float64
	Kind   model.TagKind
}

// Term returns an Input for a bare term.
func Term(term string) Input {
	return Input{Term: term}
}

// Weighted returns an Input carrying an explicit weight and kind.
func Weighted(term string, weight float64, kind model.TagKind) Input {
	return Input{Term: term, Weight: weight, Kind: kind}
}

// FromTag wraps an existing tag.
func FromTag(t model.Tag) Input {
	return Input{Term: t.Term, Weight: t.Weight, Kind: t.Kind}
}

type inputRecord struct {
	Term   json.RawMessage `json:"term"`
	Weight json.RawMessage `json:"weight"`
	Kind   json.RawMessage `json:"kind"`
}

// UnmarshalJSON accepts a string or an object. Other JSON values,
// including null, leave the Input empty rather than failing.
func (in *Input) UnmarshalJSON(data []byte) error {
	*in = Input{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			in.Term = s
		}
	case '{':
		var rec inputRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil
		}
		// Each field is decoded on its own so one bad field does not
		// lose the others.
		_ = json.Unmarshal(rec.Term, &in.Term)
		_ = json.Unmarshal(rec.Weight, &in.Weight)
		var kind string
		if json.Unmarshal(rec.Kind, &kind) == nil {
			in.Kind = model.TagKind(kind)
		}
	}
	return nil
}

// MarshalJSON writes the object form.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(model.Tag{Term: in.Term, Weight: in.Weight, Kind: in.Kind})
}

// Normalize converts inputs to a deduplicated tag list in first-seen
// order. Empty terms are dropped, missing or invalid weights become 1,
// and unknown kinds become defaultKind.
func Normalize(inputs []Input, defaultKind model.TagKind) []model.Tag {
	c := NewCollection()
	for _, in := range inputs {
		w := in.Weight
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			w = 1
		}
		kind := in.Kind
		if !model.ValidTagKinds[kind] {
			kind = defaultKind
		}
		c.Add(in.Term, w, kind)
	}
	return c.Tags()
}
