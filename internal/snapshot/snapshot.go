// Package snapshot reads and writes the JSON garden snapshot.
//
// Decoding repairs rather than rejects: missing fields take zero values,
// entries that are not objects are dropped, tags may be bare strings, and
// derived metrics are recomputed from the log.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/memory-garden/internal/metrics"
	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/tagger"
)

// ErrNotObject is returned when the top-level JSON value is not an object.
var ErrNotObject = errors.New("snapshot is not a JSON object")

// Export is the downloadable envelope around a snapshot.
type Export struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	State       *model.State `json:"state"`
}

type stateRecord struct {
	Messages []json.RawMessage `json:"messages"`
	Seeds    []json.RawMessage `json:"seeds"`
}

type seedRecord struct {
	ID            json.RawMessage `json:"id"`
	Prompt        json.RawMessage `json:"prompt"`
	Response      json.RawMessage `json:"response"`
	Tags          []tagger.Input  `json:"tags"`
	CreatedAt     json.RawMessage `json:"createdAt"`
	Uses          json.RawMessage `json:"uses"`
	IntentProfile json.RawMessage `json:"intentProfile"`
}

type messageRecord struct {
	ID        json.RawMessage `json:"id"`
	Role      json.RawMessage `json:"role"`
	Content   json.RawMessage `json:"content"`
	CreatedAt json.RawMessage `json:"createdAt"`
	Meta      json.RawMessage `json:"meta"`
}

// metaRecord mirrors model.MessageMeta with tolerant tags.
type metaRecord struct {
	model.MessageMeta
	Tags []tagger.Input `json:"tags"`
}

// Encode writes a snapshot as indented JSON.
func Encode(state *model.State) ([]byte, error) {
	if state == nil {
		state = model.NewState()
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot, repairing what it can. Only a payload that is
// not a JSON object is an error.
func Decode(data []byte) (*model.State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotObject
	}
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	state := model.NewState()
	for _, raw := range rec.Seeds {
		if s, ok := decodeSeed(raw); ok {
			state.Seeds = append(state.Seeds, s)
		}
	}
	for _, raw := range rec.Messages {
		if m, ok := decodeMessage(raw); ok {
			state.Messages = append(state.Messages, m)
		}
	}
	metrics.Refresh(state)
	return state, nil
}

// EncodeExport wraps a snapshot in an export envelope.
func EncodeExport(state *model.State, generatedAt time.Time) ([]byte, error) {
	if state == nil {
		state = model.NewState()
	}
	data, err := json.MarshalIndent(Export{GeneratedAt: generatedAt.UTC(), State: state}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// DecodeExport reads an export envelope. A bare snapshot is accepted too.
func DecodeExport(data []byte) (*model.State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotObject
	}
	var env struct {
		State json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if len(env.State) > 0 && !bytes.Equal(env.State, []byte("null")) {
		return Decode(env.State)
	}
	return Decode(data)
}

func decodeSeed(raw json.RawMessage) (*model.Seed, bool) {
	if !isObject(raw) {
		return nil, false
	}
	var rec seedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}

	s := &model.Seed{}
	_ = json.Unmarshal(rec.ID, &s.ID)
	_ = json.Unmarshal(rec.Prompt, &s.Prompt)
	_ = json.Unmarshal(rec.Response, &s.Response)
	_ = json.Unmarshal(rec.CreatedAt, &s.CreatedAt)
	_ = json.Unmarshal(rec.Uses, &s.Uses)
	if s.Prompt == "" && s.Response == "" {
		return nil, false
	}
	if s.ID == "" {
		s.ID = ulid.Make().String()
	}
	if s.Uses < 0 {
		s.Uses = 0
	}
	if rec.Tags != nil {
		s.Tags = tagger.Normalize(rec.Tags, model.KindSeed)
	}

	var profile model.IntentProfile
	if json.Unmarshal(rec.IntentProfile, &profile) == nil && validProfile(profile) {
		s.IntentProfile = &profile
	}
	return s, true
}

func decodeMessage(raw json.RawMessage) (*model.Message, bool) {
	if !isObject(raw) {
		return nil, false
	}
	var rec messageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}

	m := &model.Message{}
	var role string
	_ = json.Unmarshal(rec.Role, &role)
	m.Role = model.Role(role)
	if !model.ValidRoles[m.Role] {
		return nil, false
	}
	_ = json.Unmarshal(rec.ID, &m.ID)
	_ = json.Unmarshal(rec.Content, &m.Content)
	_ = json.Unmarshal(rec.CreatedAt, &m.CreatedAt)
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}

	if isObject(rec.Meta) {
		var meta metaRecord
		if json.Unmarshal(rec.Meta, &meta) == nil {
			m.Meta = meta.MessageMeta
			if len(meta.Tags) > 0 {
				m.Meta.Tags = tagger.Normalize(meta.Tags, model.KindKeyword)
			}
			if m.Meta.Intent != nil && !validProfile(*m.Meta.Intent) {
				m.Meta.Intent = nil
			}
		}
	}
	if m.Role == model.RoleGarden && m.Meta.Feedback == nil {
		m.Meta.Feedback = &model.Feedback{Status: model.FeedbackPending}
	}
	if fb := m.Meta.Feedback; fb != nil && !model.ValidFeedback[fb.Status] {
		fb.Status = model.FeedbackPending
	}
	return m, true
}

func validProfile(p model.IntentProfile) bool {
	if p.Probabilities == nil {
		return false
	}
	for _, c := range model.IntentClasses {
		if _, ok := p.Probabilities[c]; !ok {
			return false
		}
	}
	return true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
