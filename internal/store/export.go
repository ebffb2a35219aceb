package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/memory-garden/internal/metrics"
	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/snapshot"
)

// ImportResult reports what an import added.
type ImportResult struct {
	Seeds    int `json:"seeds"`
	Messages int `json:"messages"`
	Skipped  int `json:"skipped"`
}

// Export returns the stored snapshot wrapped in an export envelope.
func (s *SQLiteStore) Export(ctx context.Context, generatedAt time.Time) ([]byte, error) {
	state, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrNotSaved) {
		return nil, err
	}
	return snapshot.EncodeExport(state, generatedAt)
}

// Import reads an export (or a bare snapshot). With replace set the stored
// snapshot is overwritten; otherwise seeds and messages are appended,
// skipping ids that already exist.
func (s *SQLiteStore) Import(ctx context.Context, data []byte, replace bool) (ImportResult, error) {
	incoming, err := snapshot.DecodeExport(data)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	if replace {
		if err := s.Save(ctx, incoming); err != nil {
			return ImportResult{}, err
		}
		return ImportResult{Seeds: len(incoming.Seeds), Messages: len(incoming.Messages)}, nil
	}

	current, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrNotSaved) {
		return ImportResult{}, err
	}

	var res ImportResult
	seeds := map[string]bool{}
	for _, seed := range current.Seeds {
		seeds[seed.ID] = true
	}
	for _, seed := range incoming.Seeds {
		if seeds[seed.ID] {
			res.Skipped++
			continue
		}
		seeds[seed.ID] = true
		current.Seeds = append(current.Seeds, seed)
		res.Seeds++
	}

	messages := map[string]bool{}
	for _, m := range current.Messages {
		messages[m.ID] = true
	}
	for _, m := range incoming.Messages {
		if messages[m.ID] {
			res.Skipped++
			continue
		}
		messages[m.ID] = true
		current.Messages = append(current.Messages, m)
		res.Messages++
	}

	sortMessages(current)
	metrics.Refresh(current)
	if err := s.Save(ctx, current); err != nil {
		return res, err
	}
	return res, nil
}

// sortMessages keeps the log in time order after a merge. Messages with
// equal timestamps keep their relative order.
func sortMessages(state *model.State) {
	msgs := state.Messages
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
