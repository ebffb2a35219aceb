// Package store persists garden snapshots in SQLite.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/memory-garden/internal/model"
)

// ErrNotSaved is returned by Load when the database holds no snapshot yet.
var ErrNotSaved = errors.New("no snapshot saved yet")

// SearchParams holds parameters for searching seeds.
type SearchParams struct {
	Query string
	Limit int
}

// Store defines the snapshot storage interface.
type Store interface {
	// Load reads the last saved snapshot.
	Load(ctx context.Context) (*model.State, error)

	// Save replaces the stored snapshot in one transaction.
	Save(ctx context.Context, state *model.State) error

	// SearchSeeds finds seeds whose prompt, response or tags contain the query.
	SearchSeeds(ctx context.Context, p SearchParams) ([]model.Seed, error)

	// Close closes the store.
	Close() error
}
