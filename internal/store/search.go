package store

import (
	"context"
	"strings"

	"github.com/rcliao/memory-garden/internal/model"
)

// SearchSeeds finds seeds whose prompt, response or tags contain the query
// substring, most used first.
func (s *SQLiteStore) SearchSeeds(ctx context.Context, p SearchParams) ([]model.Seed, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := "%" + escapeLike(strings.ToLower(strings.TrimSpace(p.Query))) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, response, tags, uses, intent, created_at
		FROM seeds
		WHERE lower(prompt) LIKE ? ESCAPE '\'
		   OR lower(response) LIKE ? ESCAPE '\'
		   OR lower(tags) LIKE ? ESCAPE '\'
		ORDER BY uses DESC, seq DESC
		LIMIT ?`, query, query, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Seed
	for rows.Next() {
		seed, err := scanSeed(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *seed)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
