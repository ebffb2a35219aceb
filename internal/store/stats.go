package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string      `json:"db_path"`
	DBSizeBytes int64       `json:"db_size_bytes"`
	Seeds       int         `json:"seeds"`
	Messages    int         `json:"messages"`
	SeedUses    int         `json:"seed_uses"`
	SavedAt     string      `json:"saved_at,omitempty"`
	Roles       []RoleStats `json:"roles"`
}

// RoleStats holds per-role message counts.
type RoleStats struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(uses), 0) FROM seeds`).Scan(&st.Seeds, &st.SeedUses)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.Messages)
	s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, kvSavedAt).Scan(&st.SavedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, COUNT(*) as cnt
		FROM messages
		GROUP BY role ORDER BY cnt DESC, role`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var r RoleStats
		rows.Scan(&r.Role, &r.Count)
		st.Roles = append(st.Roles, r)
	}

	return st, nil
}
