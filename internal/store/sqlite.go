package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/memory-garden/internal/metrics"
	"github.com/rcliao/memory-garden/internal/model"
	"github.com/rcliao/memory-garden/internal/tagger"
)

const (
	kvSavedAt = "saved_at"
	kvMetrics = "metrics"
	kvStreak  = "streak"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seeds (
		id          TEXT PRIMARY KEY,
		seq         INTEGER NOT NULL,
		prompt      TEXT NOT NULL,
		response    TEXT NOT NULL,
		tags        TEXT,
		uses        INTEGER NOT NULL DEFAULT 0,
		intent      TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_seeds_seq ON seeds(seq);

	CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		seq         INTEGER NOT NULL,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		meta        TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_seq ON messages(seq);
	CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role);

	CREATE TABLE IF NOT EXISTS kv (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored snapshot. Derived metrics are stored alongside
// for inspection but are rebuilt on Load.
func (s *SQLiteStore) Save(ctx context.Context, state *model.State) error {
	if state == nil {
		state = model.NewState()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seeds`); err != nil {
		return fmt.Errorf("clear seeds: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	for i, seed := range state.Seeds {
		tagsJSON, _ := json.Marshal(seed.Tags)
		var intentJSON *string
		if seed.IntentProfile != nil {
			b, _ := json.Marshal(seed.IntentProfile)
			v := string(b)
			intentJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO seeds (id, seq, prompt, response, tags, uses, intent, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			seed.ID, i, seed.Prompt, seed.Response, string(tagsJSON), seed.Uses, intentJSON,
			formatTime(seed.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert seed %s: %w", seed.ID, err)
		}
	}

	for i, m := range state.Messages {
		metaJSON, err := json.Marshal(m.Meta)
		if err != nil {
			return fmt.Errorf("encode meta %s: %w", m.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, seq, role, content, meta, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, i, string(m.Role), m.Content, string(metaJSON), formatTime(m.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert message %s: %w", m.ID, err)
		}
	}

	metricsJSON, _ := json.Marshal(state.Metrics)
	streakJSON, _ := json.Marshal(state.Streak)
	for key, value := range map[string]string{
		kvSavedAt: now,
		kvMetrics: string(metricsJSON),
		kvStreak:  string(streakJSON),
	} {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now)
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Load rebuilds the snapshot. A database that was never saved returns
// ErrNotSaved together with an empty state.
func (s *SQLiteStore) Load(ctx context.Context) (*model.State, error) {
	state := model.NewState()

	var savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, kvSavedAt).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return state, ErrNotSaved
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot marker: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, response, tags, uses, intent, created_at FROM seeds ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		seed, err := scanSeed(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		state.Seeds = append(state.Seeds, seed)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, role, content, meta, created_at FROM messages ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		state.Messages = append(state.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	metrics.Refresh(state)
	return state, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSeed(row scanner) (*model.Seed, error) {
	seed := &model.Seed{}
	var tagsJSON, intentJSON sql.NullString
	var createdAt string

	err := row.Scan(&seed.ID, &seed.Prompt, &seed.Response, &tagsJSON, &seed.Uses, &intentJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	seed.CreatedAt = parseTime(createdAt)
	if tagsJSON.Valid {
		var inputs []tagger.Input
		json.Unmarshal([]byte(tagsJSON.String), &inputs)
		if inputs != nil {
			seed.Tags = tagger.Normalize(inputs, model.KindSeed)
		}
	}
	if intentJSON.Valid {
		var p model.IntentProfile
		if json.Unmarshal([]byte(intentJSON.String), &p) == nil && p.Probabilities != nil {
			seed.IntentProfile = &p
		}
	}
	return seed, nil
}

func scanMessage(row scanner) (*model.Message, error) {
	m := &model.Message{}
	var role, createdAt string
	var meta sql.NullString

	err := row.Scan(&m.ID, &role, &m.Content, &meta, &createdAt)
	if err != nil {
		return nil, err
	}

	m.Role = model.Role(role)
	m.CreatedAt = parseTime(createdAt)
	if meta.Valid {
		json.Unmarshal([]byte(meta.String), &m.Meta)
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
