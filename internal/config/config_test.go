package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultPromoteInterval, cfg.PromoteInterval)
	assert.Equal(t, DefaultMinScore, cfg.Match.MinScore)
	assert.Equal(t, DefaultCreativity, cfg.Creativity)
	assert.Equal(t, 5, cfg.Tagging.MaxTags)
	assert.True(t, cfg.Tagging.EnableSynonyms)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoad_FileOverridesSubset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
db_path: /tmp/garden.db
log_level: debug
promote_interval: 10s
match:
  min_score: 0.3
tagging:
  max_tags: 3
  ngram_range: [1, 3]
  weighting:
    base: 2
    position_decay: 0
  synonyms:
    garden: [plot]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/garden.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.PromoteInterval)
	assert.Equal(t, 0.3, cfg.Match.MinScore)
	assert.Equal(t, 3, cfg.Tagging.MaxTags)
	assert.Equal(t, [2]int{1, 3}, cfg.Tagging.NGramRange)
	assert.Equal(t, []string{"plot"}, cfg.Tagging.Synonyms["garden"])
	assert.Equal(t, []string{"greeting", "introduction"}, cfg.Tagging.Synonyms["welcome"])
	assert.Equal(t, 1.2, *cfg.Tagging.Weighting.NGramMultiplier)
	assert.Equal(t, 0.0, *cfg.Tagging.Weighting.PositionDecay)
	assert.Equal(t, 2.0, *cfg.Tagging.Weighting.Base)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "db_path: /from/file.db\n")

	t.Setenv(EnvDB, "/from/env.db")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvPromoteInterval, "2m")
	t.Setenv(EnvMinScore, "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DBPath)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.PromoteInterval)
	assert.Equal(t, 0.5, cfg.Match.MinScore)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad yaml", body: "log_level: [unclosed"},
		{name: "unknown level", body: "log_level: loud"},
		{name: "threshold above one", body: "match:\n  min_score: 1.5"},
		{name: "too many tags", body: "tagging:\n  max_tags: 99"},
		{name: "inverted ngram range", body: "tagging:\n  ngram_range: [3, 1]"},
		{name: "bad creativity", body: "creativity: 120"},
		{name: "bad env interval", env: map[string]string{EnvPromoteInterval: "soon"}},
		{name: "bad env score", env: map[string]string{EnvMinScore: "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.body)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("info")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, atom, err := NewLogger("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, atom.Level())
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	atom.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, _, err = NewLogger("nope")
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: warn\n")

	changes := make(chan *Config, 4)
	w, err := Watch(path, 20*time.Millisecond, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)

	writeFile(t, path, "log_level: debug\n")

	select {
	case cfg := <-changes:
		assert.Equal(t, "debug", cfg.LogLevel)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatch_SkipsInvalidConfig(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "log_level: warn\n")

	changes := make(chan *Config, 4)
	w, err := Watch(path, 20*time.Millisecond, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "other.yaml"), "log_level: debug\n")
	writeFile(t, path, "log_level: loud\n")

	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, w.Close())
}
