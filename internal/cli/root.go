// Package cli implements the memory-garden CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/memory-garden/internal/config"
	"github.com/rcliao/memory-garden/internal/garden"
	"github.com/rcliao/memory-garden/internal/store"
	"github.com/rcliao/memory-garden/internal/telemetry"
)

var (
	dbPath     string
	configPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memory-garden",
	Short: "A garden that learns replies from the seeds you plant",
	Long: "A local reply engine. Plant prompt/response seeds, talk to the garden, " +
		"and mark replies you like so their tags grow back into the seeds. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MEMORY_GARDEN_DB or ~/.memory-garden/garden.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $MEMORY_GARDEN_CONFIG or ~/.memory-garden/config.yaml)")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DBPath
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(cfg))
}

// session is one command's view of the garden: config, logger, store and
// an engine over the last saved snapshot.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	level   zap.AtomicLevel
	store   *store.SQLiteStore
	engine  *garden.Engine
	metrics *telemetry.Collector

	saveMu sync.Mutex
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newSession(ctx, cfg)
}

func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	logger, level, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	state, err := s.Load(ctx)
	if err != nil && !errors.Is(err, store.ErrNotSaved) {
		s.Close()
		return nil, fmt.Errorf("load garden: %w", err)
	}

	collector := telemetry.NewCollector(telemetry.Namespace)
	minScore := cfg.Match.MinScore
	engine := garden.New(state, garden.Options{
		Tagging:  &cfg.Tagging,
		MinScore: &minScore,
		Logger:   logger,
		Metrics:  collector,
	})

	logger.Debug("garden opened",
		zap.String("db", getDBPath(cfg)),
		zap.Int("seeds", len(state.Seeds)),
		zap.Int("messages", len(state.Messages)),
	)
	sess := &session{
		cfg:     cfg,
		logger:  logger,
		level:   level,
		store:   s,
		engine:  engine,
		metrics: collector,
	}

	// Every session starts with one promotion pass.
	if r := engine.PromoteOnce(); r.Promoted > 0 {
		if err := sess.save(ctx); err != nil {
			sess.close()
			return nil, fmt.Errorf("save promotion: %w", err)
		}
	}
	return sess, nil
}

// save writes the engine's current snapshot. Snapshot and write happen
// under one lock so a slower save never overwrites a newer one.
func (s *session) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	state, err := s.engine.Snapshot()
	if err != nil {
		return err
	}
	return s.store.Save(ctx, state)
}

func (s *session) close() {
	s.store.Close()
	_ = s.logger.Sync()
}

// readText takes the positional args, or stdin when it is piped.
func readText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
