// Package config loads memory-garden settings from defaults, an optional
// .env file, a YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/memory-garden/internal/tagger"
)

// Environment variables that override file settings.
const (
	EnvDB              = "MEMORY_GARDEN_DB"
	EnvLogLevel        = "MEMORY_GARDEN_LOG_LEVEL"
	EnvPromoteInterval = "MEMORY_GARDEN_PROMOTE_INTERVAL"
	EnvMinScore        = "MEMORY_GARDEN_MIN_SCORE"
	EnvConfig          = "MEMORY_GARDEN_CONFIG"
)

// Defaults.
const (
	DefaultLogLevel        = "warn"
	DefaultPromoteInterval = 45 * time.Second
	DefaultMinScore        = 0.12
	DefaultCreativity      = 50
)

// MatchConfig tunes seed selection.
type MatchConfig struct {
	MinScore float64 `yaml:"min_score" validate:"gte=0,lte=1"`
}

// Config is the full application configuration.
type Config struct {
	DBPath          string        `yaml:"db_path" validate:"required"`
	LogLevel        string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	PromoteInterval time.Duration `yaml:"promote_interval" validate:"gte=0"`
	Creativity      int           `yaml:"creativity" validate:"gte=0,lte=100"`
	Match           MatchConfig   `yaml:"match"`
	Tagging         tagger.Config `yaml:"tagging"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		DBPath:          DefaultDBPath(),
		LogLevel:        DefaultLogLevel,
		PromoteInterval: DefaultPromoteInterval,
		Creativity:      DefaultCreativity,
		Match:           MatchConfig{MinScore: DefaultMinScore},
		Tagging:         tagger.DefaultConfig(),
	}
}

// DefaultDBPath is ~/.memory-garden/garden.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memory-garden", "garden.db")
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memory-garden", "config.yaml")
}

// Load builds the configuration. A missing file at path is not an error;
// a file that exists but does not parse is.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Tagging = cfg.Tagging.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPromoteInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPromoteInterval, err)
		}
		c.PromoteInterval = d
	}
	if v := os.Getenv(EnvMinScore); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinScore, err)
		}
		c.Match.MinScore = f
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges and the tagging n-gram range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Tagging.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
