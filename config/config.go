// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Result archive kinds.
const (
	ResultsSQLite = "sqlite"
	ResultsMemory = "memory"
)

// logOutput is where Logger writes.
var logOutput io.Writer = os.Stderr

// Config holds the server settings. Every field can be set through its
// SHIRITORI_ environment variable.
type Config struct {
	Addr string `env:"SHIRITORI_ADDR" envDefault:":8000"`
	// Results picks where finished games are archived: ResultsSQLite writes
	// to DBPath, ResultsMemory keeps them for the life of the process.
	Results      string `env:"SHIRITORI_RESULTS" envDefault:"sqlite"`
	DBPath       string `env:"SHIRITORI_DB_PATH" envDefault:"shiritori.sqlite3"`
	WordBankPath string `env:"SHIRITORI_WORDBANK_PATH"`

	TurnBudget int           `env:"SHIRITORI_TURN_BUDGET" envDefault:"30"`
	TimeUnit   time.Duration `env:"SHIRITORI_TIME_UNIT" envDefault:"1s"`
	Language   string        `env:"SHIRITORI_LANGUAGE" envDefault:"ja"`

	LogLevel  slog.Level `env:"SHIRITORI_LOG_LEVEL" envDefault:"info"`
	LogFormat string     `env:"SHIRITORI_LOG_FORMAT" envDefault:"text"`

	TableIdleTimeout time.Duration `env:"SHIRITORI_TABLE_IDLE_TIMEOUT" envDefault:"5m"`
	CleanupInterval  time.Duration `env:"SHIRITORI_CLEANUP_INTERVAL" envDefault:"1m"`
}

// MemoryResults reports whether finished games stay in memory.
func (c Config) MemoryResults() bool {
	return strings.EqualFold(c.Results, ResultsMemory) || c.DBPath == ""
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.TurnBudget <= 0 {
		return fmt.Errorf("turn budget must be positive, got %d", c.TurnBudget)
	}
	if c.TimeUnit <= 0 {
		return fmt.Errorf("time unit must be positive, got %s", c.TimeUnit)
	}
	if c.TableIdleTimeout <= 0 || c.CleanupInterval <= 0 {
		return fmt.Errorf("table idle timeout and cleanup interval must be positive")
	}
	switch strings.ToLower(c.Results) {
	case ResultsSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("sqlite results need a db path")
		}
	case ResultsMemory:
	default:
		return fmt.Errorf("unknown results archive %q", c.Results)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Logger builds the process logger described by the configuration.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(logOutput, opts))
	}
	return slog.New(slog.NewTextHandler(logOutput, opts))
}
