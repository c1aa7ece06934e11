package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/randomtoy/wheel-go/internal/domain"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevelRaw string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	Storage    string `env:"STORAGE" envDefault:"memory"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"wheel.db"`
	PGDSN      string `env:"PG_DSN"`

	PointerOffsetDeg       float64       `env:"POINTER_OFFSET_DEG" envDefault:"0"`
	MinFullRotations       int           `env:"MIN_FULL_ROTATIONS" envDefault:"5"`
	PreventImmediateRepeat bool          `env:"PREVENT_IMMEDIATE_REPEAT" envDefault:"true"`
	SpinDuration           time.Duration `env:"SPIN_DURATION" envDefault:"4s"`
	StaleSpinGrace         time.Duration `env:"STALE_SPIN_GRACE" envDefault:"5s"`
	MaxItems               int           `env:"MAX_ITEMS" envDefault:"100"`
	MaxItemLength          int           `env:"MAX_ITEM_LENGTH" envDefault:"80"`
	HistoryLimit           int           `env:"HISTORY_LIMIT" envDefault:"50"`

	// SpinSeed switches to a reproducible, non-cryptographic source.
	SpinSeed *uint64 `env:"SPIN_SEED"`

	LLMModel          string        `env:"LLM_MODEL" envDefault:"qwen/qwen3-4b:free"`
	LLMFallbackModels []string      `env:"LLM_FALLBACK_MODELS" envSeparator:","`
	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"10s"`

	LogLevel slog.Level
}

// FactsEnabled reports whether fun facts can be fetched.
func (c Config) FactsEnabled() bool { return c.OpenRouterAPIKey != "" }

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	level, err := parseLogLevel(c.LogLevelRaw)
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level
	c.LLMFallbackModels = trimAll(c.LLMFallbackModels)
	c.CORSOrigins = trimAll(c.CORSOrigins)

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.Storage {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORAGE=sqlite"))
		}
	case StoragePostgres:
		if c.PGDSN == "" {
			errs = append(errs, errors.New("PG_DSN is required when STORAGE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE %q", c.Storage))
	}
	if c.MinFullRotations < 0 || c.MinFullRotations > domain.MaxFullRotations {
		errs = append(errs, fmt.Errorf("MIN_FULL_ROTATIONS must be between 0 and %d, got %d", domain.MaxFullRotations, c.MinFullRotations))
	}
	if math.IsNaN(c.PointerOffsetDeg) || math.IsInf(c.PointerOffsetDeg, 0) {
		errs = append(errs, fmt.Errorf("POINTER_OFFSET_DEG must be finite, got %v", c.PointerOffsetDeg))
	}
	minDur := time.Duration(domain.MinDurationMS) * time.Millisecond
	maxDur := time.Duration(domain.MaxDurationMS) * time.Millisecond
	if c.SpinDuration < minDur || c.SpinDuration > maxDur {
		errs = append(errs, fmt.Errorf("SPIN_DURATION must be between %s and %s, got %s", minDur, maxDur, c.SpinDuration))
	}
	if c.MaxItems < 2 {
		errs = append(errs, fmt.Errorf("MAX_ITEMS must be >= 2, got %d", c.MaxItems))
	}
	if c.MaxItemLength < 1 {
		errs = append(errs, fmt.Errorf("MAX_ITEM_LENGTH must be >= 1, got %d", c.MaxItemLength))
	}
	if c.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be >= 1, got %d", c.HistoryLimit))
	}
	return errors.Join(errs...)
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
