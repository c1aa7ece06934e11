package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func parseMap(m map[string]string) (Config, error) {
	return parse(env.Options{Environment: m})
}

func TestParse_Defaults(t *testing.T) {
	c, err := parseMap(map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.HTTPAddr != ":8080" || c.LogLevel != slog.LevelInfo || c.Storage != StorageMemory {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.MinFullRotations != 5 || !c.PreventImmediateRepeat || c.SpinDuration != 4*time.Second {
		t.Errorf("unexpected spin defaults: %+v", c)
	}
	if c.StaleSpinGrace != 5*time.Second || c.HistoryLimit != 50 || c.MaxItems != 100 || c.MaxItemLength != 80 {
		t.Errorf("unexpected limits: %+v", c)
	}
	if c.SpinSeed != nil {
		t.Errorf("expected no seed, got %d", *c.SpinSeed)
	}
	if c.FactsEnabled() {
		t.Error("facts must be disabled without an API key")
	}
}

func TestParse_Overrides(t *testing.T) {
	c, err := parseMap(map[string]string{
		"LOG_LEVEL":            "DEBUG",
		"STORAGE":              "sqlite",
		"SQLITE_PATH":          "/tmp/w.db",
		"POINTER_OFFSET_DEG":   "180",
		"SPIN_SEED":            "42",
		"LLM_FALLBACK_MODELS":  "a, b ,,c",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"OPENROUTER_API_KEY":   "k",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.LogLevel != slog.LevelDebug || c.PointerOffsetDeg != 180 {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.SpinSeed == nil || *c.SpinSeed != 42 {
		t.Errorf("expected seed 42, got %v", c.SpinSeed)
	}
	if !reflect.DeepEqual(c.LLMFallbackModels, []string{"a", "b", "c"}) {
		t.Errorf("unexpected fallbacks: %v", c.LLMFallbackModels)
	}
	if !reflect.DeepEqual(c.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("unexpected origins: %v", c.CORSOrigins)
	}
	if !c.FactsEnabled() {
		t.Error("expected facts enabled")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"storage", map[string]string{"STORAGE": "redis"}, "STORAGE"},
		{"postgres without dsn", map[string]string{"STORAGE": "postgres"}, "PG_DSN"},
		{"rotations", map[string]string{"MIN_FULL_ROTATIONS": "-1"}, "MIN_FULL_ROTATIONS"},
		{"rotations above cap", map[string]string{"MIN_FULL_ROTATIONS": "1001"}, "MIN_FULL_ROTATIONS"},
		{"NaN pointer offset", map[string]string{"POINTER_OFFSET_DEG": "NaN"}, "POINTER_OFFSET_DEG"},
		{"infinite pointer offset", map[string]string{"POINTER_OFFSET_DEG": "-Inf"}, "POINTER_OFFSET_DEG"},
		{"short spin", map[string]string{"SPIN_DURATION": "100ms"}, "SPIN_DURATION"},
		{"max items", map[string]string{"MAX_ITEMS": "1"}, "MAX_ITEMS"},
		{"duration", map[string]string{"SPIN_DURATION": "soon"}, "parse env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMap(tt.env)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
