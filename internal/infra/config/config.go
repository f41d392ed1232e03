package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Logger   LoggerConfig  `yaml:"logger"`
	Tracer   TracerConfig  `yaml:"tracer"`
	Render   RenderConfig  `yaml:"render"`
	Console  ConsoleConfig `yaml:"console"`
	Counter  CounterConfig `yaml:"counter"`
	Cursor   CursorConfig  `yaml:"cursor"`
	Sequence []string      `yaml:"sequence"`
	Events   EventsConfig  `yaml:"events"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// RenderConfig controls how views are written to the terminal.
type RenderConfig struct {
	Mode   string `yaml:"mode"`   // "plain" or "styled"
	Prefix string `yaml:"prefix"` // prepended to every view

	// Consecutive write failures that suspend output, and for how long.
	MaxFailures uint32        `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// ConsoleConfig holds the tokens the console reader maps onto inputs.
type ConsoleConfig struct {
	Increment string `yaml:"increment"`
	Decrement string `yaml:"decrement"`
	Quit      string `yaml:"quit"`
}

// CounterConfig holds settings for the counter model and its producers.
type CounterConfig struct {
	Start          int           `yaml:"start"`
	Trigger        int           `yaml:"trigger"`         // value that emits MaybeIncrement
	DecrementEvery time.Duration `yaml:"decrement_every"` // 0 disables auto-decrement
	RandomizeEvery time.Duration `yaml:"randomize_every"` // 0 disables randomize
	RandomizeMin   int           `yaml:"randomize_min"`
	RandomizeMax   int           `yaml:"randomize_max"`
}

// CursorConfig holds settings for the cursor model.
type CursorConfig struct {
	Start string `yaml:"start"` // first rune is used; empty means U+0000
}

// EventsConfig controls lifecycle event publishing.
type EventsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Events per second forwarded to the monitor. Excess events are dropped.
	MonitorRate  float64 `yaml:"monitor_rate"`
	MonitorBurst int     `yaml:"monitor_burst"`
}

// Model names accepted in Sequence.
const (
	ModelCounter = "counter"
	ModelCursor  = "cursor"
)

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Render: RenderConfig{
			Mode:        "plain",
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
		},
		Console: ConsoleConfig{
			Increment: "+",
			Decrement: "-",
			Quit:      "quit",
		},
		Counter: CounterConfig{
			Start:          0,
			Trigger:        5,
			DecrementEvery: 2 * time.Second,
			RandomizeEvery: 5 * time.Second,
			RandomizeMin:   1,
			RandomizeMax:   10,
		},
		Sequence: []string{ModelCounter, ModelCursor},
		Events: EventsConfig{
			Enabled:      true,
			MonitorRate:  50,
			MonitorBurst: 100,
		},
	}
}

// Load reads a YAML config file on top of Defaults, applies REFLEX_*
// environment overrides and validates the result. A missing file is not an
// error: defaults plus overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays REFLEX_* environment variables onto cfg.
// Malformed numeric or duration values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REFLEX_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("REFLEX_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("REFLEX_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("REFLEX_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("REFLEX_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("REFLEX_RENDER_MODE"); v != "" {
		cfg.Render.Mode = v
	}
	if v := os.Getenv("REFLEX_RENDER_PREFIX"); v != "" {
		cfg.Render.Prefix = v
	}
	if v := os.Getenv("REFLEX_COUNTER_TRIGGER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Counter.Trigger = n
		}
	}
	if v := os.Getenv("REFLEX_COUNTER_DECREMENT_EVERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Counter.DecrementEvery = d
		}
	}
	if v := os.Getenv("REFLEX_COUNTER_RANDOMIZE_EVERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Counter.RandomizeEvery = d
		}
	}
	if v := os.Getenv("REFLEX_CURSOR_START"); v != "" {
		cfg.Cursor.Start = v
	}
	if v := os.Getenv("REFLEX_SEQUENCE"); v != "" {
		cfg.Sequence = splitAndTrim(v, ",")
	}
	if v := os.Getenv("REFLEX_EVENTS_ENABLED"); v == "false" {
		cfg.Events.Enabled = false
	}
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Group/other may read but never write.
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
