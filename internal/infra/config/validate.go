package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateRender(cfg, ve)
	validateConsole(cfg, ve)
	validateCounter(cfg, ve)
	validateCursor(cfg, ve)
	validateSequence(cfg, ve)
	validateEvents(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want debug, info, warn or error)", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format %q is invalid (want text or json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is invalid (want stdout or noop)", cfg.Tracer.Exporter)
	}
}

func validateRender(cfg *Config, ve *ValidationError) {
	switch cfg.Render.Mode {
	case "plain", "styled":
	default:
		ve.Add("render.mode %q is invalid (want plain or styled)", cfg.Render.Mode)
	}
	if cfg.Render.Cooldown < 0 {
		ve.Add("render.cooldown must be >= 0")
	}
}

func validateConsole(cfg *Config, ve *ValidationError) {
	c := cfg.Console
	if c.Increment == "" || c.Decrement == "" || c.Quit == "" {
		ve.Add("console.increment, console.decrement and console.quit must not be empty")
		return
	}
	if c.Increment == c.Decrement || c.Increment == c.Quit || c.Decrement == c.Quit {
		ve.Add("console tokens must be distinct")
	}
}

func validateCounter(cfg *Config, ve *ValidationError) {
	c := cfg.Counter
	if c.DecrementEvery < 0 {
		ve.Add("counter.decrement_every must be >= 0")
	}
	if c.RandomizeEvery < 0 {
		ve.Add("counter.randomize_every must be >= 0")
	}
	if c.RandomizeMin > c.RandomizeMax {
		ve.Add("counter.randomize_min (%d) must be <= counter.randomize_max (%d)", c.RandomizeMin, c.RandomizeMax)
	}
}

func validateCursor(cfg *Config, ve *ValidationError) {
	if cfg.Cursor.Start != "" && !utf8.ValidString(cfg.Cursor.Start) {
		ve.Add("cursor.start must be valid UTF-8")
	}
}

var validModels = map[string]bool{
	ModelCounter: true,
	ModelCursor:  true,
}

func validateSequence(cfg *Config, ve *ValidationError) {
	if len(cfg.Sequence) == 0 {
		ve.Add("sequence must name at least one model")
		return
	}
	for i, name := range cfg.Sequence {
		if !validModels[name] {
			ve.Add("sequence[%d]: unknown model %q (want counter or cursor)", i, name)
		}
	}
}

func validateEvents(cfg *Config, ve *ValidationError) {
	if cfg.Events.MonitorRate < 0 {
		ve.Add("events.monitor_rate must be >= 0")
	}
	if cfg.Events.MonitorBurst < 0 {
		ve.Add("events.monitor_burst must be >= 0")
	}
}
