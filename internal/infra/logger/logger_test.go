package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reflex/internal/infra/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestOpenOutputTargets(t *testing.T) {
	tests := []struct {
		output string
		want   io.Writer
	}{
		{"stdout", os.Stdout},
		{"stderr", os.Stderr},
		{"", os.Stderr},
		{"discard", io.Discard},
	}
	for _, tt := range tests {
		w, closer, err := openOutput(tt.output)
		if err != nil {
			t.Fatalf("openOutput(%q): %v", tt.output, err)
		}
		if w != tt.want {
			t.Errorf("openOutput(%q) returned unexpected writer", tt.output)
		}
		closer()
	}
}

func TestOpenOutputInvalidPath(t *testing.T) {
	_, _, err := openOutput("/nonexistent/dir/log.txt")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestNewLoggerJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reflex.log")

	log, closer, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("event applied", "source", "input")
	if err := closer(); err != nil {
		t.Fatalf("closer: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("invalid JSON: %v, output: %s", err, data)
	}
	if entry["msg"] != "event applied" || entry["source"] != "input" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reflex.log")

	log, closer, err := New(config.LoggerConfig{Level: "warn", Format: "text", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("should be filtered")
	log.Warn("should appear")
	closer()

	data, _ := os.ReadFile(path)
	output := string(data)
	if strings.Contains(output, "should be filtered") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("warn message should appear at warn level")
	}
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	cfg := config.LoggerConfig{Level: "info", Format: "text", Output: "/nonexistent/dir/app.log"}
	_, _, err := New(cfg)
	if err == nil {
		t.Error("expected error for invalid output path")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	Component(base, "dispatcher").Info("started")
	if !strings.Contains(buf.String(), "component=dispatcher") {
		t.Errorf("missing component attr: %s", buf.String())
	}

	// nil logger falls back to a discarding logger instead of panicking.
	Component(nil, "translator").Info("ignored")
}

func TestForRun(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ForRun(base, "dispatcher", "counter", "01RUN").Info("dispatcher started")
	ForRun(base, "translator", "", "01RUN").Info("translator started")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["component"] != "dispatcher" || first["model"] != "counter" || first["run_id"] != "01RUN" {
		t.Errorf("unexpected attrs: %v", first)
	}
	if _, ok := second["model"]; ok {
		t.Errorf("empty model must be omitted: %v", second)
	}
	if second["run_id"] != "01RUN" {
		t.Errorf("run_id missing: %v", second)
	}
}

func TestForRunNilLogger(t *testing.T) {
	if ForRun(nil, "sources", "", "x") == nil {
		t.Fatal("ForRun(nil) returned nil")
	}
}
