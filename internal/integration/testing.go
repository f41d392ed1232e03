// Package integration holds end-to-end tests that run real schedulers and
// wall-clock producers.
package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// Config holds integration test configuration from environment
type Config struct {
	TestTimeout time.Duration
	SkipSlow    bool
}

// LoadConfig loads integration test configuration from environment
func LoadConfig() *Config {
	timeout := 10 * time.Second
	if v := os.Getenv("REFLEX_IT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Config{
		TestTimeout: timeout,
		SkipSlow:    os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfShort skips integration tests in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext creates a context with timeout for integration tests
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// WriteConfig writes a YAML config file with owner-only permissions and
// returns its path.
func WriteConfig(t *testing.T, body string) string {
	t.Helper()
	path := t.TempDir() + "/reflex.yaml"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
