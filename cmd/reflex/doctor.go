package main

import (
	"fmt"
	"os"
	"strings"

	"reflex/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results.
func runDoctor() error {
	cfgPath := configPath()
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Sequence", Fn: checkSequence},
		{Name: "Producers", Fn: checkProducers},
		{Name: "Terminal", Fn: checkTerminal(os.Stdin)},
	}

	fmt.Println("reflex doctor")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Printf("  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file exists and loads. A missing
// file is only a warning: defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Check the YAML syntax and values in " + cfgPath,
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkSequence reports the models that will run.
func checkSequence(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	if len(cfg.Sequence) == 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: "sequence is empty, reflex will exit immediately",
			Fix:     "Set sequence: [counter, cursor]",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: strings.Join(cfg.Sequence, " then "),
	}
}

// checkProducers reports the counter's periodic producers.
func checkProducers(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}

	usesCounter := false
	for _, name := range cfg.Sequence {
		if name == config.ModelCounter {
			usesCounter = true
		}
	}
	if !usesCounter {
		return CheckResult{Status: StatusPass, Message: "counter not in sequence, no producers"}
	}

	var parts []string
	if d := cfg.Counter.DecrementEvery; d > 0 {
		parts = append(parts, "decrement every "+d.String())
	}
	if d := cfg.Counter.RandomizeEvery; d > 0 {
		parts = append(parts, fmt.Sprintf("randomize every %s in [%d, %d]", d, cfg.Counter.RandomizeMin, cfg.Counter.RandomizeMax))
	}
	if len(parts) == 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: "all counter producers disabled, the counter only reacts to input",
		}
	}
	return CheckResult{Status: StatusPass, Message: strings.Join(parts, "; ")}
}

// checkTerminal warns when stdin is not interactive.
func checkTerminal(f *os.File) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		info, err := f.Stat()
		if err != nil {
			return CheckResult{Status: StatusWarn, Message: fmt.Sprintf("cannot stat stdin: %v", err)}
		}
		if info.Mode()&os.ModeCharDevice == 0 {
			return CheckResult{
				Status:  StatusWarn,
				Message: "stdin is not a terminal; input is read until end of file",
				Fix:     "End piped input with the quit token for each model",
			}
		}
		return CheckResult{Status: StatusPass, Message: "stdin is a terminal"}
	}
}
