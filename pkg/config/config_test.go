package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfigYAML = `
rules:
  evaluator:
    strict_mode: true
orchestrator:
  max_concurrent: 4
  service_timeout: 2s
  max_recommendations: 20
safety:
  breaker:
    failure_threshold: 3
    cooldown: 1m
  rate_limit:
    limit: 50
  allocation:
    percent: 25
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    namespace: carelogic
    enabled: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbiter.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfigYAML))
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.Rules.Evaluator.StrictMode {
		t.Error("strict_mode not read")
	}
	if cfg.Orchestrator.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d", cfg.Orchestrator.MaxConcurrent)
	}
	if cfg.Safety.Breaker.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %d", cfg.Safety.Breaker.FailureThreshold)
	}

	// Unset fields take defaults.
	if cfg.Safety.Breaker.SuccessThreshold != 3 {
		t.Errorf("SuccessThreshold default = %d, want 3", cfg.Safety.Breaker.SuccessThreshold)
	}
	if cfg.Safety.RateLimit.Window != time.Minute {
		t.Errorf("rate window default = %v, want 1m", cfg.Safety.RateLimit.Window)
	}
	if cfg.Safety.MaintenanceSchedule == "" {
		t.Error("maintenance schedule default missing")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
	if !cfg.Rules.LibraryEnabled() {
		t.Error("library should be enabled by default")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Safety.Allocation.Percent = 150
	cfg.Safety.MaintenanceSchedule = "whenever"
	cfg.Telemetry.Logging.Level = "loud"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("got %d field errors, want 3: %v", len(verr.Errors), verr)
	}
}

func TestValidateRejectsMissingRuleSources(t *testing.T) {
	cfg := Default()
	off := false
	cfg.Rules.IncludeLibrary = &off

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError for no rule sources", err)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "rules: [not a mapping")); err == nil {
		t.Error("malformed YAML accepted")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ARBITER_ORCHESTRATOR_MAX_CONCURRENT", "2")
	t.Setenv("ARBITER_SAFETY_RATE_LIMIT", "7")
	t.Setenv("ARBITER_LOG_LEVEL", "error")
	t.Setenv("ARBITER_RULES_STRICT_MODE", "false")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, sampleConfigYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Orchestrator.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, env override lost", cfg.Orchestrator.MaxConcurrent)
	}
	if cfg.Safety.RateLimit.Limit != 7 {
		t.Errorf("rate limit = %d, env override lost", cfg.Safety.RateLimit.Limit)
	}
	if cfg.Telemetry.Logging.Level != "error" {
		t.Errorf("log level = %q, env override lost", cfg.Telemetry.Logging.Level)
	}
	if cfg.Rules.Evaluator.StrictMode {
		t.Error("strict mode env override lost")
	}
}

func TestEnvOverrideValidationStillApplies(t *testing.T) {
	t.Setenv("ARBITER_SAFETY_ALLOCATION_PERCENT", "300")

	if _, err := LoadWithEnvOverrides(writeConfig(t, sampleConfigYAML)); err == nil {
		t.Error("invalid env override accepted")
	}
}
