package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and then
// applies ARBITER_* environment variable overrides before validating.
// Environment variables always win over the file.
func LoadWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies ARBITER_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ARBITER_RULES_PATH"); val != "" {
		cfg.Rules.Path = val
	}
	if val, ok := envBool("ARBITER_RULES_WATCH"); ok {
		cfg.Rules.Watch = val
	}
	if val, ok := envBool("ARBITER_RULES_STRICT_MODE"); ok {
		cfg.Rules.Evaluator.StrictMode = val
	}

	if val, ok := envInt("ARBITER_ORCHESTRATOR_MAX_CONCURRENT"); ok {
		cfg.Orchestrator.MaxConcurrent = val
	}
	if val, ok := envDuration("ARBITER_ORCHESTRATOR_SERVICE_TIMEOUT"); ok {
		cfg.Orchestrator.ServiceTimeout = val
	}
	if val, ok := envInt("ARBITER_ORCHESTRATOR_MAX_RECOMMENDATIONS"); ok {
		cfg.Orchestrator.MaxRecommendations = val
	}

	if val, ok := envInt("ARBITER_SAFETY_BREAKER_FAILURE_THRESHOLD"); ok {
		cfg.Safety.Breaker.FailureThreshold = val
	}
	if val, ok := envInt("ARBITER_SAFETY_BREAKER_SUCCESS_THRESHOLD"); ok {
		cfg.Safety.Breaker.SuccessThreshold = val
	}
	if val, ok := envDuration("ARBITER_SAFETY_BREAKER_COOLDOWN"); ok {
		cfg.Safety.Breaker.Cooldown = val
	}
	if val, ok := envInt("ARBITER_SAFETY_RATE_LIMIT"); ok {
		cfg.Safety.RateLimit.Limit = val
	}
	if val, ok := envDuration("ARBITER_SAFETY_RATE_WINDOW"); ok {
		cfg.Safety.RateLimit.Window = val
	}
	if val, ok := envInt("ARBITER_SAFETY_ALLOCATION_PERCENT"); ok {
		cfg.Safety.Allocation.Percent = val
	}

	if val := os.Getenv("ARBITER_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ARBITER_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val, ok := envBool("ARBITER_LOG_REDACT_PHI"); ok {
		cfg.Telemetry.Logging.RedactPHI = val
	}
	if val, ok := envBool("ARBITER_METRICS_ENABLED"); ok {
		cfg.Telemetry.Metrics.Enabled = val
	}
}

func envBool(name string) (bool, bool) {
	val := os.Getenv(name)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(val))
	if err != nil {
		return false, false
	}
	return b, true
}

func envInt(name string) (int, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return i, true
}

func envDuration(name string) (time.Duration, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, false
	}
	return d, true
}
