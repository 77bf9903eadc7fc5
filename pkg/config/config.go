package config

import (
	"carelogic/arbiter/pkg/orchestrator"
	"carelogic/arbiter/pkg/rules"
	"carelogic/arbiter/pkg/safety"
	"carelogic/arbiter/pkg/telemetry/logging"
	"carelogic/arbiter/pkg/telemetry/metrics"
)

// Config is the root configuration for the arbiter engine.
type Config struct {
	// Rules configures rule loading and condition evaluation.
	Rules RulesConfig `yaml:"rules"`

	// Orchestrator configures concurrent service execution.
	Orchestrator orchestrator.Config `yaml:"orchestrator"`

	// Safety configures the circuit breaker, rate limiter, feature flags,
	// A/B allocation, and rolling performance metrics.
	Safety safety.Config `yaml:"safety"`

	// Telemetry configures logging and Prometheus metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RulesConfig configures the rules engine.
type RulesConfig struct {
	// Path points at a rule YAML file or a directory of them. Empty means
	// only the prebuilt clinical library is loaded.
	Path string `yaml:"path"`

	// Watch reloads rules automatically when Path changes on disk.
	Watch bool `yaml:"watch"`

	// IncludeLibrary loads the prebuilt clinical rule library alongside
	// any file-based rule sets. Default true.
	IncludeLibrary *bool `yaml:"include_library"`

	// Evaluator configures condition evaluation semantics.
	Evaluator rules.EvaluatorConfig `yaml:"evaluator"`
}

// LibraryEnabled reports whether the prebuilt library should be loaded.
func (c RulesConfig) LibraryEnabled() bool {
	return c.IncludeLibrary == nil || *c.IncludeLibrary
}

// TelemetryConfig groups the observability sections.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging logging.Config `yaml:"logging"`

	// Metrics configures the Prometheus collector.
	Metrics metrics.Config `yaml:"metrics"`
}
