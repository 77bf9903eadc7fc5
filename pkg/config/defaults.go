package config

import (
	"carelogic/arbiter/pkg/orchestrator"
	"carelogic/arbiter/pkg/safety"
	"carelogic/arbiter/pkg/telemetry/logging"
	"carelogic/arbiter/pkg/telemetry/metrics"
)

// Default returns the complete default configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) {
	if cfg.Orchestrator.MaxConcurrent <= 0 {
		cfg.Orchestrator.MaxConcurrent = orchestrator.DefaultConfig().MaxConcurrent
	}
	if cfg.Orchestrator.ServiceTimeout <= 0 {
		cfg.Orchestrator.ServiceTimeout = orchestrator.DefaultConfig().ServiceTimeout
	}

	safetyDefaults := safety.DefaultConfig()
	if cfg.Safety.Breaker.FailureThreshold <= 0 {
		cfg.Safety.Breaker.FailureThreshold = safetyDefaults.Breaker.FailureThreshold
	}
	if cfg.Safety.Breaker.SuccessThreshold <= 0 {
		cfg.Safety.Breaker.SuccessThreshold = safetyDefaults.Breaker.SuccessThreshold
	}
	if cfg.Safety.Breaker.Cooldown <= 0 {
		cfg.Safety.Breaker.Cooldown = safetyDefaults.Breaker.Cooldown
	}
	if cfg.Safety.RateLimit.Limit <= 0 {
		cfg.Safety.RateLimit.Limit = safetyDefaults.RateLimit.Limit
	}
	if cfg.Safety.RateLimit.Window <= 0 {
		cfg.Safety.RateLimit.Window = safetyDefaults.RateLimit.Window
	}
	if cfg.Safety.SampleCapacity <= 0 {
		cfg.Safety.SampleCapacity = safetyDefaults.SampleCapacity
	}
	if cfg.Safety.MaintenanceSchedule == "" {
		cfg.Safety.MaintenanceSchedule = safetyDefaults.MaintenanceSchedule
	}

	loggingDefaults := logging.DefaultConfig()
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = loggingDefaults.Level
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = loggingDefaults.Format
		// PHI redaction defaults on only when the section is absent
		// entirely, so an explicit redact_phi: false survives.
		cfg.Telemetry.Logging.RedactPHI = loggingDefaults.RedactPHI
	}

	metricsDefaults := metrics.DefaultConfig()
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = metricsDefaults.Namespace
		cfg.Telemetry.Metrics.Enabled = metricsDefaults.Enabled
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = metricsDefaults.Subsystem
	}
}
