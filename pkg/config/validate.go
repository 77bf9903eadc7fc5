package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError describes one invalid configuration field.
type FieldError struct {
	// Field is the dotted path of the offending field.
	Field string

	// Message explains what is wrong with it.
	Message string
}

// Error returns the error message.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every invalid field found in one pass.
type ValidationError struct {
	Errors []FieldError
}

// Error returns all field errors joined into one message.
func (e ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Validate checks the whole configuration and reports every problem at
// once rather than stopping at the first.
func Validate(cfg *Config) error {
	var errs []FieldError
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateOrchestrator(cfg)...)
	errs = append(errs, validateSafety(cfg)...)
	errs = append(errs, validateTelemetry(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError
	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); err != nil {
			errs = append(errs, FieldError{Field: "rules.path", Message: fmt.Sprintf("not accessible: %v", err)})
		}
	}
	if cfg.Watch && cfg.Path == "" {
		errs = append(errs, FieldError{Field: "rules.watch", Message: "requires rules.path"})
	}
	if cfg.Path == "" && !cfg.LibraryEnabled() {
		errs = append(errs, FieldError{Field: "rules.include_library", Message: "no rule sources: set rules.path or enable the library"})
	}
	return errs
}

func validateOrchestrator(cfg *Config) []FieldError {
	var errs []FieldError
	if cfg.Orchestrator.MaxConcurrent < 1 {
		errs = append(errs, FieldError{Field: "orchestrator.max_concurrent", Message: "must be at least 1"})
	}
	if cfg.Orchestrator.ServiceTimeout <= 0 {
		errs = append(errs, FieldError{Field: "orchestrator.service_timeout", Message: "must be positive"})
	}
	if cfg.Orchestrator.MaxRecommendations < 0 {
		errs = append(errs, FieldError{Field: "orchestrator.max_recommendations", Message: "must not be negative"})
	}
	return errs
}

func validateSafety(cfg *Config) []FieldError {
	var errs []FieldError
	if cfg.Safety.Breaker.FailureThreshold < 1 {
		errs = append(errs, FieldError{Field: "safety.breaker.failure_threshold", Message: "must be at least 1"})
	}
	if cfg.Safety.Breaker.SuccessThreshold < 1 {
		errs = append(errs, FieldError{Field: "safety.breaker.success_threshold", Message: "must be at least 1"})
	}
	if cfg.Safety.Breaker.Cooldown <= 0 {
		errs = append(errs, FieldError{Field: "safety.breaker.cooldown", Message: "must be positive"})
	}
	if cfg.Safety.RateLimit.Limit < 1 {
		errs = append(errs, FieldError{Field: "safety.rate_limit.limit", Message: "must be at least 1"})
	}
	if cfg.Safety.RateLimit.Window <= 0 {
		errs = append(errs, FieldError{Field: "safety.rate_limit.window", Message: "must be positive"})
	}
	if p := cfg.Safety.Allocation.Percent; p < 0 || p > 100 {
		errs = append(errs, FieldError{Field: "safety.allocation.percent", Message: "must be in [0, 100]"})
	}
	if s := cfg.Safety.MaintenanceSchedule; s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			errs = append(errs, FieldError{Field: "safety.maintenance_schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	return errs
}

func validateTelemetry(cfg *Config) []FieldError {
	var errs []FieldError
	switch strings.ToLower(cfg.Telemetry.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: fmt.Sprintf("unknown level %q", cfg.Telemetry.Logging.Level)})
	}
	switch strings.ToLower(cfg.Telemetry.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: fmt.Sprintf("unknown format %q", cfg.Telemetry.Logging.Format)})
	}
	return errs
}
