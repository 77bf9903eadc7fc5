// Package telemetry groups the observability subsystems: structured
// logging with PHI redaction, Prometheus metrics, and health checks.
package telemetry
