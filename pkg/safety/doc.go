// Package safety implements the cross-cutting resilience layer that governs
// whether and how decision services may run: per-service circuit breakers,
// a sliding-window rate limiter per caller, process-wide feature flags,
// consistent-hash A/B allocation, and rolling performance metrics.
//
// All state is keyed and updated under per-key exclusive sections so that
// unrelated services and callers never contend on a shared lock. The
// Manager ties the pieces together and exposes a pull-based snapshot for
// external metrics/audit sinks; pushing those anywhere is the caller's
// responsibility.
package safety
