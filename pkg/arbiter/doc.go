// Package arbiter is the composition root of the decision engine.
//
// An Engine wires the rules engine, the service orchestrator, the safety
// layer, and telemetry into one object constructed at process start and
// shared by request handlers. Decide is the single entry point: it gates
// the request on feature flags and the rate limiter, orchestrates the
// registered decision services, and falls back to declarative rule
// evaluation when orchestration produces nothing.
//
// A decision request always returns a recommendation set, possibly empty.
// Failures inside individual rules and services are isolated and reported
// through the result and the safety layer; only rate limiting and the
// engine kill switch surface as errors to the caller.
package arbiter
