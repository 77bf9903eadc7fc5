// Package orchestrator runs pluggable decision services concurrently under
// a deadline and a concurrency cap.
//
// Services register against a trigger type. On execution the orchestrator
// resolves the candidate services, checks each one against the safety
// layer's circuit breaker and its own declarative conditions, and then runs
// the survivors in parallel inside a bounded permit pool. Every service
// call is wrapped in its own deadline; a timed-out or failing service never
// cancels its siblings, and aggregate recommendation order follows dispatch
// order rather than completion order.
//
// The priority variant processes services in ascending priority bands, each
// band internally parallel, and stops dispatching further bands once a
// recommendation cap is reached.
package orchestrator
