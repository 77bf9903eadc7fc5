// Package metrics registers and records the engine's Prometheus metrics.
//
// The Collector owns a private registry and pre-allocates every metric at
// construction, so recording on the request path is lock-free counter and
// histogram updates. Decision counts, rule hits, service execution times,
// and circuit breaker states each get their own family under the
// carelogic_arbiter namespace.
package metrics
