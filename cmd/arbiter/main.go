// Arbiter is a clinical decision evaluation and orchestration engine.
//
// It evaluates clinical rule sets over patient fact documents and
// orchestrates decision support services, producing ranked care
// recommendations:
//   - Condition evaluation over nested fact paths with fan-out
//   - Parallel rule-set evaluation with priority ranking
//   - Concurrent service orchestration with circuit breakers
//   - Rate limiting, feature flags, and A/B allocation
//
// Usage:
//
//	# Run a one-shot decision over a facts file
//	arbiter decide --facts patient.yaml
//
//	# Run with a custom configuration file
//	arbiter decide --facts patient.yaml --config /etc/arbiter/config.yaml
//
//	# Validate rule files
//	arbiter lint --file rules.yaml
//
//	# Show version information
//	arbiter version
package main

func main() {
	Execute()
}
