package orchestrator

import (
	"time"

	"carelogic/arbiter/pkg/rules"
)

// ExecutionStatus is the lifecycle state of one service execution.
type ExecutionStatus string

const (
	// StatusPending means the service has been selected but not dispatched.
	StatusPending ExecutionStatus = "pending"

	// StatusRunning means the service is executing.
	StatusRunning ExecutionStatus = "running"

	// StatusCompleted means the service finished and its recommendations
	// were collected.
	StatusCompleted ExecutionStatus = "completed"

	// StatusSkipped means the service's gate conditions or applicability
	// check declined the request.
	StatusSkipped ExecutionStatus = "skipped"

	// StatusSkippedByBreaker means the circuit breaker rejected the call
	// before the service was attempted.
	StatusSkippedByBreaker ExecutionStatus = "skipped-by-breaker"

	// StatusFailed means the service returned an error or panicked.
	StatusFailed ExecutionStatus = "failed"

	// StatusTimedOut means the service did not finish within its deadline.
	StatusTimedOut ExecutionStatus = "timed-out"
)

// Terminal reports whether the status is a final state.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusSkipped, StatusSkippedByBreaker, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// ServiceResult records the outcome of one service execution.
type ServiceResult struct {
	// ServiceID identifies the service.
	ServiceID string

	// Status is the terminal execution status.
	Status ExecutionStatus

	// Recommendations are the service's outputs, present only when
	// completed.
	Recommendations []rules.Recommendation

	// Detail explains a skip (which gate declined, breaker state).
	Detail string

	// Err is the failure cause for failed and timed-out executions.
	Err error

	// Elapsed is how long the execution took, including the applicability
	// check.
	Elapsed time.Duration
}

// Result is the aggregate outcome of one orchestration.
type Result struct {
	// Recommendations are all completed services' outputs, in dispatch
	// order.
	Recommendations []rules.Recommendation

	// Services holds one entry per candidate service, in dispatch order.
	Services []ServiceResult

	// ExecutedCount is the number of services that completed.
	ExecutedCount int

	// SkippedCount is the number of services skipped by conditions,
	// applicability, or an open breaker.
	SkippedCount int

	// FailedCount is the number of services that failed or timed out.
	FailedCount int

	// Elapsed is the total orchestration wall time.
	Elapsed time.Duration
}

// tally folds a batch of service results into the aggregate.
func (r *Result) tally(results []ServiceResult) {
	for i := range results {
		sr := &results[i]
		switch sr.Status {
		case StatusCompleted:
			r.ExecutedCount++
			r.Recommendations = append(r.Recommendations, sr.Recommendations...)
		case StatusSkipped, StatusSkippedByBreaker:
			r.SkippedCount++
		case StatusFailed, StatusTimedOut:
			r.FailedCount++
		}
	}
	r.Services = append(r.Services, results...)
}
