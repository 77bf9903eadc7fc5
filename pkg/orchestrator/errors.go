package orchestrator

import (
	"errors"
	"fmt"
)

// ErrUnknownService indicates an explicitly requested service id is not
// registered.
var ErrUnknownService = errors.New("unknown service")

// DuplicateServiceError reports a Register call reusing an existing id.
type DuplicateServiceError struct {
	ID string
}

// Error returns the error message.
func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("service %q is already registered", e.ID)
}

// ServiceError wraps a failure from one service execution. It is carried
// on the service's result and never aborts the batch.
type ServiceError struct {
	ServiceID string
	Cause     error
}

// Error returns the error message.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s: %v", e.ServiceID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}
