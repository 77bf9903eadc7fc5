package orchestrator

import (
	"context"
	"sync"

	"carelogic/arbiter/pkg/facts"
	"carelogic/arbiter/pkg/rules"
)

// DefaultServicePriority is the priority assigned to services that do not
// care about ordering. Priority 1 is the most urgent.
const DefaultServicePriority = 5

// Service is a pluggable decision unit bound to one trigger type.
//
// ShouldExecute is the cheap applicability check; Execute does the real
// work. Both receive the request deadline through ctx and must return
// promptly once it is cancelled. Metadata methods are called only during
// discovery and registration, never on the request hot path.
type Service interface {
	// ID uniquely identifies the service within the registry.
	ID() string

	// TriggerType names the workflow hook this service responds to.
	TriggerType() string

	// PrefetchSpec declares the clinical data the service needs, keyed by
	// local name. Used by the calling adapter for discovery only.
	PrefetchSpec() map[string]string

	// Conditions returns declarative gate conditions evaluated against the
	// fact context before the service is considered. Nil means always
	// eligible.
	Conditions() []*rules.Condition

	// Priority orders the service for the priority orchestrator. Lower is
	// more urgent; 1 is highest.
	Priority() int

	// ShouldExecute is a cheap applicability check over the facts.
	ShouldExecute(ctx context.Context, factsCtx facts.Context, extra map[string]any) (bool, error)

	// Execute produces the service's recommendations.
	Execute(ctx context.Context, factsCtx facts.Context, extra map[string]any) ([]rules.Recommendation, error)
}

// ServiceFunc adapts plain functions into a Service for simple services
// that need no applicability check beyond their conditions.
type ServiceFunc struct {
	ServiceID  string
	Trigger    string
	Prefetch   map[string]string
	Gate       []*rules.Condition
	Rank       int
	Applicable func(ctx context.Context, factsCtx facts.Context, extra map[string]any) (bool, error)
	Run        func(ctx context.Context, factsCtx facts.Context, extra map[string]any) ([]rules.Recommendation, error)
}

func (s *ServiceFunc) ID() string                      { return s.ServiceID }
func (s *ServiceFunc) TriggerType() string             { return s.Trigger }
func (s *ServiceFunc) PrefetchSpec() map[string]string { return s.Prefetch }
func (s *ServiceFunc) Conditions() []*rules.Condition  { return s.Gate }

func (s *ServiceFunc) Priority() int {
	if s.Rank <= 0 {
		return DefaultServicePriority
	}
	return s.Rank
}

func (s *ServiceFunc) ShouldExecute(ctx context.Context, factsCtx facts.Context, extra map[string]any) (bool, error) {
	if s.Applicable == nil {
		return true, nil
	}
	return s.Applicable(ctx, factsCtx, extra)
}

func (s *ServiceFunc) Execute(ctx context.Context, factsCtx facts.Context, extra map[string]any) ([]rules.Recommendation, error) {
	return s.Run(ctx, factsCtx, extra)
}

// Registry holds registered services indexed by id and by trigger type.
// Registration is administrative and rare; lookups on the request path take
// only a read lock.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]Service
	byTrigger map[string][]Service
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:      make(map[string]Service),
		byTrigger: make(map[string][]Service),
	}
}

// Register adds a service. Duplicate ids are rejected.
func (r *Registry) Register(svc Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := svc.ID()
	if _, exists := r.byID[id]; exists {
		return &DuplicateServiceError{ID: id}
	}
	r.byID[id] = svc
	r.byTrigger[svc.TriggerType()] = append(r.byTrigger[svc.TriggerType()], svc)
	return nil
}

// Unregister removes a service by id; it reports whether the id was known.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, exists := r.byID[id]
	if !exists {
		return false
	}
	delete(r.byID, id)

	trigger := svc.TriggerType()
	kept := r.byTrigger[trigger][:0]
	for _, s := range r.byTrigger[trigger] {
		if s.ID() != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(r.byTrigger, trigger)
	} else {
		r.byTrigger[trigger] = kept
	}
	return true
}

// Service returns a registered service by id.
func (r *Registry) Service(id string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.byID[id]
	return svc, ok
}

// ServicesFor returns the services registered for a trigger type, in
// registration order.
func (r *Registry) ServicesFor(trigger string) []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Service, len(r.byTrigger[trigger]))
	copy(out, r.byTrigger[trigger])
	return out
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
