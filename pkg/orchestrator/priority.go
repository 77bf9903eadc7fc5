package orchestrator

import (
	"context"
	"sort"
	"time"

	"carelogic/arbiter/pkg/facts"
)

// PriorityOrchestrator executes services in ascending priority bands. Each
// band runs internally parallel; bands run strictly one after another, so
// every recommendation from priority p contributes before any service of
// priority p+1 is attempted. Once the recommendation cap is reached the
// output is truncated and remaining bands are never dispatched.
type PriorityOrchestrator struct {
	*Orchestrator
}

// NewPriority wraps an orchestrator with banded execution.
func NewPriority(inner *Orchestrator) *PriorityOrchestrator {
	return &PriorityOrchestrator{Orchestrator: inner}
}

// Execute runs candidate services band by band in ascending priority.
func (p *PriorityOrchestrator) Execute(ctx context.Context, triggerType string, factsCtx facts.Context, extra map[string]any, opts ExecuteOptions) (*Result, error) {
	started := time.Now()

	candidates, err := p.candidates(triggerType, opts.ServiceIDs)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(candidates) == 0 {
		return result, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.config.ServiceTimeout
	}

	limit := p.config.MaxRecommendations
	bands := groupByPriority(candidates)
	for _, band := range bands {
		result.tally(p.runServices(ctx, band.services, factsCtx, extra, timeout))
		if limit > 0 && len(result.Recommendations) >= limit {
			result.Recommendations = result.Recommendations[:limit]
			break
		}
	}

	result.Elapsed = time.Since(started)
	p.logger.Debug("priority orchestration completed",
		"trigger", triggerType,
		"bands", len(bands),
		"executed", result.ExecutedCount,
		"recommendations", len(result.Recommendations),
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// priorityBand is one group of equal-priority services.
type priorityBand struct {
	priority int
	services []Service
}

// groupByPriority buckets services by priority, most urgent band first.
// Within a band the original candidate order is kept.
func groupByPriority(services []Service) []priorityBand {
	buckets := make(map[int][]Service)
	for _, svc := range services {
		pri := svc.Priority()
		if pri <= 0 {
			pri = DefaultServicePriority
		}
		buckets[pri] = append(buckets[pri], svc)
	}

	bands := make([]priorityBand, 0, len(buckets))
	for pri, svcs := range buckets {
		bands = append(bands, priorityBand{priority: pri, services: svcs})
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].priority < bands[j].priority })
	return bands
}
