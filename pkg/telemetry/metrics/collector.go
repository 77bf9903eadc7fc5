package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the metrics collector.
type Config struct {
	// Enabled turns recording on. A disabled collector still registers
	// its metrics but every record call is a no-op.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix. Default "carelogic".
	Namespace string `yaml:"namespace"`

	// Subsystem is the second name segment. Default "arbiter".
	Subsystem string `yaml:"subsystem"`

	// DecisionDurationBuckets are histogram bounds in seconds for whole
	// decision requests.
	DecisionDurationBuckets []float64 `yaml:"decision_duration_buckets"`

	// ServiceDurationBuckets are histogram bounds in seconds for single
	// service executions.
	ServiceDurationBuckets []float64 `yaml:"service_duration_buckets"`
}

// DefaultConfig returns an enabled collector configuration.
func DefaultConfig() Config {
	return Config{Enabled: true, Namespace: "carelogic", Subsystem: "arbiter"}
}

// Collector owns every Prometheus metric the engine records. All metrics
// are created and registered once at construction.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	recommendations  *prometheus.HistogramVec

	rulesEvaluated prometheus.Counter
	ruleHits       *prometheus.CounterVec

	serviceExecutions *prometheus.CounterVec
	serviceDuration   *prometheus.HistogramVec

	breakerState *prometheus.GaugeVec
	rateLimited  prometheus.Counter
}

// NewCollector creates a collector backed by its own registry unless one
// is supplied.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "carelogic"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "arbiter"
	}
	if len(cfg.DecisionDurationBuckets) == 0 {
		// Whole-decision latencies: rules are sub-millisecond, service
		// fan-out dominates.
		cfg.DecisionDurationBuckets = []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10}
	}
	if len(cfg.ServiceDurationBuckets) == 0 {
		cfg.ServiceDurationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Decision requests by trigger type and outcome.",
			},
			[]string{"trigger", "status"},
		),
		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_duration_seconds",
				Help:      "End-to-end decision latency.",
				Buckets:   cfg.DecisionDurationBuckets,
			},
			[]string{"trigger"},
		),
		recommendations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recommendations_per_decision",
				Help:      "Recommendations produced per decision request.",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
			},
			[]string{"trigger"},
		),
		rulesEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_evaluated_total",
				Help:      "Candidate rules evaluated.",
			},
		),
		ruleHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_hits_total",
				Help:      "Rules that triggered, by rule set and rule id.",
			},
			[]string{"rule_set", "rule_id"},
		),
		serviceExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "service_executions_total",
				Help:      "Service executions by service id and terminal status.",
			},
			[]string{"service", "status"},
		),
		serviceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "service_duration_seconds",
				Help:      "Single service execution latency.",
				Buckets:   cfg.ServiceDurationBuckets,
			},
			[]string{"service"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "breaker_state",
				Help:      "Circuit breaker state per service: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"service"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter.",
			},
		),
	}

	registry.MustRegister(
		c.decisionsTotal,
		c.decisionDuration,
		c.recommendations,
		c.rulesEvaluated,
		c.ruleHits,
		c.serviceExecutions,
		c.serviceDuration,
		c.breakerState,
		c.rateLimited,
	)
	return c
}

// Registry returns the collector's Prometheus registry for exposition.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordDecision records one completed decision request.
func (c *Collector) RecordDecision(trigger, status string, duration time.Duration, recommendationCount int) {
	if !c.config.Enabled {
		return
	}
	c.decisionsTotal.WithLabelValues(trigger, status).Inc()
	c.decisionDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	c.recommendations.WithLabelValues(trigger).Observe(float64(recommendationCount))
}

// RecordRulesEvaluated counts candidate rule evaluations.
func (c *Collector) RecordRulesEvaluated(count int) {
	if !c.config.Enabled {
		return
	}
	c.rulesEvaluated.Add(float64(count))
}

// RecordRuleHit counts one triggered rule.
func (c *Collector) RecordRuleHit(ruleSet, ruleID string) {
	if !c.config.Enabled {
		return
	}
	c.ruleHits.WithLabelValues(ruleSet, ruleID).Inc()
}

// RecordServiceExecution records one service's terminal status and latency.
func (c *Collector) RecordServiceExecution(service, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.serviceExecutions.WithLabelValues(service, status).Inc()
	c.serviceDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// SetBreakerState publishes a breaker's current state as a gauge.
func (c *Collector) SetBreakerState(service string, state string) {
	if !c.config.Enabled {
		return
	}
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	c.breakerState.WithLabelValues(service).Set(v)
}

// RecordRateLimited counts one rate-limit rejection.
func (c *Collector) RecordRateLimited() {
	if !c.config.Enabled {
		return
	}
	c.rateLimited.Inc()
}
