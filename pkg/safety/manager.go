package safety

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Config configures the safety manager.
type Config struct {
	// Breaker configures the per-service circuit breaker.
	Breaker BreakerConfig `yaml:"breaker"`

	// RateLimit configures the per-caller sliding window.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Allocation configures A/B treatment allocation.
	Allocation Allocation `yaml:"allocation"`

	// SampleCapacity is the latency ring buffer size. Default 1024.
	SampleCapacity int `yaml:"sample_capacity"`

	// MaintenanceSchedule is a cron expression for the background sweep
	// that prunes idle rate-limiter windows and closed breaker entries.
	// Empty disables the sweep. Default "@every 1m".
	MaintenanceSchedule string `yaml:"maintenance_schedule"`
}

// DefaultConfig returns the default safety configuration.
func DefaultConfig() Config {
	return Config{
		Breaker:             DefaultBreakerConfig(),
		RateLimit:           DefaultRateLimitConfig(),
		Allocation:          Allocation{Percent: 0},
		SampleCapacity:      defaultSampleCapacity,
		MaintenanceSchedule: "@every 1m",
	}
}

// HealthStatus is the pull-based health snapshot exposed to external
// metrics/audit sinks.
type HealthStatus struct {
	Healthy      bool
	OpenBreakers []string
	Flags        map[Flag]bool
	Perf         PerfSnapshot
	Breakers     map[string]BreakerSnapshot
}

// Manager is the cross-cutting safety layer: circuit breakers, rate
// limiting, feature flags, A/B allocation, and rolling performance
// metrics, behind one façade.
//
// Construct one Manager at process start and share it; all state is
// internal and concurrency-safe.
type Manager struct {
	config  Config
	breaker *Breaker
	limiter *RateLimiter
	flags   *Flags
	perf    *PerfTracker
	logger  *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewManager creates a safety manager. The maintenance sweep does not run
// until Start is called.
func NewManager(config Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaintenanceSchedule == "" {
		config.MaintenanceSchedule = DefaultConfig().MaintenanceSchedule
	}
	return &Manager{
		config:  config,
		breaker: NewBreaker(config.Breaker),
		limiter: NewRateLimiter(config.RateLimit),
		flags:   NewFlags(),
		perf:    NewPerfTracker(config.SampleCapacity),
		logger:  logger.With("component", "safety"),
	}
}

// AllowCall checks the circuit breaker for a service. A rejection returns
// *BreakerOpenError; the service must not be invoked.
func (m *Manager) AllowCall(serviceID string) error {
	if m.breaker.Allow(serviceID) {
		return nil
	}
	snap := m.breaker.State(serviceID)
	return &BreakerOpenError{
		Service:  serviceID,
		OpenedAt: snap.OpenedAt,
		Cooldown: m.config.Breaker.withDefaults().Cooldown,
	}
}

// RecordSuccess reports a successful service call to the breaker.
func (m *Manager) RecordSuccess(serviceID string) {
	m.breaker.RecordSuccess(serviceID)
}

// RecordFailure reports a failed (or timed-out) service call to the
// breaker.
func (m *Manager) RecordFailure(serviceID string) {
	m.breaker.RecordFailure(serviceID)
}

// BreakerState returns the breaker snapshot for a service.
func (m *Manager) BreakerState(serviceID string) BreakerSnapshot {
	return m.breaker.State(serviceID)
}

// AllowRequest checks the caller's rate limit. A rejection returns
// *RateLimitedError and must be surfaced to the caller; it is not a
// service failure.
func (m *Manager) AllowRequest(callerKey string) error {
	if m.limiter.Allow(callerKey) {
		return nil
	}
	cfg := m.config.RateLimit.withDefaults()
	return &RateLimitedError{
		Key:        callerKey,
		Limit:      cfg.Limit,
		Window:     cfg.Window,
		Remaining:  m.limiter.Remaining(callerKey),
		RetryAfter: m.limiter.RetryAfter(callerKey),
	}
}

// FlagEnabled reports a feature flag.
func (m *Manager) FlagEnabled(flag Flag) bool {
	return m.flags.Enabled(flag)
}

// SetFlag writes a feature flag.
func (m *Manager) SetFlag(flag Flag, enabled bool) {
	m.flags.Set(flag, enabled)
	m.logger.Info("feature flag changed", "flag", string(flag), "enabled", enabled)
}

// InTreatment reports the A/B arm for a stable subject identifier. With
// A/B testing flagged off, every subject is control.
func (m *Manager) InTreatment(subject string) bool {
	if !m.flags.Enabled(FlagABTesting) {
		return false
	}
	return m.config.Allocation.InTreatment(subject)
}

// RecordLatency feeds the rolling performance metrics. A no-op while the
// metrics flag is off.
func (m *Manager) RecordLatency(latency time.Duration, success bool) {
	if !m.flags.Enabled(FlagMetrics) {
		return
	}
	m.perf.Record(latency, success)
}

// RecordCacheHit counts a cache hit (when the metrics flag is on).
func (m *Manager) RecordCacheHit() {
	if m.flags.Enabled(FlagMetrics) {
		m.perf.RecordCacheHit()
	}
}

// RecordCacheMiss counts a cache miss (when the metrics flag is on).
func (m *Manager) RecordCacheMiss() {
	if m.flags.Enabled(FlagMetrics) {
		m.perf.RecordCacheMiss()
	}
}

// GetMetrics returns the rolling performance snapshot.
func (m *Manager) GetMetrics() PerfSnapshot {
	return m.perf.Snapshot()
}

// HealthCheck returns the full pull-based health snapshot. The system is
// reported healthy when the engine flag is on and no breaker is open.
func (m *Manager) HealthCheck() HealthStatus {
	breakers := m.breaker.Snapshot()
	var open []string
	for key, snap := range breakers {
		if snap.State == StateOpen {
			open = append(open, key)
		}
	}
	return HealthStatus{
		Healthy:      m.flags.Enabled(FlagEngineEnabled) && len(open) == 0,
		OpenBreakers: open,
		Flags:        m.flags.All(),
		Perf:         m.perf.Snapshot(),
		Breakers:     breakers,
	}
}

// Start begins the background maintenance sweep. Repeated calls are an
// error; an empty schedule disables the sweep.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil {
		return fmt.Errorf("safety manager already started")
	}
	if m.config.MaintenanceSchedule == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.config.MaintenanceSchedule, m.sweep); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", m.config.MaintenanceSchedule, err)
	}
	c.Start()
	m.cron = c

	m.logger.Info("maintenance sweep started", "schedule", m.config.MaintenanceSchedule)
	return nil
}

// sweep prunes idle per-key state and logs a metrics summary.
func (m *Manager) sweep() {
	prunedWindows := m.limiter.Prune()
	prunedBreakers := m.breaker.Prune(10 * m.config.Breaker.withDefaults().Cooldown)

	snap := m.perf.Snapshot()
	m.logger.Debug("maintenance sweep completed",
		"pruned_rate_windows", prunedWindows,
		"pruned_breakers", prunedBreakers,
		"requests", snap.Requests,
		"failures", snap.Failures,
		"p95", snap.P95,
	)
}

// Close stops the maintenance sweep, waiting for a running sweep to
// finish.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron == nil {
		return nil
	}
	<-m.cron.Stop().Done()
	m.cron = nil
	return nil
}
