package safety

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestManager() *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(DefaultConfig(), logger)
}

func TestManagerAllowCallReturnsBreakerError(t *testing.T) {
	m := newTestManager()

	for i := 0; i < 5; i++ {
		if err := m.AllowCall("svc"); err != nil {
			t.Fatalf("call %d: unexpected error %v", i+1, err)
		}
		m.RecordFailure("svc")
	}

	err := m.AllowCall("svc")
	var boe *BreakerOpenError
	if !errors.As(err, &boe) {
		t.Fatalf("err = %v, want *BreakerOpenError", err)
	}
	if boe.Service != "svc" {
		t.Errorf("Service = %q, want svc", boe.Service)
	}
	if boe.Cooldown != 5*time.Minute {
		t.Errorf("Cooldown = %v, want 5m", boe.Cooldown)
	}
}

func TestManagerAllowRequestReturnsRateLimitError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = RateLimitConfig{Limit: 2, Window: time.Minute}
	m := NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.AllowRequest("caller"); err != nil {
		t.Fatal(err)
	}
	if err := m.AllowRequest("caller"); err != nil {
		t.Fatal(err)
	}

	err := m.AllowRequest("caller")
	var rle *RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("err = %v, want *RateLimitedError", err)
	}
	if rle.Limit != 2 || rle.Window != time.Minute {
		t.Errorf("error carries (%d, %v), want (2, 1m)", rle.Limit, rle.Window)
	}
	if rle.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0 on rejection", rle.Remaining)
	}
	if rle.RetryAfter <= 0 || rle.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %s, want within (0, 1m]", rle.RetryAfter)
	}
}

func TestManagerFlagDefaults(t *testing.T) {
	m := newTestManager()

	on := []Flag{FlagEngineEnabled, FlagHybridFallback, FlagCustomRules, FlagMetrics, FlagParallelEvaluation}
	for _, f := range on {
		if !m.FlagEnabled(f) {
			t.Errorf("flag %s should default on", f)
		}
	}
	for _, f := range []Flag{FlagABTesting, FlagCaching} {
		if m.FlagEnabled(f) {
			t.Errorf("flag %s should default off", f)
		}
	}
	if m.FlagEnabled(Flag("no-such-flag")) {
		t.Error("unknown flags must read as disabled")
	}

	m.SetFlag(FlagMetrics, false)
	if m.FlagEnabled(FlagMetrics) {
		t.Error("SetFlag(false) did not stick")
	}
}

func TestManagerInTreatmentGatedOnFlag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Allocation = Allocation{Percent: 100}
	m := NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if m.InTreatment("patient-1") {
		t.Error("A/B testing is flagged off, everyone is control")
	}
	m.SetFlag(FlagABTesting, true)
	if !m.InTreatment("patient-1") {
		t.Error("100% allocation must place every subject in treatment")
	}
}

func TestManagerMetricsGatedOnFlag(t *testing.T) {
	m := newTestManager()

	m.SetFlag(FlagMetrics, false)
	m.RecordLatency(10*time.Millisecond, true)
	m.RecordCacheHit()
	if snap := m.GetMetrics(); snap.Requests != 0 || snap.CacheHits != 0 {
		t.Errorf("metrics recorded while flag off: %+v", snap)
	}

	m.SetFlag(FlagMetrics, true)
	m.RecordLatency(10*time.Millisecond, true)
	m.RecordLatency(20*time.Millisecond, false)
	m.RecordCacheHit()
	m.RecordCacheMiss()

	snap := m.GetMetrics()
	if snap.Requests != 2 || snap.Successes != 1 || snap.Failures != 1 {
		t.Errorf("counters = %+v", snap)
	}
	if snap.CacheHits != 1 || snap.CacheMisses != 1 {
		t.Errorf("cache counters = %+v", snap)
	}
}

func TestManagerHealthCheck(t *testing.T) {
	m := newTestManager()

	health := m.HealthCheck()
	if !health.Healthy {
		t.Fatal("fresh manager must report healthy")
	}

	for i := 0; i < 5; i++ {
		m.RecordFailure("flaky")
	}
	health = m.HealthCheck()
	if health.Healthy {
		t.Error("open breaker must make the system unhealthy")
	}
	if len(health.OpenBreakers) != 1 || health.OpenBreakers[0] != "flaky" {
		t.Errorf("OpenBreakers = %v, want [flaky]", health.OpenBreakers)
	}

	m.RecordSuccess("flaky") // no effect while open
	if m.HealthCheck().Healthy {
		t.Error("breaker stays open until cooldown")
	}

	m2 := newTestManager()
	m2.SetFlag(FlagEngineEnabled, false)
	if m2.HealthCheck().Healthy {
		t.Error("disabled engine must report unhealthy")
	}
}

func TestManagerStartAndClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaintenanceSchedule = "@every 1h"
	m := NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err == nil {
		t.Error("second Start must fail")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close is idempotent, got %v", err)
	}
}

func TestManagerStartRejectsBadSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaintenanceSchedule = "not a schedule"
	m := NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.Start(); err == nil {
		t.Fatal("invalid cron expression must fail Start")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close after failed Start: %v", err)
	}
}

func TestAllocationConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("same subject always gets the same arm", prop.ForAll(
		func(subject string, percent int) bool {
			a := Allocation{Percent: percent}
			first := a.InTreatment(subject)
			for i := 0; i < 5; i++ {
				if a.InTreatment(subject) != first {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.IntRange(0, 100),
	))

	properties.Property("boundary allocations ignore the hash", prop.ForAll(
		func(subject string) bool {
			return !Allocation{Percent: 0}.InTreatment(subject) &&
				Allocation{Percent: 100}.InTreatment(subject)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestAllocationArm(t *testing.T) {
	a := Allocation{Percent: 100}
	if got := a.Arm("anyone"); got != "treatment" {
		t.Errorf("Arm = %q, want treatment", got)
	}
	if got := (Allocation{Percent: 0}).Arm("anyone"); got != "control" {
		t.Errorf("Arm = %q, want control", got)
	}
}

func TestPerfTrackerPercentiles(t *testing.T) {
	pt := NewPerfTracker(100)
	for i := 1; i <= 100; i++ {
		pt.Record(time.Duration(i)*time.Millisecond, true)
	}

	snap := pt.Snapshot()
	if snap.Samples != 100 {
		t.Fatalf("Samples = %d, want 100", snap.Samples)
	}
	if snap.P50 != 50*time.Millisecond {
		t.Errorf("P50 = %v, want 50ms", snap.P50)
	}
	if snap.P95 != 95*time.Millisecond {
		t.Errorf("P95 = %v, want 95ms", snap.P95)
	}
	if snap.P99 != 99*time.Millisecond {
		t.Errorf("P99 = %v, want 99ms", snap.P99)
	}
}

func TestPerfTrackerRingEviction(t *testing.T) {
	pt := NewPerfTracker(4)
	for i := 1; i <= 6; i++ {
		pt.Record(time.Duration(i)*time.Millisecond, true)
	}

	snap := pt.Snapshot()
	if snap.Requests != 6 {
		t.Errorf("Requests = %d, want 6 (counters never evict)", snap.Requests)
	}
	if snap.Samples != 4 {
		t.Errorf("Samples = %d, want 4", snap.Samples)
	}
	// Samples 1 and 2 were overwritten, so the floor is 3ms.
	if snap.P50 < 3*time.Millisecond {
		t.Errorf("P50 = %v, evicted samples still present", snap.P50)
	}
}

func TestPerfTrackerEmptySnapshot(t *testing.T) {
	snap := NewPerfTracker(0).Snapshot()
	if snap.Samples != 0 || snap.P50 != 0 || snap.P99 != 0 {
		t.Errorf("empty tracker snapshot = %+v", snap)
	}
}
