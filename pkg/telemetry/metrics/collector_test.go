package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRecordsDecisions(t *testing.T) {
	c := NewCollector(DefaultConfig(), nil)

	c.RecordDecision("patient-view", "ok", 12*time.Millisecond, 3)
	c.RecordDecision("patient-view", "ok", 8*time.Millisecond, 0)
	c.RecordDecision("order-sign", "rate-limited", time.Millisecond, 0)

	if got := testutil.ToFloat64(c.decisionsTotal.WithLabelValues("patient-view", "ok")); got != 2 {
		t.Errorf("decisions_total{patient-view,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.decisionsTotal.WithLabelValues("order-sign", "rate-limited")); got != 1 {
		t.Errorf("decisions_total{order-sign,rate-limited} = %v, want 1", got)
	}
}

func TestCollectorRuleAndServiceMetrics(t *testing.T) {
	c := NewCollector(DefaultConfig(), nil)

	c.RecordRulesEvaluated(12)
	c.RecordRuleHit("medication-safety", "warfarin-nsaid-interaction")
	c.RecordRuleHit("medication-safety", "warfarin-nsaid-interaction")
	c.RecordServiceExecution("drug-interactions", "completed", 40*time.Millisecond)
	c.RecordServiceExecution("drug-interactions", "failed", 5*time.Millisecond)

	if got := testutil.ToFloat64(c.rulesEvaluated); got != 12 {
		t.Errorf("rules_evaluated_total = %v, want 12", got)
	}
	if got := testutil.ToFloat64(c.ruleHits.WithLabelValues("medication-safety", "warfarin-nsaid-interaction")); got != 2 {
		t.Errorf("rule_hits_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.serviceExecutions.WithLabelValues("drug-interactions", "failed")); got != 1 {
		t.Errorf("service_executions_total{failed} = %v, want 1", got)
	}
}

func TestCollectorBreakerGauge(t *testing.T) {
	c := NewCollector(DefaultConfig(), nil)

	c.SetBreakerState("flaky", "open")
	if got := testutil.ToFloat64(c.breakerState.WithLabelValues("flaky")); got != 2 {
		t.Errorf("breaker_state = %v, want 2 for open", got)
	}
	c.SetBreakerState("flaky", "half-open")
	if got := testutil.ToFloat64(c.breakerState.WithLabelValues("flaky")); got != 1 {
		t.Errorf("breaker_state = %v, want 1 for half-open", got)
	}
	c.SetBreakerState("flaky", "closed")
	if got := testutil.ToFloat64(c.breakerState.WithLabelValues("flaky")); got != 0 {
		t.Errorf("breaker_state = %v, want 0 for closed", got)
	}
}

func TestCollectorDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, nil)

	c.RecordDecision("patient-view", "ok", time.Millisecond, 1)
	c.RecordRateLimited()

	if got := testutil.ToFloat64(c.rateLimited); got != 0 {
		t.Errorf("disabled collector recorded %v rate limits", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewCollector(DefaultConfig(), nil)
	c.RecordDecision("patient-view", "ok", time.Millisecond, 1)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "carelogic_arbiter_decisions_total") {
		t.Errorf("exposition missing decisions_total:\n%s", body)
	}
}
