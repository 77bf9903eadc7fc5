package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckAllHealthy(t *testing.T) {
	c := New(time.Second)
	c.Register("rules", func(ctx context.Context) error { return nil })
	c.Register("safety", func(ctx context.Context) error { return nil })

	status := c.Check(context.Background())
	if status.Status != "ok" {
		t.Fatalf("status = %q, want ok", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Errorf("got %d check results, want 2", len(status.Checks))
	}
}

func TestCheckDegraded(t *testing.T) {
	c := New(time.Second)
	c.Register("rules", func(ctx context.Context) error { return nil })
	c.Register("breaker", func(ctx context.Context) error { return errors.New("2 breakers open") })

	status := c.Check(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", status.Status)
	}
	if status.Checks["breaker"].Message != "2 breakers open" {
		t.Errorf("breaker result = %+v", status.Checks["breaker"])
	}
	if status.Checks["rules"].Status != "ok" {
		t.Errorf("healthy component marked %q", status.Checks["rules"].Status)
	}
}

func TestCheckTimesOutSlowCheck(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Register("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(time.Second)
		return nil
	})

	started := time.Now()
	status := c.Check(context.Background())
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("Check blocked %v on a stuck component", elapsed)
	}
	if status.Checks["stuck"].Status != "unhealthy" {
		t.Errorf("stuck check = %+v, want unhealthy", status.Checks["stuck"])
	}
}

func TestCheckNoChecksIsOK(t *testing.T) {
	status := New(0).Check(context.Background())
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok with no checks", status.Status)
	}
}

func TestUnregister(t *testing.T) {
	c := New(time.Second)
	c.Register("gone", func(ctx context.Context) error { return errors.New("bad") })
	c.Unregister("gone")

	status := c.Check(context.Background())
	if status.Status != "ok" || len(status.Checks) != 0 {
		t.Errorf("status after unregister = %+v", status)
	}
}
