package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProm_Counters(t *testing.T) {
	h := NewProm("keystone")
	reg := prometheus.NewRegistry()
	reg.MustRegister(h.Collectors()...)

	h.CacheHit()
	h.CacheHit()
	h.CacheMiss()
	h.CacheEviction("capacity")
	h.PersistError("write", errors.New("quota exceeded"))
	h.RetryAttempt(1)

	if got := testutil.ToFloat64(h.hits); got != 2 {
		t.Fatalf("hits: expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(h.misses); got != 1 {
		t.Fatalf("misses: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(h.evictions.WithLabelValues("capacity")); got != 1 {
		t.Fatalf("evictions: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(h.persistErrors.WithLabelValues("write")); got != 1 {
		t.Fatalf("persist errors: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(h.retries); got != 1 {
		t.Fatalf("retries: expected 1, got %v", got)
	}
}

func TestProm_BreakerStateGauge(t *testing.T) {
	h := NewProm("keystone")

	h.BreakerState("open")
	if got := testutil.ToFloat64(h.breakerState); got != 1 {
		t.Fatalf("expected gauge 1 for open, got %v", got)
	}
	h.BreakerState("half-open")
	if got := testutil.ToFloat64(h.breakerState); got != 2 {
		t.Fatalf("expected gauge 2 for half-open, got %v", got)
	}
	h.BreakerState("closed")
	if got := testutil.ToFloat64(h.breakerState); got != 0 {
		t.Fatalf("expected gauge 0 for closed, got %v", got)
	}
}

func TestNopImplementsHook(t *testing.T) {
	var _ Hook = Nop{}
	var _ Hook = NewProm("keystone")
}
