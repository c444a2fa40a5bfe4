// Package metrics defines the observer hook through which the cache and
// resilience layers report what they would otherwise swallow silently —
// hits, misses, evictions, persistence failures, retries and breaker
// transitions — plus a Prometheus-backed implementation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Hook receives observability events. Implementations must be cheap and
// must never panic; they are called on hot paths and inside fail-soft
// error handling.
type Hook interface {
	// CacheHit records a successful cache lookup.
	CacheHit()

	// CacheMiss records a failed cache lookup (absent or expired).
	CacheMiss()

	// CacheEviction records a removed entry; reason is one of
	// "capacity", "expired" or "memory".
	CacheEviction(reason string)

	// PersistError records a swallowed durable-store failure; op is one
	// of "read", "write", "remove", "encode" or "decode". This is the
	// diagnosable face of the cache's never-throw contract.
	PersistError(op string, err error)

	// RetryAttempt records a retried attempt (1-indexed).
	RetryAttempt(attempt int)

	// BreakerState records a circuit breaker state transition.
	BreakerState(state string)
}

// Nop is a Hook that discards every event.
type Nop struct{}

func (Nop) CacheHit()                  {}
func (Nop) CacheMiss()                 {}
func (Nop) CacheEviction(string)       {}
func (Nop) PersistError(string, error) {}
func (Nop) RetryAttempt(int)           {}
func (Nop) BreakerState(string)        {}

// breaker state gauge values.
var stateValues = map[string]float64{
	"closed":    0,
	"open":      1,
	"half-open": 2,
}

// Prom is a Hook backed by Prometheus collectors. Register the collectors
// with a registry via Collectors().
type Prom struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     *prometheus.CounterVec
	persistErrors *prometheus.CounterVec
	retries       prometheus.Counter
	breakerState  prometheus.Gauge
}

// NewProm creates a Prometheus-backed hook. All metrics carry the given
// namespace.
func NewProm(namespace string) *Prom {
	return &Prom{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total",
			Help: "Cache lookups served from a live entry.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total",
			Help: "Cache lookups that found no live entry.",
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_evictions_total",
			Help: "Entries removed from the cache, by reason.",
		}, []string{"reason"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_persist_errors_total",
			Help: "Swallowed durable-store failures, by operation.",
		}, []string{"op"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "retry_attempts_total",
			Help: "Remote operation attempts that were retried.",
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}),
	}
}

// Collectors returns every collector for registration:
//
//	reg.MustRegister(hook.Collectors()...)
func (p *Prom) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		p.hits, p.misses, p.evictions, p.persistErrors, p.retries, p.breakerState,
	}
}

func (p *Prom) CacheHit()  { p.hits.Inc() }
func (p *Prom) CacheMiss() { p.misses.Inc() }

func (p *Prom) CacheEviction(reason string) {
	p.evictions.WithLabelValues(reason).Inc()
}

func (p *Prom) PersistError(op string, _ error) {
	p.persistErrors.WithLabelValues(op).Inc()
}

func (p *Prom) RetryAttempt(int) { p.retries.Inc() }

func (p *Prom) BreakerState(state string) {
	p.breakerState.Set(stateValues[state])
}
