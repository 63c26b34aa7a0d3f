package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the directory.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	disclosures     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	revenueTotal    prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matrihub_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrihub_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrihub_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrihub_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		disclosures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrihub_disclosure_decisions_total",
				Help: "Contact disclosure decisions by outcome.",
			},
			[]string{"outcome"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matrihub_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		revenueTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "matrihub_revenue_total",
				Help: "Cumulative verified revenue from approved contact requests.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordDisclosure counts one visibility decision ("allowed" or "denied").
func (m *Metrics) RecordDisclosure(allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.disclosures.WithLabelValues(outcome).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// RecordRevenue adds an approved request's verified amount.
func (m *Metrics) RecordRevenue(amount float64) {
	m.revenueTotal.Add(amount)
}

// GetEngineSnapshot returns a snapshot of the policy engine's counters for
// the GET /v1/admin/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	// Prometheus counters expose cumulative values.
	allowed := getCounterValue(m.disclosures, "allowed")
	denied := getCounterValue(m.disclosures, "denied")
	cacheHits := getCounterValue(m.cacheHits, "showcase")
	cacheMisses := getCounterValue(m.cacheMisses, "showcase")
	storeErrors := getCounterValue(m.externalErrors, "supabase")
	gatewayErrors := getCounterValue(m.externalErrors, "payment")

	allowRate := float64(0)
	if allowed+denied > 0 {
		allowRate = allowed / (allowed + denied)
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.EngineMetrics{
		DisclosureAllowed: allowed,
		DisclosureDenied:  denied,
		AllowRate:         allowRate,
		CacheHits:         cacheHits,
		CacheMisses:       cacheMisses,
		CacheHitRate:      cacheHitRate,
		StoreErrors:       storeErrors,
		GatewayErrors:     gatewayErrors,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
