package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AllocationMetrics records engine and quote-cache activity.
type AllocationMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	cache    *prometheus.CounterVec
	cartSize prometheus.Histogram
}

// NewAllocationMetrics registers the allocation metrics on the provided
// registerer.
func NewAllocationMetrics(reg prometheus.Registerer) *AllocationMetrics {
	if reg == nil {
		return &AllocationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_duration_seconds",
		Help:    "Duration of discount allocation passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_outcomes_total",
		Help: "Allocation calls by discount kind and outcome.",
	}, []string{"kind", "outcome"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_quote_cache_total",
		Help: "Quote cache lookups by result.",
	}, []string{"result"})
	cartSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocation_cart_items",
		Help:    "Line items per allocated cart.",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(duration, outcomes, cache, cartSize)
	return &AllocationMetrics{
		duration: duration,
		outcomes: outcomes,
		cache:    cache,
		cartSize: cartSize,
	}
}

// ObserveAllocation records one allocation pass.
func (m *AllocationMetrics) ObserveAllocation(kind string, itemCount int, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(kind)).Observe(elapsed.Seconds())
	m.cartSize.Observe(float64(itemCount))
}

// IncOutcome counts one allocation call outcome.
func (m *AllocationMetrics) IncOutcome(kind, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncCacheHit counts a served-from-cache quote.
func (m *AllocationMetrics) IncCacheHit() {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues("hit").Inc()
}

// IncCacheMiss counts a recomputed quote.
func (m *AllocationMetrics) IncCacheMiss() {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
