// Copyright 2025 Certen Protocol
//
// metrics instruments a running bucket process with Prometheus
// counters and histograms covering writes, queries, and the
// registration-flush background process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every metric this process exports. A nil
// *Registry is safe to call methods on (all observers check for it),
// so wiring metrics is optional for callers like tests.
type Registry struct {
	InsertsTotal    *prometheus.CounterVec
	QueriesTotal    *prometheus.CounterVec
	QueryErrors     *prometheus.CounterVec
	WitnessBytes    prometheus.Histogram
	RateLimitDrops  prometheus.Counter
	BucketSize      prometheus.Gauge
	PendingFlushLen prometheus.Gauge
}

// New registers every metric against reg and returns the bundle. Use
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		InsertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cap_history",
			Name:      "inserts_total",
			Help:      "Total successful Insert/InsertMany calls, by operation.",
		}, []string{"operation"}),
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cap_history",
			Name:      "queries_total",
			Help:      "Total read operations served, by operation name.",
		}, []string{"operation"}),
		QueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cap_history",
			Name:      "query_errors_total",
			Help:      "Total read operations that returned an error, by operation name.",
		}, []string{"operation"}),
		WitnessBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cap_history",
			Name:      "witness_cbor_bytes",
			Help:      "Size in bytes of the CBOR-encoded witness returned to callers.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
		}),
		RateLimitDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cap_history",
			Name:      "rate_limit_drops_total",
			Help:      "Total inserts rejected for exceeding the distinct-principal limit.",
		}),
		BucketSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cap_history",
			Name:      "bucket_size",
			Help:      "Current bucket size (global offset plus local event count).",
		}),
		PendingFlushLen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cap_history",
			Name:      "pending_flush_principals",
			Help:      "Current count of principals awaiting a registration flush.",
		}),
	}
}

// ObserveInsert records one accepted write for operation.
func (r *Registry) ObserveInsert(operation string) {
	if r == nil {
		return
	}
	r.InsertsTotal.WithLabelValues(operation).Inc()
}

// ObserveQuery records one served read for operation, and whether it
// returned an error.
func (r *Registry) ObserveQuery(operation string, err error) {
	if r == nil {
		return
	}
	r.QueriesTotal.WithLabelValues(operation).Inc()
	if err != nil {
		r.QueryErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveWitnessBytes records the CBOR-encoded size of a witness
// returned to a caller.
func (r *Registry) ObserveWitnessBytes(n int) {
	if r == nil {
		return
	}
	r.WitnessBytes.Observe(float64(n))
}

// ObserveRateLimitDrop records one insert rejected by the rate limiter.
func (r *Registry) ObserveRateLimitDrop() {
	if r == nil {
		return
	}
	r.RateLimitDrops.Inc()
}

// SetBucketSize publishes the current bucket size.
func (r *Registry) SetBucketSize(size uint64) {
	if r == nil {
		return
	}
	r.BucketSize.Set(float64(size))
}

// SetPendingFlushLen publishes the current pending-flush set size.
func (r *Registry) SetPendingFlushLen(n int) {
	if r == nil {
		return
	}
	r.PendingFlushLen.Set(float64(n))
}
